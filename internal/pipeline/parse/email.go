package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func readEnvelope(filePath string) (*enmime.Envelope, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return nil, fmt.Errorf("parse email %s: %w", filePath, err)
	}
	return env, nil
}

// emailDateSent parses the RFC 2822 Date header to a UTC timestamp, falling
// back to the epoch so the non-nullable DateTime column stays valid.
func emailDateSent(env *enmime.Envelope) time.Time {
	if raw := env.GetHeader("Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}

// ParseEmailExtractTextHeaders parses an .eml file, records the email and
// header rows, and stores all text/plain bodies as text chunks.
func (a *Activities) ParseEmailExtractTextHeaders(ctx context.Context, params ParseEmailHeadersParams) (string, error) {
	a.Log.Info("Parsing email headers", "file_path", params.FilePath)
	env, err := readEnvelope(params.FilePath)
	if err != nil {
		return "", err
	}

	var addresses []string
	for _, hdr := range []string{"from", "to", "cc", "bcc"} {
		if v := env.GetHeader(hdr); v != "" {
			addresses = append(addresses, fmt.Sprintf("%s: %s", hdr, v))
		}
	}

	rawHeaders := make(map[string]string)
	if env.Root != nil {
		for key, vals := range env.Root.Header {
			rawHeaders[key] = strings.Join(vals, ", ")
		}
	}
	rawHeadersJSON, _ := json.Marshal(rawHeaders)

	emailBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO emails (collection_dataset, email_hash, email_type)")
	if err != nil {
		return "", err
	}
	if err := emailBatch.Append(params.CollectionDataset, params.EmailHash, "eml"); err != nil {
		return "", err
	}
	if err := emailBatch.Send(); err != nil {
		return "", fmt.Errorf("insert emails: %w", err)
	}

	headerBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO email_headers (collection_dataset, email_hash, raw_headers_json, subject, addresses, date_sent)")
	if err != nil {
		return "", err
	}
	if err := headerBatch.Append(params.CollectionDataset, params.EmailHash,
		string(rawHeadersJSON), env.GetHeader("Subject"), strings.Join(addresses, "; "), emailDateSent(env)); err != nil {
		return "", err
	}
	if err := headerBatch.Send(); err != nil {
		return "", fmt.Errorf("insert email_headers: %w", err)
	}

	var texts []string
	if env.Root != nil {
		for _, part := range env.Root.DepthMatchAll(func(p *enmime.Part) bool {
			return p.ContentType == "text/plain"
		}) {
			if len(part.Content) > 0 {
				texts = append(texts, string(part.Content))
			}
		}
	}
	if len(texts) == 0 && env.Text != "" {
		texts = append(texts, env.Text)
	}

	pageID := 0
	for _, t := range texts {
		n, err := InsertTextChunks(ctx, a.CH, params.CollectionDataset, params.EmailHash, "email_parser", []byte(t), pageID)
		if err != nil {
			return "", err
		}
		pageID += n
	}
	return fmt.Sprintf("email %s", params.EmailHash), nil
}

// ExtractEmailAttachmentsToTemp writes every attachment of an .eml into a
// scratch directory for a recursive scan.
func (a *Activities) ExtractEmailAttachmentsToTemp(ctx context.Context, params ExtractEmailAttachmentsParams) (TempDirResult, error) {
	outDir, err := MakeTempDir(params.CollectionDataset, "email", params.EmailHash)
	if err != nil {
		return TempDirResult{}, err
	}
	a.Log.Info("Extracting email attachments", "file_path", params.FilePath, "out_dir", outDir)

	env, err := readEnvelope(params.FilePath)
	if err != nil {
		return TempDirResult{}, err
	}

	attachmentIndex := 0
	writePart := func(part *enmime.Part) {
		if len(part.Content) == 0 {
			return
		}
		filename := part.FileName
		if filename == "" {
			attachmentIndex++
			filename = fmt.Sprintf("attachment_%d", attachmentIndex)
		}
		safeName := strings.NewReplacer("/", "_", "\\", "_").Replace(filename)
		if err := os.WriteFile(filepath.Join(outDir, safeName), part.Content, 0o644); err != nil {
			a.Log.Warn("Failed to write attachment", "name", safeName, "error", err)
		}
	}
	for _, part := range env.Attachments {
		writePart(part)
	}
	for _, part := range env.Inlines {
		if part.FileName != "" {
			writePart(part)
		}
	}
	for _, part := range env.OtherParts {
		if part.FileName != "" {
			writePart(part)
		}
	}
	return TempDirResult{OutDir: outDir}, nil
}

// EmailExtractionAndScan stores email headers and text, unpacks attachments,
// scans them as container children, then cleans up.
func EmailExtractionAndScan(ctx workflow.Context, params EmailExtractionWorkflowParams) (string, error) {
	if params.FilePath == "" {
		return "", temporal.NewNonRetryableApplicationError(
			"EmailExtractionAndScan missing file_path", "MissingFilePath", nil)
	}
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(params.TimeoutSeconds) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	if err := workflow.ExecuteActivity(actx, ParseEmailExtractTextHeadersActivity, ParseEmailHeadersParams{
		CollectionDataset: params.CollectionDataset,
		EmailHash:         params.EmailHash,
		FilePath:          params.FilePath,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	var res TempDirResult
	if err := workflow.ExecuteActivity(actx, ExtractEmailAttachmentsToTempActivity, ExtractEmailAttachmentsParams{
		CollectionDataset: params.CollectionDataset,
		EmailHash:         params.EmailHash,
		FilePath:          params.FilePath,
		TimeoutSeconds:    params.TimeoutSeconds,
	}).Get(ctx, &res); err != nil {
		return "", err
	}

	if err := scanTempDirAsContainer(ctx, params.CollectionDataset, res.OutDir, params.EmailHash,
		fmt.Sprintf("scan-email-%s-%s", params.CollectionDataset, params.EmailHash)); err != nil {
		return "", err
	}

	if err := workflow.ExecuteActivity(actx, CleanupTempDirActivity,
		CleanupTempDirParams{OutDir: res.OutDir}).Get(ctx, nil); err != nil {
		return "", err
	}
	return res.OutDir, nil
}

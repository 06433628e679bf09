package parse

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"golang.org/x/crypto/sha3"
)

const (
	pdfSmallBytes = 64 * 1024 * 1024
	pdfSmallPages = 1000

	pdfChunkTargetBytes = 32 * 1024 * 1024
	pdfChunkTargetPages = 500
)

func runQpdf(ctx context.Context, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, "qpdf", args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return []byte(stdout.String()), []byte(stderr.String()), err
}

func qpdfShowNPages(ctx context.Context, path string) (int, error) {
	stdout, stderr, err := runQpdf(ctx, "--show-npages", path)
	if err != nil {
		return 0, fmt.Errorf("qpdf --show-npages failed: %s %s", truncate(stderr, 200), truncate(stdout, 200))
	}
	out := strings.TrimSpace(string(stdout))
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("invalid page count from qpdf: %q", out)
	}
	return n, nil
}

func qpdfJSON(ctx context.Context, path string) map[string]interface{} {
	stdout, _, err := runQpdf(ctx, "--json", path)
	if err != nil {
		return map[string]interface{}{}
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return map[string]interface{}{}
	}
	return meta
}

func maybePdftotext(ctx context.Context, path string) string {
	out, err := exec.CommandContext(ctx, "pdftotext", "-enc", "UTF-8", "-layout", path, "-").Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// extractImagesWithQpdf writes embedded images as img-<obj>-<gen>.<ext>
// files under outDir and returns their paths sorted.
func extractImagesWithQpdf(ctx context.Context, inputPDF, outDir string) []string {
	prefix := filepath.Join(outDir, "img")
	if _, _, err := runQpdf(ctx, "--extract-images="+prefix, inputPDF); err != nil {
		return nil
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), "img-") {
			files = append(files, filepath.Join(outDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// pagesPerChunk targets chunks of about 32 MiB or 500 pages, whichever
// yields more chunks, capped at 500 pages.
func pagesPerChunk(fileSizeBytes int64, pageCount int) int {
	if pageCount <= 0 {
		return pdfChunkTargetPages
	}
	chunksBySize := int(math.Ceil(float64(fileSizeBytes) / float64(pdfChunkTargetBytes)))
	if chunksBySize < 1 {
		chunksBySize = 1
	}
	chunksByPages := (pageCount + pdfChunkTargetPages - 1) / pdfChunkTargetPages
	if chunksByPages < 1 {
		chunksByPages = 1
	}
	chunks := chunksBySize
	if chunksByPages > chunks {
		chunks = chunksByPages
	}
	perChunk := (pageCount + chunks - 1) / chunks
	if perChunk < 1 {
		perChunk = 1
	}
	if perChunk > pdfChunkTargetPages {
		perChunk = pdfChunkTargetPages
	}
	return perChunk
}

// pdfCreationDate parses the Info dictionary CreationDate/ModDate, handling
// the "D:" prefix and both ISO and YYYYMMDDHHMMSS shapes.
func pdfCreationDate(info map[string]interface{}) (time.Time, bool) {
	raw := ""
	for _, key := range []string{"CreationDate", "ModDate"} {
		if v, ok := info[key].(string); ok && v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return time.Time{}, false
	}
	raw = strings.TrimPrefix(raw, "D:")
	if strings.Contains(raw, "-") || strings.Contains(raw, ":") {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, strings.Replace(raw, "Z", "+00:00", 1)); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if len(raw) >= 14 {
		if t, err := time.Parse("20060102150405", raw[:14]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PdfGetMetadataAndStore records the pdfs and pdf_metadata rows and returns
// the page count and file size used for routing.
func (a *Activities) PdfGetMetadataAndStore(ctx context.Context, params PdfMetaParams) (PdfMetaResult, error) {
	a.Log.Info("Getting pdf metadata", "file_path", params.FilePath)

	var sizeBytes int64
	if info, err := os.Stat(params.FilePath); err == nil {
		sizeBytes = info.Size()
	}
	pageCount, err := qpdfShowNPages(ctx, params.FilePath)
	if err != nil {
		return PdfMetaResult{}, err
	}
	meta := qpdfJSON(ctx, params.FilePath)

	var authorFields []string
	info, _ := meta["info"].(map[string]interface{})
	for _, k := range []string{"Author", "Creator", "Producer"} {
		if v, ok := info[k].(string); ok && v != "" {
			authorFields = append(authorFields, fmt.Sprintf("%s=%s", k, v))
		}
	}
	dateCreated := time.Unix(0, 0).UTC()
	if t, ok := pdfCreationDate(info); ok {
		dateCreated = t
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}
	now := time.Now().UTC()

	pdfBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO pdfs (collection_dataset, pdf_hash, page_count, word_count, author_metadata, date_created)")
	if err != nil {
		return PdfMetaResult{}, err
	}
	if err := pdfBatch.Append(params.CollectionDataset, params.PdfHash,
		uint32(pageCount), uint32(0), strings.Join(authorFields, "; "), dateCreated); err != nil {
		return PdfMetaResult{}, err
	}
	if err := pdfBatch.Send(); err != nil {
		return PdfMetaResult{}, fmt.Errorf("insert pdfs: %w", err)
	}

	metaBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO pdf_metadata (collection_dataset, hash, pdf_metadata_json, processed_at)")
	if err != nil {
		return PdfMetaResult{}, err
	}
	if err := metaBatch.Append(params.CollectionDataset, params.PdfHash, string(metaJSON), now); err != nil {
		return PdfMetaResult{}, err
	}
	if err := metaBatch.Send(); err != nil {
		return PdfMetaResult{}, fmt.Errorf("insert pdf_metadata: %w", err)
	}

	return PdfMetaResult{PageCount: pageCount, SizeBytes: sizeBytes}, nil
}

// PdfSmallExtractTextAndImages extracts the full text with pdftotext and
// embedded images with qpdf, linking images to the PDF in pdfs_image.
func (a *Activities) PdfSmallExtractTextAndImages(ctx context.Context, params PdfSmallParams) (TempDirResult, error) {
	a.Log.Info("Extracting pdf text and images", "file_path", params.FilePath)
	outDir, err := MakeTempDir(params.CollectionDataset, "pdf", params.PdfHash)
	if err != nil {
		return TempDirResult{}, err
	}

	if text := strings.TrimSpace(maybePdftotext(ctx, params.FilePath)); len(text) > 1 {
		if _, err := InsertTextChunks(ctx, a.CH, params.CollectionDataset, params.PdfHash, "qpdf", []byte(text), 0); err != nil {
			return TempDirResult{}, err
		}
	}

	imagePaths := extractImagesWithQpdf(ctx, params.FilePath, outDir)
	if len(imagePaths) > 0 {
		imgBatch, err := a.CH.Conn.PrepareBatch(ctx,
			"INSERT INTO image (collection_dataset, image_hash, width_pixels, height_pixels, image_metadata)")
		if err != nil {
			return TempDirResult{}, err
		}
		linkBatch, err := a.CH.Conn.PrepareBatch(ctx,
			"INSERT INTO pdfs_image (collection_dataset, pdf_hash, on_page, image_hash)")
		if err != nil {
			return TempDirResult{}, err
		}
		for idx, p := range imagePaths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			h := sha3.Sum256(data)
			imageHash := hex.EncodeToString(h[:])
			if err := imgBatch.Append(params.CollectionDataset, imageHash, uint32(0), uint32(0), ""); err != nil {
				return TempDirResult{}, err
			}
			// The extractor does not report source pages; approximate with the
			// sequential index clamped to the page range.
			onPage := idx
			if params.PageCount > 0 && onPage > params.PageCount-1 {
				onPage = params.PageCount - 1
			}
			if err := linkBatch.Append(params.CollectionDataset, params.PdfHash, uint32(onPage), imageHash); err != nil {
				return TempDirResult{}, err
			}
		}
		if err := imgBatch.Send(); err != nil {
			return TempDirResult{}, fmt.Errorf("insert image rows: %w", err)
		}
		if err := linkBatch.Send(); err != nil {
			return TempDirResult{}, fmt.Errorf("insert pdfs_image rows: %w", err)
		}
	}
	return TempDirResult{OutDir: outDir}, nil
}

// PdfLargeSplitToChunks splits an oversized PDF into page-range chunk files
// that re-enter the pipeline as container children.
func (a *Activities) PdfLargeSplitToChunks(ctx context.Context, params PdfLargeParams) (PdfLargeResult, error) {
	a.Log.Info("Splitting pdf into chunks", "file_path", params.FilePath)
	outDir, err := MakeTempDir(params.CollectionDataset, "pdfchunks", params.PdfHash)
	if err != nil {
		return PdfLargeResult{}, err
	}

	pageCount := params.PageCount
	if pageCount <= 0 {
		pageCount, err = qpdfShowNPages(ctx, params.FilePath)
		if err != nil {
			return PdfLargeResult{}, err
		}
	}
	perChunk := pagesPerChunk(params.SizeBytes, pageCount)

	var chunkFiles []string
	i := 0
	for a1 := 1; a1 <= pageCount; a1 += perChunk {
		b := a1 + perChunk - 1
		if b > pageCount {
			b = pageCount
		}
		i++
		dest := filepath.Join(outDir, fmt.Sprintf("chunk_%d_%d-%d.pdf", i, a1, b))
		stdout, stderr, err := runQpdf(ctx,
			"--empty", "--no-warn", "--warning-exit-0", "--deterministic-id",
			"--object-streams=generate", "--remove-unreferenced-resources=yes", "--no-original-object-ids",
			"--pages", params.FilePath, fmt.Sprintf("%d-%d", a1, b), "--", dest)
		if err != nil {
			return PdfLargeResult{}, fmt.Errorf("qpdf split failed for pages %d-%d: %s %s",
				a1, b, truncate(stderr, 200), truncate(stdout, 200))
		}
		chunkFiles = append(chunkFiles, dest)
	}
	return PdfLargeResult{OutDir: outDir, Chunks: chunkFiles}, nil
}

// PdfProcessingAndScan stores PDF metadata, extracts text and images for
// small PDFs or splits large ones into chunks, scans the output directory
// as a container, then cleans up.
func PdfProcessingAndScan(ctx workflow.Context, params PdfProcessingWorkflowParams) (string, error) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(params.TimeoutSeconds) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	var meta PdfMetaResult
	if err := workflow.ExecuteActivity(actx, PdfGetMetadataAndStoreActivity, PdfMetaParams{
		CollectionDataset: params.CollectionDataset,
		PdfHash:           params.PdfHash,
		FilePath:          params.FilePath,
	}).Get(ctx, &meta); err != nil {
		return "", err
	}

	// A PDF takes the small path when either its byte size or its page
	// count is under the limit; only files large on both axes are split.
	var outDir string
	if meta.SizeBytes < pdfSmallBytes || meta.PageCount < pdfSmallPages {
		var res TempDirResult
		if err := workflow.ExecuteActivity(actx, PdfSmallExtractTextAndImagesActivity, PdfSmallParams{
			CollectionDataset: params.CollectionDataset,
			PdfHash:           params.PdfHash,
			FilePath:          params.FilePath,
			PageCount:         meta.PageCount,
		}).Get(ctx, &res); err != nil {
			return "", err
		}
		outDir = res.OutDir
	} else {
		var res PdfLargeResult
		if err := workflow.ExecuteActivity(actx, PdfLargeSplitToChunksActivity, PdfLargeParams{
			CollectionDataset: params.CollectionDataset,
			PdfHash:           params.PdfHash,
			FilePath:          params.FilePath,
			PageCount:         meta.PageCount,
			SizeBytes:         meta.SizeBytes,
		}).Get(ctx, &res); err != nil {
			return "", err
		}
		outDir = res.OutDir
	}

	if outDir != "" {
		recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 10 * time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		})
		if err := workflow.ExecuteActivity(recordCtx, RecordArchiveContainerActivity, RecordArchiveContainerParams{
			CollectionDataset: params.CollectionDataset,
			ArchiveHash:       params.PdfHash,
			ArchiveTypes:      []string{"pdf"},
		}).Get(ctx, nil); err != nil {
			return "", err
		}

		if err := scanTempDirAsContainer(ctx, params.CollectionDataset, outDir, params.PdfHash,
			fmt.Sprintf("scan-pdf-%s-%s", params.CollectionDataset, params.PdfHash)); err != nil {
			return "", err
		}

		if err := workflow.ExecuteActivity(actx, CleanupTempDirActivity,
			CleanupTempDirParams{OutDir: outDir}).Get(ctx, nil); err != nil {
			return "", err
		}
	}
	return "ok", nil
}

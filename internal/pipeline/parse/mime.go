package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liquidinvestigations/hoover4/internal/filetype"
)

// collectFileValues parses the stdout of `file -k`. GNU file may emit
// multiple matches per line, "- " prefixed secondary matches, literal \012
// escapes instead of newlines, and "path: value" prefixes.
func collectFileValues(out string, isExtension bool) []string {
	out = strings.ReplaceAll(out, `\012`, "\n")
	out = strings.ReplaceAll(out, `\n`, "\n")
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	var vals []string
	for _, line := range strings.Split(out, "\n") {
		if idx := strings.Index(line, ": "); idx >= 0 {
			line = line[idx+2:]
		}
		line = strings.TrimLeft(line, " \t")
		line = strings.TrimPrefix(line, "- ")
		for _, txt := range strings.Split(line, "\n") {
			txt = strings.TrimSpace(txt)
			if txt == "" {
				continue
			}
			if isExtension {
				for _, p := range strings.Split(txt, "/") {
					p = strings.TrimSpace(p)
					if p == "" || strings.Contains(p, "?") {
						continue
					}
					if !strings.HasPrefix(p, ".") {
						p = "." + p
					}
					vals = append(vals, p)
				}
			} else {
				for _, token := range strings.Split(txt, " - ") {
					token = strings.TrimSpace(token)
					if token != "" {
						vals = append(vals, token)
					}
				}
			}
		}
	}
	return vals
}

func runFileCommand(ctx context.Context, args []string, isExtension bool) []string {
	out, err := exec.CommandContext(ctx, "file", args...).Output()
	if err != nil {
		return nil
	}
	return collectFileValues(string(out), isExtension)
}

// runFileMulti runs `file -k` for mime type, encoding and extension.
func runFileMulti(ctx context.Context, filePath string) (mimeTypes, encodings, extensions []string) {
	mimeSet := stringSet(runFileCommand(ctx, []string{"-k", "--mime-type", filePath}, false))
	encSet := stringSet(runFileCommand(ctx, []string{"-k", "--mime-encoding", filePath}, false))
	extSet := stringSet(runFileCommand(ctx, []string{"-k", "--extension", filePath}, true))

	if len(mimeSet) == 0 || len(encSet) == 0 {
		if guessed := mime.TypeByExtension(filepath.Ext(filePath)); guessed != "" {
			if idx := strings.Index(guessed, ";"); idx >= 0 {
				guessed = guessed[:idx]
			}
			mimeSet[strings.TrimSpace(guessed)] = true
		}
	}
	return sortedKeys(mimeSet), sortedKeys(encSet), sortedKeys(extSet)
}

// filenameExtensions returns the last extension and the full extension chain
// of the file name, lowercased (".gz" and ".tar.gz" for "a.tar.gz").
func filenameExtensions(filePath string) []string {
	base := strings.ToLower(filepath.Base(filePath))
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return nil
	}
	exts := []string{"." + parts[len(parts)-1]}
	full := "." + strings.Join(parts[1:], ".")
	if full != exts[0] {
		exts = append(exts, full)
	}
	return exts
}

func stringSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *Activities) insertFileTypes(ctx context.Context, collectionDataset, fileHash string, det DetectedTypes, extractedBy string) error {
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO file_types (collection_dataset, hash, mime_type, mime_encoding, file_type, extensions, extracted_by)")
	if err != nil {
		return err
	}
	if err := batch.Append(collectionDataset, fileHash,
		det.MimeTypes, det.MimeEncodings, det.CoarseTypes, det.Extensions, extractedBy); err != nil {
		return err
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert file_types (%s): %w", extractedBy, err)
	}
	return nil
}

// DetectMimeWithGNUFile detects types with `file`, records a file_types row
// and returns the detected lists.
func (a *Activities) DetectMimeWithGNUFile(ctx context.Context, params DetectMimeParams) (DetectedTypes, error) {
	mimeTypes, encodings, fileExts := runFileMulti(ctx, params.FilePath)

	coarseSet := make(map[string]bool)
	for _, m := range mimeTypes {
		coarseSet[filetype.Coarse(m)] = true
	}
	extSet := stringSet(append(fileExts, filenameExtensions(params.FilePath)...))

	det := DetectedTypes{
		MimeTypes:     mimeTypes,
		MimeEncodings: encodings,
		CoarseTypes:   sortedKeys(coarseSet),
		Extensions:    sortedKeys(extSet),
	}
	if err := a.insertFileTypes(ctx, params.CollectionDataset, params.FileHash, det, "file"); err != nil {
		return DetectedTypes{}, err
	}
	return det, nil
}

// magikaOutput matches the per-file object of `magika --json`. Newer
// releases nest the payload under result.value; older ones put it at the
// top level. Both shapes are decoded.
type magikaOutput struct {
	Path   string `json:"path"`
	Result struct {
		Value struct {
			Output magikaContentType `json:"output"`
		} `json:"value"`
	} `json:"result"`
	Output magikaContentType `json:"output"`
}

type magikaContentType struct {
	MimeType   string   `json:"mime_type"`
	Group      string   `json:"group"`
	Extensions []string `json:"extensions"`
}

func runMagika(ctx context.Context, filePath string) (magikaContentType, error) {
	out, err := exec.CommandContext(ctx, "magika", "--json", filePath).Output()
	if err != nil {
		return magikaContentType{}, fmt.Errorf("magika not available or failed: %w", err)
	}
	var results []magikaOutput
	if err := json.Unmarshal(out, &results); err != nil || len(results) == 0 {
		return magikaContentType{}, fmt.Errorf("magika output decode failed: %w", err)
	}
	ct := results[0].Result.Value.Output
	if ct.MimeType == "" && ct.Group == "" {
		ct = results[0].Output
	}
	return ct, nil
}

// DetectMimeWithMagika detects types with the magika CLI, records a
// file_types row and returns the detected lists.
func (a *Activities) DetectMimeWithMagika(ctx context.Context, params DetectMimeParams) (DetectedTypes, error) {
	ct, err := runMagika(ctx, params.FilePath)
	if err != nil {
		return DetectedTypes{}, err
	}

	mimeSet := make(map[string]bool)
	coarseSet := make(map[string]bool)
	extSet := make(map[string]bool)
	if ct.MimeType != "" {
		mimeSet[ct.MimeType] = true
		if mapped := filetype.Coarse(ct.MimeType); mapped != "" {
			coarseSet[mapped] = true
		}
	}
	if ct.Group != "" {
		coarseSet[filetype.FromMagikaGroup(strings.ToLower(ct.Group))] = true
	}
	for _, ext := range ct.Extensions {
		if ext == "" {
			continue
		}
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[ext] = true
	}

	det := DetectedTypes{
		MimeTypes:     sortedKeys(mimeSet),
		MimeEncodings: []string{},
		CoarseTypes:   sortedKeys(coarseSet),
		Extensions:    sortedKeys(extSet),
	}
	if err := a.insertFileTypes(ctx, params.CollectionDataset, params.FileHash, det, "magika"); err != nil {
		return DetectedTypes{}, err
	}
	return det, nil
}

package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/filetype"
)

// metaString returns a metadata value as a string; Tika emits multi-valued
// fields as arrays, in which case the first value wins.
func metaString(meta map[string]interface{}, key string) string {
	switch v := meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// RunTikaAndStore extracts text and metadata through the Tika server,
// stores the text chunks and a tika_metadata row, and records the types
// Tika detected.
func (a *Activities) RunTikaAndStore(ctx context.Context, params RunTikaParams) (DetectedTypes, error) {
	a.Log.Info("Running tika", "file_path", params.FilePath)

	text, err := a.Tika.ExtractText(ctx, params.FilePath, params.ContentType)
	if err != nil {
		return DetectedTypes{}, err
	}
	meta, err := a.Tika.Metadata(ctx, params.FilePath, params.ContentType)
	if err != nil {
		return DetectedTypes{}, err
	}

	if strings.TrimSpace(text) != "" {
		if _, err := InsertTextChunks(ctx, a.CH, params.CollectionDataset, params.FileHash, "tika", []byte(text), 0); err != nil {
			return DetectedTypes{}, err
		}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}
	metaBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO tika_metadata (collection_dataset, hash, tika_metadata_json, processed_at)")
	if err != nil {
		return DetectedTypes{}, err
	}
	if err := metaBatch.Append(params.CollectionDataset, params.FileHash, string(metaJSON), time.Now().UTC()); err != nil {
		return DetectedTypes{}, err
	}
	if err := metaBatch.Send(); err != nil {
		return DetectedTypes{}, fmt.Errorf("insert tika_metadata: %w", err)
	}

	mimeSet := make(map[string]bool)
	for _, key := range []string{"Content-Type", "content-type", "ContentType", "mime"} {
		if v := metaString(meta, key); v != "" {
			mimeSet[v] = true
		}
	}
	encSet := make(map[string]bool)
	for _, key := range []string{"Content-Encoding", "content-encoding", "encoding"} {
		if v := metaString(meta, key); v != "" {
			encSet[v] = true
		}
	}
	extSet := make(map[string]bool)
	for _, key := range []string{"resourceName", "X-Parsed-By-Filename", "filename"} {
		if v := metaString(meta, key); strings.Contains(v, ".") {
			for _, ext := range filenameExtensions(v) {
				extSet[ext] = true
			}
		}
	}
	coarseSet := make(map[string]bool)
	for m := range mimeSet {
		if c := filetype.Coarse(m); c != "" {
			coarseSet[c] = true
		}
	}

	det := DetectedTypes{
		MimeTypes:     sortedKeys(mimeSet),
		MimeEncodings: sortedKeys(encSet),
		CoarseTypes:   sortedKeys(coarseSet),
		Extensions:    sortedKeys(extSet),
	}
	if len(det.MimeTypes) > 0 || len(det.MimeEncodings) > 0 || len(det.CoarseTypes) > 0 || len(det.Extensions) > 0 {
		if err := a.insertFileTypes(ctx, params.CollectionDataset, params.FileHash, det, "tika"); err != nil {
			return DetectedTypes{}, err
		}
	}
	return det, nil
}

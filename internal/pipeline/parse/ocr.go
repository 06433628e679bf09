package parse

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunEasyOCRAndStore sends the image to the OCR sidecar, journals the raw
// response to raw_ocr_results, and stores the recognized text as chunks.
// This activity runs on its own throttled queue; the OCR model is GPU-bound.
func (a *Activities) RunEasyOCRAndStore(ctx context.Context, params RunEasyOCRParams) (string, error) {
	a.Log.Info("Running ocr", "file_path", params.FilePath)

	started := time.Now()
	result, raw, err := a.OCR.ReadImage(ctx, params.FilePath)
	if err != nil {
		return "", err
	}
	runTimeMS := time.Since(started).Milliseconds()
	if runTimeMS < 0 {
		runTimeMS = 0
	}

	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO raw_ocr_results (collection_dataset, image_hash, run_time_ms, raw_json)")
	if err != nil {
		return "", err
	}
	if err := batch.Append(params.CollectionDataset, params.FileHash, uint32(runTimeMS), string(raw)); err != nil {
		return "", err
	}
	if err := batch.Send(); err != nil {
		return "", fmt.Errorf("insert raw_ocr_results: %w", err)
	}

	var texts []string
	for _, item := range result.Items {
		if item.Text != "" {
			texts = append(texts, item.Text)
		}
	}
	if len(texts) > 0 {
		joined := strings.Join(texts, "\n")
		if _, err := InsertTextChunks(ctx, a.CH, params.CollectionDataset, params.FileHash, "easyocr", []byte(joined), 0); err != nil {
			return "", err
		}
	}
	return "ocr_ok", nil
}

package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ParseImageMetadataAndStore probes the image with ffprobe and records the
// image and image_metadata rows.
func (a *Activities) ParseImageMetadataAndStore(ctx context.Context, params ParseImageParams) (string, error) {
	a.Log.Info("Parsing image metadata", "file_path", params.FilePath)

	meta, err := ffprobeJSON(ctx, params.FilePath, time.Duration(params.TimeoutSeconds)*time.Second)
	if err != nil {
		return "", err
	}
	width, height := firstVideoResolution(meta)
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	imgBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO image (collection_dataset, image_hash, width_pixels, height_pixels, image_metadata)")
	if err != nil {
		return "", err
	}
	if err := imgBatch.Append(params.CollectionDataset, params.FileHash,
		uint32(width), uint32(height), string(metaJSON)); err != nil {
		return "", err
	}
	if err := imgBatch.Send(); err != nil {
		return "", fmt.Errorf("insert image: %w", err)
	}

	metaBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO image_metadata (collection_dataset, hash, image_metadata_json, processed_at)")
	if err != nil {
		return "", err
	}
	if err := metaBatch.Append(params.CollectionDataset, params.FileHash, string(metaJSON), time.Now().UTC()); err != nil {
		return "", err
	}
	if err := metaBatch.Send(); err != nil {
		return "", fmt.Errorf("insert image_metadata: %w", err)
	}
	return "image_ok", nil
}

package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ParseAudioMetadataAndStore probes the audio file with ffprobe and records
// an audio_metadata row with the derived duration.
func (a *Activities) ParseAudioMetadataAndStore(ctx context.Context, params ParseAudioParams) (string, error) {
	a.Log.Info("Parsing audio metadata", "file_path", params.FilePath)

	meta, err := ffprobeJSON(ctx, params.FilePath, time.Duration(params.TimeoutSeconds)*time.Second)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(map[string]interface{}{
		"ffprobe":          meta,
		"duration_seconds": mediaDuration(meta),
	})
	if err != nil {
		payload = []byte("{}")
	}

	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO audio_metadata (collection_dataset, hash, audio_metadata_json, processed_at)")
	if err != nil {
		return "", err
	}
	if err := batch.Append(params.CollectionDataset, params.FileHash, string(payload), time.Now().UTC()); err != nil {
		return "", err
	}
	if err := batch.Send(); err != nil {
		return "", fmt.Errorf("insert audio_metadata: %w", err)
	}
	return "audio_ok", nil
}

package parse

import (
	"context"
	"os"
)

// ExtractPlaintextChunks stores the raw file content as text chunks.
func (a *Activities) ExtractPlaintextChunks(ctx context.Context, params ExtractPlaintextParams) (int, error) {
	a.Log.Info("Extracting plaintext chunks", "file_path", params.FilePath)
	data, err := os.ReadFile(params.FilePath)
	if err != nil {
		return 0, err
	}
	return InsertTextChunks(ctx, a.CH, params.CollectionDataset, params.FileHash, "raw_text", data, 0)
}

package parse

import (
	"bytes"
	"context"
	"strings"

	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
)

// DefaultTextChunkBytes caps a single text_content row.
const DefaultTextChunkBytes = 32 * 1024 * 1024

// SplitUTF8Chunks splits raw bytes into strings of at most maxBytes each,
// dropping bytes that are not valid UTF-8.
func SplitUTF8Chunks(data []byte, maxBytes int) []string {
	var chunks []string
	for i := 0; i < len(data); i += maxBytes {
		end := i + maxBytes
		if end > len(data) {
			end = len(data)
		}
		seg := data[i:end]
		if len(seg) > 0 {
			chunks = append(chunks, strings.ToValidUTF8(string(seg), ""))
		}
	}
	return chunks
}

// InsertTextChunks splits extracted text into bounded UTF-8 chunks and
// inserts them into text_content with sequential page IDs starting at
// startPageID. Inputs shorter than 2 bytes after trimming are dropped.
// Returns the number of chunks inserted.
func InsertTextChunks(ctx context.Context, ch *clickhouse.DB, collectionDataset, fileHash, extractedBy string, data []byte, startPageID int) (int, error) {
	data = bytes.TrimSpace(data)
	if len(data) < 2 {
		return 0, nil
	}
	chunks := SplitUTF8Chunks(data, DefaultTextChunkBytes)
	if len(chunks) == 0 {
		return 0, nil
	}

	batch, err := ch.Conn.PrepareBatch(ctx,
		"INSERT INTO text_content (collection_dataset, file_hash, extracted_by, page_id, text)")
	if err != nil {
		return 0, err
	}
	for i, chunk := range chunks {
		if err := batch.Append(collectionDataset, fileHash, extractedBy, uint32(startPageID+i), chunk); err != nil {
			return 0, err
		}
	}
	if err := batch.Send(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

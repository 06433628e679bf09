package parse

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitUTF8ChunksSizes(t *testing.T) {
	data := []byte(strings.Repeat("a", 10))
	chunks := SplitUTF8Chunks(data, 4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "aaaa" || chunks[2] != "aa" {
		t.Fatalf("bad chunk content: %v", chunks)
	}
}

func TestSplitUTF8ChunksDropsInvalidBytes(t *testing.T) {
	data := []byte{'a', 0xff, 'b'}
	chunks := SplitUTF8Chunks(data, 10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !utf8.ValidString(chunks[0]) {
		t.Fatalf("chunk not valid UTF-8: %q", chunks[0])
	}
	if !strings.Contains(chunks[0], "a") || !strings.Contains(chunks[0], "b") {
		t.Fatalf("valid bytes lost: %q", chunks[0])
	}
}

func TestSplitUTF8ChunksMultibyteBoundary(t *testing.T) {
	// 3-byte runes split at a 4-byte boundary cut one rune in half.
	data := []byte(strings.Repeat("€", 4))
	for _, chunk := range SplitUTF8Chunks(data, 4) {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk not valid UTF-8: %q", chunk)
		}
	}
}

func TestSplitUTF8ChunksEmpty(t *testing.T) {
	if chunks := SplitUTF8Chunks(nil, 4); chunks != nil {
		t.Fatalf("expected nil for empty input, got %v", chunks)
	}
}

package temporalx

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStableChildIDDeterministic(t *testing.T) {
	type params struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	id1 := StableChildID("handle-folders", params{A: "x", B: "y"})
	id2 := StableChildID("handle-folders", params{A: "x", B: "y"})
	if id1 != id2 {
		t.Fatalf("same params produced different IDs: %s vs %s", id1, id2)
	}
	if !strings.HasPrefix(id1, "handle-folders-") {
		t.Fatalf("missing prefix: %s", id1)
	}
	if len(id1) != len("handle-folders-")+32 {
		t.Fatalf("expected 32 hex digest chars: %s", id1)
	}
}

func TestStableChildIDKeyOrderIndependent(t *testing.T) {
	type ab struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	type ba struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	if StableChildID("p", ab{A: "1", B: "2"}) != StableChildID("p", ba{A: "1", B: "2"}) {
		t.Fatal("field order changed the ID")
	}
}

func TestStableChildIDDiffersOnParams(t *testing.T) {
	type params struct {
		Hash string `json:"hash"`
	}
	if StableChildID("p", params{Hash: "a"}) == StableChildID("p", params{Hash: "b"}) {
		t.Fatal("different params produced the same ID")
	}
}

func TestFormatFailureChain(t *testing.T) {
	inner := errors.New("disk full")
	outer := fmt.Errorf("upload blob: %w", inner)
	out := FormatFailureChain(outer)

	if !strings.Contains(out, "[level 0]") || !strings.Contains(out, "[level 1]") {
		t.Fatalf("missing levels:\n%s", out)
	}
	if !strings.Contains(out, "upload blob: disk full") {
		t.Fatalf("missing outer message:\n%s", out)
	}
	if !strings.Contains(out, "message=disk full") {
		t.Fatalf("missing inner message:\n%s", out)
	}
}

func TestFormatFailureChainNil(t *testing.T) {
	if out := FormatFailureChain(nil); out != "" {
		t.Fatalf("expected empty string for nil, got %q", out)
	}
}

func TestQueueConcurrency(t *testing.T) {
	if got := QueueConcurrency(IndexingQueue); got != 1 {
		t.Fatalf("indexing concurrency = %d", got)
	}
	if got := QueueConcurrency(EasyOCRQueue); got != 4 {
		t.Fatalf("easyocr concurrency = %d", got)
	}
	if got := QueueConcurrency(CommonQueue); got != 8 {
		t.Fatalf("common concurrency = %d", got)
	}
	if got := QueueConcurrency(TikaQueue); got != 8 {
		t.Fatalf("tika concurrency = %d", got)
	}
}

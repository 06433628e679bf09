package parse

import (
	"testing"
	"time"
)

func TestPagesPerChunkNoPages(t *testing.T) {
	if got := pagesPerChunk(1000, 0); got != pdfChunkTargetPages {
		t.Fatalf("got %d", got)
	}
}

func TestPagesPerChunkSmallDoc(t *testing.T) {
	// One chunk fits everything.
	if got := pagesPerChunk(1024, 100); got != 100 {
		t.Fatalf("got %d", got)
	}
}

func TestPagesPerChunkSizeBound(t *testing.T) {
	// 100 MiB and 1200 pages: 4 chunks by size beats 3 chunks by pages.
	if got := pagesPerChunk(100*1024*1024, 1200); got != 300 {
		t.Fatalf("got %d", got)
	}
}

func TestPagesPerChunkPageBound(t *testing.T) {
	// Tiny file with many pages still splits at the page target.
	if got := pagesPerChunk(1024, 5000); got != pdfChunkTargetPages {
		t.Fatalf("got %d", got)
	}
}

func TestPdfCreationDateCompact(t *testing.T) {
	got, ok := pdfCreationDate(map[string]interface{}{"CreationDate": "D:20240115093000"})
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPdfCreationDateISO(t *testing.T) {
	got, ok := pdfCreationDate(map[string]interface{}{"CreationDate": "2024-01-15T09:30:00Z"})
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPdfCreationDateModDateFallback(t *testing.T) {
	got, ok := pdfCreationDate(map[string]interface{}{"ModDate": "D:20230601000000"})
	if !ok {
		t.Fatal("expected parse")
	}
	if got.Year() != 2023 {
		t.Fatalf("got %v", got)
	}
}

func TestPdfCreationDateMissing(t *testing.T) {
	if _, ok := pdfCreationDate(map[string]interface{}{}); ok {
		t.Fatal("expected no date")
	}
	if _, ok := pdfCreationDate(map[string]interface{}{"CreationDate": "garbage"}); ok {
		t.Fatal("expected parse failure")
	}
}

package execute

import (
	"testing"
	"time"
)

func TestSecondsForBytes(t *testing.T) {
	if got := secondsForBytes(900, 0, bps100k); got != 900*time.Second {
		t.Fatalf("got %v", got)
	}
	// 12500 bytes at 100 kbit/s is exactly one extra second.
	if got := secondsForBytes(900, 12_500, bps100k); got != 901*time.Second {
		t.Fatalf("got %v", got)
	}
	// Partial seconds round up.
	if got := secondsForBytes(900, 12_501, bps100k); got != 902*time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestDefaultBaseTempDir(t *testing.T) {
	dir := DefaultBaseTempDir()
	if dir == "" {
		t.Fatal("empty temp dir")
	}
}

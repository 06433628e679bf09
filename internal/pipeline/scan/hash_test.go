package scan

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/sha3"
)

func TestComputeFileHashes(t *testing.T) {
	content := []byte("hello hoover\n")
	path := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	hashes, size, err := ComputeFileHashes(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}

	sha3Sum := sha3.Sum256(content)
	if hashes.SHA3_256 != hex.EncodeToString(sha3Sum[:]) {
		t.Errorf("sha3-256 mismatch: %s", hashes.SHA3_256)
	}
	sha256Sum := sha256.Sum256(content)
	if hashes.SHA256 != hex.EncodeToString(sha256Sum[:]) {
		t.Errorf("sha256 mismatch: %s", hashes.SHA256)
	}
	md5Sum := md5.Sum(content)
	if hashes.MD5 != hex.EncodeToString(md5Sum[:]) {
		t.Errorf("md5 mismatch: %s", hashes.MD5)
	}
	sha1Sum := sha1.Sum(content)
	if hashes.SHA1 != hex.EncodeToString(sha1Sum[:]) {
		t.Errorf("sha1 mismatch: %s", hashes.SHA1)
	}
}

func TestComputeFileHashesMissingFile(t *testing.T) {
	if _, _, err := ComputeFileHashes(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

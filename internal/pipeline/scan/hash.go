package scan

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/sha3"
)

// FileHashes carries the primary identity hash (sha3-256) plus the
// secondary digests kept for interop with external tooling.
type FileHashes struct {
	SHA3_256 string
	SHA256   string
	MD5      string
	SHA1     string
}

// ComputeFileHashes reads the file once and feeds all four digests from the
// same pass, 8 MiB at a time.
func ComputeFileHashes(path string) (FileHashes, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileHashes{}, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hSHA3 := sha3.New256()
	hSHA256 := sha256.New()
	hMD5 := md5.New()
	hSHA1 := sha1.New()

	buf := make([]byte, 8*1024*1024)
	size, err := io.CopyBuffer(io.MultiWriter(hSHA3, hSHA256, hMD5, hSHA1), f, buf)
	if err != nil {
		return FileHashes{}, 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return FileHashes{
		SHA3_256: hex.EncodeToString(hSHA3.Sum(nil)),
		SHA256:   hex.EncodeToString(hSHA256.Sum(nil)),
		MD5:      hex.EncodeToString(hMD5.Sum(nil)),
		SHA1:     hex.EncodeToString(hSHA1.Sum(nil)),
	}, size, nil
}

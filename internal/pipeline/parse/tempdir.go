package parse

import (
	"fmt"
	"os"
	"path/filepath"
)

// MakeTempDir creates a scratch directory namespaced by dataset, of the form
// <tmp>/hoover4/<dataset>/<kind>_<hash>.
func MakeTempDir(collectionDataset, kind, fileHash string) (string, error) {
	outDir := filepath.Join(os.TempDir(), "hoover4", collectionDataset, fmt.Sprintf("%s_%s", kind, fileHash))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	return outDir, nil
}

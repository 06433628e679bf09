// Package scan implements the recursive disk ingestion phase: walking a
// dataset directory tree, hashing every file, and recording blobs plus the
// virtual filesystem rows that later phases read.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/store/s3blob"
)

type Activities struct {
	Log   *logger.Logger
	CH    *clickhouse.DB
	Blobs *s3blob.Client
}

// relToAbs maps a dataset-relative path ("/" rooted) back onto disk.
func relToAbs(datasetPath, rel string) string {
	if rel == "/" {
		return datasetPath
	}
	return filepath.Join(datasetPath, strings.TrimLeft(rel, "/"))
}

func statTimes(info fs.FileInfo) (mtime, ctime int64) {
	mtime = info.ModTime().Unix()
	ctime = mtime
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ctime = st.Ctim.Sec
	}
	return mtime, ctime
}

// ListDiskFolder lists one directory level. Symlinks are not followed, and
// entries whose paths are not valid UTF-8 cannot round-trip through the
// database, so they are skipped with a warning.
func (a *Activities) ListDiskFolder(ctx context.Context, params ListDiskFolderParams) (FolderListing, error) {
	listing := FolderListing{Dirs: []DirMeta{}, Files: []FileMeta{}}
	absDir := relToAbs(params.DatasetPath, params.FolderPath)
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return listing, nil
		}
		return listing, fmt.Errorf("list %s: %w", absDir, err)
	}

	for _, entry := range entries {
		absChild := filepath.Join(absDir, entry.Name())
		if !utf8.ValidString(absChild) {
			a.Log.Warn("Found path with non-utf8 bytes, skipping path from processing", "path", fmt.Sprintf("%q", absChild))
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between readdir and stat.
			continue
		}
		rel, err := filepath.Rel(params.DatasetPath, absChild)
		if err != nil {
			continue
		}
		relChild := "/" + filepath.ToSlash(rel)
		mtime, ctime := statTimes(info)
		switch {
		case entry.IsDir():
			listing.Dirs = append(listing.Dirs, DirMeta{Path: relChild, MTime: mtime, CTime: ctime})
		case entry.Type().IsRegular():
			listing.Files = append(listing.Files, FileMeta{Path: relChild, Size: info.Size(), MTime: mtime, CTime: ctime})
		}
	}
	return listing, nil
}

// InsertVfsDirectories inserts the directory rows that are not already
// recorded for this dataset and container.
func (a *Activities) InsertVfsDirectories(ctx context.Context, params InsertVfsDirectoriesParams) (int, error) {
	if len(params.DirPaths) == 0 {
		return 0, nil
	}
	existing, err := a.CH.StringSet(ctx,
		"SELECT path FROM vfs_directories WHERE collection_dataset = ? AND container_hash = ? AND path IN (?)",
		params.CollectionDataset, params.ContainerHash, params.DirPaths)
	if err != nil {
		return 0, fmt.Errorf("vfs_directories dedup: %w", err)
	}
	var toInsert []string
	for _, p := range params.DirPaths {
		if !existing[p] {
			toInsert = append(toInsert, p)
		}
	}
	if len(toInsert) == 0 {
		return 0, nil
	}
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO vfs_directories (collection_dataset, container_hash, path, user_id)")
	if err != nil {
		return 0, err
	}
	for _, p := range toInsert {
		if err := batch.Append(params.CollectionDataset, params.ContainerHash, p, "system"); err != nil {
			return 0, err
		}
	}
	if err := batch.Send(); err != nil {
		return 0, err
	}
	return len(toInsert), nil
}

// IngestFilesBatch hashes a batch of files and records blobs, blob values
// and vfs_files rows. Paths already present in vfs_files are skipped, blob
// content is deduplicated by hash, small blobs are stored inline in
// ClickHouse and large ones are uploaded to the object store.
func (a *Activities) IngestFilesBatch(ctx context.Context, params IngestFilesBatchParams) (string, error) {
	if len(params.FilePaths) == 0 {
		return "0 files (empty batch)", nil
	}

	existingPaths, err := a.CH.StringSet(ctx,
		"SELECT path FROM vfs_files WHERE collection_dataset = ? AND path IN (?)",
		params.CollectionDataset, params.FilePaths)
	if err != nil {
		return "", fmt.Errorf("vfs_files dedup: %w", err)
	}
	var todoPaths []string
	for _, p := range params.FilePaths {
		if !existingPaths[p] {
			todoPaths = append(todoPaths, p)
		}
	}
	if len(todoPaths) == 0 {
		return "0 files (all duplicates)", nil
	}

	hashes := make([]string, 0, len(todoPaths))
	sizes := make([]int64, 0, len(todoPaths))
	hashMeta := make(map[string]FileHashes, len(todoPaths))
	hashSize := make(map[string]int64, len(todoPaths))
	hashAbs := make(map[string]string, len(todoPaths))
	var uniqueHashes []string

	for _, rel := range todoPaths {
		absPath := relToAbs(params.DatasetPath, rel)
		hm, size, err := ComputeFileHashes(absPath)
		if err != nil {
			return "", err
		}
		hashes = append(hashes, hm.SHA3_256)
		sizes = append(sizes, size)
		if _, seen := hashMeta[hm.SHA3_256]; !seen {
			hashMeta[hm.SHA3_256] = hm
			hashSize[hm.SHA3_256] = size
			hashAbs[hm.SHA3_256] = absPath
			uniqueHashes = append(uniqueHashes, hm.SHA3_256)
		}
	}

	existingBlobs, err := a.CH.StringSet(ctx,
		"SELECT blob_hash FROM blobs WHERE collection_dataset = ? AND blob_hash IN (?)",
		params.CollectionDataset, uniqueHashes)
	if err != nil {
		return "", fmt.Errorf("blobs dedup: %w", err)
	}
	existingBlobValues, err := a.CH.StringSet(ctx,
		"SELECT blob_hash FROM blob_values WHERE collection_dataset = ? AND blob_hash IN (?)",
		params.CollectionDataset, uniqueHashes)
	if err != nil {
		return "", fmt.Errorf("blob_values dedup: %w", err)
	}

	blobBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO blobs (collection_dataset, blob_hash, blob_size_bytes, md5, sha1, sha256, s3_path, stored_in_clickhouse)")
	if err != nil {
		return "", err
	}
	valueBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO blob_values (collection_dataset, blob_hash, blob_length, blob_value)")
	if err != nil {
		return "", err
	}
	newBlobs, newValues := 0, 0
	for _, h := range uniqueHashes {
		if existingBlobs[h] {
			continue
		}
		hm := hashMeta[h]
		size := hashSize[h]
		if size <= SmallBlobThresholdBytes {
			if !existingBlobValues[h] {
				data, err := os.ReadFile(hashAbs[h])
				if err != nil {
					return "", fmt.Errorf("read small blob %s: %w", hashAbs[h], err)
				}
				if err := valueBatch.Append(params.CollectionDataset, h, uint64(size), string(data)); err != nil {
					return "", err
				}
				newValues++
			}
			if err := blobBatch.Append(params.CollectionDataset, h, uint64(size),
				hm.MD5, hm.SHA1, hm.SHA256, "", uint8(1)); err != nil {
				return "", err
			}
		} else {
			key := fmt.Sprintf("%s/%s", params.CollectionDataset, h)
			if err := a.Blobs.EnsureBucket(a.Blobs.Bucket); err != nil {
				return "", err
			}
			s3URI, err := a.Blobs.UploadFile(a.Blobs.Bucket, key, hashAbs[h])
			if err != nil {
				return "", err
			}
			if err := blobBatch.Append(params.CollectionDataset, h, uint64(size),
				hm.MD5, hm.SHA1, hm.SHA256, s3URI, uint8(0)); err != nil {
				return "", err
			}
		}
		newBlobs++
	}
	if err := blobBatch.Send(); err != nil {
		return "", err
	}
	if err := valueBatch.Send(); err != nil {
		return "", err
	}

	fileBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO vfs_files (collection_dataset, container_hash, path, hash, user_id, file_size_bytes)")
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(params.RootPathPrefix, "/")
	for i, rel := range todoPaths {
		finalPath := rel
		if params.RootPathPrefix != "" {
			finalPath = prefix + rel
		}
		if err := fileBatch.Append(params.CollectionDataset, params.ContainerHash,
			finalPath, hashes[i], "system", uint64(sizes[i])); err != nil {
			return "", err
		}
	}
	if err := fileBatch.Send(); err != nil {
		return "", err
	}

	a.Log.Debug("Ingested file batch",
		"collection_dataset", params.CollectionDataset,
		"files", len(todoPaths), "new_blobs", newBlobs, "inline_values", newValues)
	return fmt.Sprintf("ingested %d files (skipped %d)", len(todoPaths), len(existingPaths)), nil
}

// Package execute drives processing plans end to end: page through pending
// plans, stage each plan's blobs on local disk, fan out the per-file parse
// workflows, index the results, and mark the plan finished.
package execute

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/store/s3blob"
)

type Activities struct {
	Log   *logger.Logger
	CH    *clickhouse.DB
	Blobs *s3blob.Client
}

const s3DownloadConcurrency = 8

func planDir(baseTempDir, collectionDataset, planHash string) string {
	return filepath.Join(baseTempDir, collectionDataset, planHash)
}

// ListPendingPlans returns up to PlanPageSize+1 unfinished plan hashes in
// ascending order. The extra hash tells the caller a continuation is needed.
func (a *Activities) ListPendingPlans(ctx context.Context, params ListPendingPlansParams) ([]string, error) {
	sql := `
		SELECT p.plan_hash
		FROM processing_plans p
		WHERE p.collection_dataset = ?
		  AND NOT EXISTS (
		    SELECT 1 FROM processing_plan_finished f
		    WHERE f.collection_dataset = p.collection_dataset AND f.plan_hash = p.plan_hash
		  )`
	args := []interface{}{params.CollectionDataset}
	if params.StartingPlanHash != "" {
		sql += " AND p.plan_hash >= ?"
		args = append(args, params.StartingPlanHash)
	}
	sql += fmt.Sprintf(" ORDER BY p.plan_hash ASC LIMIT %d", PlanPageSize+1)
	hashes, err := a.CH.SelectStrings(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending plans: %w", err)
	}
	return hashes, nil
}

// GetPlanItemsMetadata joins the plan's hits with blob size and location.
func (a *Activities) GetPlanItemsMetadata(ctx context.Context, params GetPlanItemsMetadataParams) ([]PlanItem, error) {
	rows, err := a.CH.Conn.Query(ctx, `
		SELECT h.item_hash,
		       b.blob_size_bytes,
		       b.s3_path
		FROM processing_plan_hits h
		LEFT JOIN blobs b
		  ON b.collection_dataset = h.collection_dataset AND b.blob_hash = h.item_hash
		WHERE h.collection_dataset = ?
		  AND h.plan_hash = ?
		ORDER BY h.item_hash ASC`, params.CollectionDataset, params.PlanHash)
	if err != nil {
		return nil, fmt.Errorf("get plan items: %w", err)
	}
	defer rows.Close()
	items := []PlanItem{}
	for rows.Next() {
		var hash, s3Path string
		var size uint64
		if err := rows.Scan(&hash, &size, &s3Path); err != nil {
			return nil, err
		}
		items = append(items, PlanItem{ItemHash: hash, FileSizeBytes: int64(size), S3URL: s3Path})
	}
	return items, rows.Err()
}

// DownloadPlanFiles stages all plan blobs under the plan temp directory.
// S3-backed blobs are fetched from the object store; inline blobs come from
// blob_values in batches of 100. Every staged file is size-verified against
// the blobs table before the plan proceeds.
func (a *Activities) DownloadPlanFiles(ctx context.Context, params DownloadPlanFilesParams) (DownloadPlanFilesResult, error) {
	outDir := planDir(params.BaseTempDir, params.CollectionDataset, params.PlanHash)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return DownloadPlanFilesResult{}, err
	}

	var totalBytes int64
	for _, it := range params.Items {
		totalBytes += it.FileSizeBytes
	}
	a.Log.Info("Downloading plan files",
		"collection_dataset", params.CollectionDataset, "plan_hash", params.PlanHash,
		"files", len(params.Items), "total_mb", totalBytes/1024/1024)

	hashToPath := make(map[string]string, len(params.Items))
	fromS3 := make(map[string]bool)
	var chHashes []string
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s3DownloadConcurrency)
	for _, it := range params.Items {
		targetPath := filepath.Join(outDir, it.ItemHash)
		hashToPath[it.ItemHash] = targetPath
		if it.S3URL != "" {
			bucket, key := s3blob.ParseURL(it.S3URL)
			if bucket == "" || key == "" {
				a.Log.Warn("Invalid s3 url, falling back to clickhouse", "item_hash", it.ItemHash, "s3_url", it.S3URL)
				chHashes = append(chHashes, it.ItemHash)
				continue
			}
			fromS3[it.ItemHash] = true
			g.Go(func() error {
				return a.Blobs.DownloadFile(bucket, key, targetPath)
			})
		} else {
			chHashes = append(chHashes, it.ItemHash)
		}
	}
	if err := g.Wait(); err != nil {
		return DownloadPlanFilesResult{}, err
	}

	const fetchBatchSize = 100
	for i := 0; i < len(chHashes); i += fetchBatchSize {
		end := i + fetchBatchSize
		if end > len(chHashes) {
			end = len(chHashes)
		}
		batch := chHashes[i:end]
		rows, err := a.CH.Conn.Query(ctx,
			"SELECT blob_hash, blob_value FROM blob_values WHERE collection_dataset = ? AND blob_hash IN (?)",
			params.CollectionDataset, batch)
		if err != nil {
			return DownloadPlanFilesResult{}, fmt.Errorf("fetch inline blobs: %w", err)
		}
		for rows.Next() {
			var hash, value string
			if err := rows.Scan(&hash, &value); err != nil {
				rows.Close()
				return DownloadPlanFilesResult{}, err
			}
			target, ok := hashToPath[hash]
			if !ok {
				continue
			}
			if err := os.WriteFile(target, []byte(value), 0o644); err != nil {
				rows.Close()
				return DownloadPlanFilesResult{}, err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return DownloadPlanFilesResult{}, err
		}
		rows.Close()
	}

	for _, it := range params.Items {
		src := "clickhouse"
		if fromS3[it.ItemHash] {
			src = "s3"
		}
		info, err := os.Stat(hashToPath[it.ItemHash])
		if err != nil {
			return DownloadPlanFilesResult{}, fmt.Errorf(
				"downloaded file missing for %s/%s/%s from %s; expected %d bytes",
				params.CollectionDataset, params.PlanHash, it.ItemHash, src, it.FileSizeBytes)
		}
		if info.Size() != it.FileSizeBytes {
			return DownloadPlanFilesResult{}, fmt.Errorf(
				"size mismatch for %s/%s/%s from %s: expected %d bytes, got %d bytes at %s",
				params.CollectionDataset, params.PlanHash, it.ItemHash, src,
				it.FileSizeBytes, info.Size(), hashToPath[it.ItemHash])
		}
	}

	return DownloadPlanFilesResult{OutDir: outDir, Count: len(params.Items)}, nil
}

// CleanupPlanDir removes the plan's staging directory.
func (a *Activities) CleanupPlanDir(ctx context.Context, params CleanupPlanDirParams) (string, error) {
	outDir := planDir(params.BaseTempDir, params.CollectionDataset, params.PlanHash)
	a.Log.Info("Cleaning up plan dir", "collection_dataset", params.CollectionDataset, "plan_hash", params.PlanHash)
	if err := os.RemoveAll(outDir); err != nil {
		a.Log.Warn("Plan dir cleanup failed", "dir", outDir, "error", err)
	}
	return outDir, nil
}

func (a *Activities) EnsureTempDirExists(ctx context.Context, params EnsureTempDirExistsParams) (string, error) {
	if err := os.MkdirAll(params.BaseTempDir, 0o755); err != nil {
		return "", err
	}
	return params.BaseTempDir, nil
}

// MarkPlanFinished records plan completion; finished plans are excluded from
// later pending-plan listings.
func (a *Activities) MarkPlanFinished(ctx context.Context, params MarkPlanFinishedParams) (string, error) {
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO processing_plan_finished (collection_dataset, plan_hash, finished_at)")
	if err != nil {
		return "", err
	}
	if err := batch.Append(params.CollectionDataset, params.PlanHash, time.Now().UTC()); err != nil {
		return "", err
	}
	if err := batch.Send(); err != nil {
		return "", fmt.Errorf("mark plan finished: %w", err)
	}
	return params.PlanHash, nil
}

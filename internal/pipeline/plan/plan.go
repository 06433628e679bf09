// Package plan groups freshly ingested blobs into bounded processing plans.
// A plan is the unit of download, parse and index work for the later phases.
package plan

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
)

const (
	ComputePlansWorkflow = "ComputePlans"

	CountNewBlobsActivity = "count_new_blobs"
	ComputePlansActivity  = "compute_plans"
)

const (
	PlanMaxItems = 1000
	PlanMaxBytes = 1_000_000_000
)

type CountNewBlobsParams struct {
	CollectionDataset string `json:"collection_dataset"`
}

type ComputePlansParams struct {
	CollectionDataset string `json:"collection_dataset"`
}

type ComputePlansWorkflowParams struct {
	CollectionDataset string `json:"collection_dataset"`
}

type Activities struct {
	Log *logger.Logger
	CH  *clickhouse.DB
}

// PlanHash is the content address of a plan: sha1 over the compact JSON
// array of its sorted item hashes.
func PlanHash(itemHashes []string) (string, []string) {
	sorted := append([]string(nil), itemHashes...)
	sort.Strings(sorted)
	payload, _ := json.Marshal(sorted)
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:]), sorted
}

// CountNewBlobs counts blobs not yet assigned to any plan.
func (a *Activities) CountNewBlobs(ctx context.Context, params CountNewBlobsParams) (int, error) {
	n, err := a.CH.Count(ctx, `
		SELECT count()
		FROM blobs b
		WHERE b.collection_dataset = ?
		  AND NOT EXISTS (
		      SELECT 1
		      FROM processing_plan_hits h
		      WHERE h.collection_dataset = b.collection_dataset
		        AND h.item_hash = b.blob_hash
		  )`, params.CollectionDataset)
	if err != nil {
		return 0, fmt.Errorf("count new blobs: %w", err)
	}
	return int(n), nil
}

func (a *Activities) insertPlan(ctx context.Context, collectionDataset string, itemHashes []string, totalBytes uint64) error {
	planHash, sorted := PlanHash(itemHashes)
	now := time.Now().UTC()

	planBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO processing_plans (collection_dataset, plan_hash, item_hashes, plan_size_bytes, created_at)")
	if err != nil {
		return err
	}
	if err := planBatch.Append(collectionDataset, planHash, sorted, totalBytes, now); err != nil {
		return err
	}
	if err := planBatch.Send(); err != nil {
		return fmt.Errorf("insert processing_plans: %w", err)
	}

	hitsBatch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO processing_plan_hits (collection_dataset, item_hash, plan_hash)")
	if err != nil {
		return err
	}
	for _, h := range sorted {
		if err := hitsBatch.Append(collectionDataset, h, planHash); err != nil {
			return err
		}
	}
	if err := hitsBatch.Send(); err != nil {
		return fmt.Errorf("insert processing_plan_hits: %w", err)
	}
	return nil
}

// ComputePlans packs all unplanned blobs into plans, smallest first. The
// first blob of a plan is always accepted, so an oversized blob gets a plan
// of its own. Returns the number of items planned.
func (a *Activities) ComputePlans(ctx context.Context, params ComputePlansParams) (int, error) {
	rows, err := a.CH.Conn.Query(ctx, `
		SELECT b.blob_hash, b.blob_size_bytes
		FROM blobs b
		LEFT JOIN processing_plan_hits h
		  ON h.collection_dataset = b.collection_dataset AND h.item_hash = b.blob_hash
		WHERE b.collection_dataset = ?
		  AND h.item_hash = '' AND h.plan_hash = ''
		ORDER BY b.blob_size_bytes ASC`, params.CollectionDataset)
	if err != nil {
		return 0, fmt.Errorf("select unplanned blobs: %w", err)
	}
	defer rows.Close()

	plannedItems := 0
	var curHashes []string
	var curBytes uint64
	for rows.Next() {
		var hash string
		var size uint64
		if err := rows.Scan(&hash, &size); err != nil {
			return plannedItems, err
		}
		if len(curHashes) == 0 {
			curHashes = []string{hash}
			curBytes = size
			continue
		}
		if len(curHashes) >= PlanMaxItems || curBytes+size > PlanMaxBytes {
			if err := a.insertPlan(ctx, params.CollectionDataset, curHashes, curBytes); err != nil {
				return plannedItems, err
			}
			plannedItems += len(curHashes)
			curHashes = []string{hash}
			curBytes = size
		} else {
			curHashes = append(curHashes, hash)
			curBytes += size
		}
	}
	if err := rows.Err(); err != nil {
		return plannedItems, err
	}
	if len(curHashes) > 0 {
		if err := a.insertPlan(ctx, params.CollectionDataset, curHashes, curBytes); err != nil {
			return plannedItems, err
		}
		plannedItems += len(curHashes)
	}
	a.Log.Info("Computed processing plans", "collection_dataset", params.CollectionDataset, "planned_items", plannedItems)
	return plannedItems, nil
}

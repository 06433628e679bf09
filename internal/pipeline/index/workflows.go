package index

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// IndexDatasetPlan indexes all text and metadata of one finished plan. Text
// inserts go to the throttled indexing queue; metadata inserts stay on the
// common queue. Per-chunk failures are tolerated, retries at the next plan
// execution will re-index the same rows.
func IndexDatasetPlan(ctx workflow.Context, params IndexDatasetPlanParams) (string, error) {
	log := workflow.GetLogger(ctx)

	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	var planHashes []string
	if err := workflow.ExecuteActivity(fetchCtx, FetchPlanHashesActivity, params).Get(ctx, &planHashes); err != nil {
		return "", err
	}

	textCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 45 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
		TaskQueue:           temporalx.IndexingQueue,
	})
	metaCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 45 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})

	var futs []workflow.Future
	for start := 0; start < len(planHashes); start += IndexingChunkSize {
		end := start + IndexingChunkSize
		if end > len(planHashes) {
			end = len(planHashes)
		}
		chunkParams := IndexTextContentParams{
			CollectionDataset: params.CollectionDataset,
			PlanHash:          params.PlanHash,
			Hashes:            planHashes[start:end],
		}
		futs = append(futs, workflow.ExecuteActivity(textCtx, IndexTextContentActivity, chunkParams))
		futs = append(futs, workflow.ExecuteActivity(metaCtx, IndexMetadatasActivity, chunkParams))
	}
	for _, fut := range futs {
		if err := fut.Get(ctx, nil); err != nil {
			log.Error("Indexing chunk failed", "error", err)
		}
	}
	log.Info("Done: Indexing dataset plan",
		"collection_dataset", params.CollectionDataset, "plan_hash", params.PlanHash)
	return "indexed " + params.PlanHash, nil
}

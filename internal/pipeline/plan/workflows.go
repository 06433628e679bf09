package plan

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// ComputePlans counts the unplanned blobs, then runs the packing activity
// with a time budget scaled to the count (60s base plus one second per 4000
// blobs).
func ComputePlans(ctx workflow.Context, params ComputePlansWorkflowParams) (string, error) {
	log := workflow.GetLogger(ctx)

	countCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var count int
	if err := workflow.ExecuteActivity(countCtx, CountNewBlobsActivity,
		CountNewBlobsParams{CollectionDataset: params.CollectionDataset}).Get(ctx, &count); err != nil {
		return "", err
	}
	if count == 0 {
		log.Info("No new blobs, skipping plan computation", "collection_dataset", params.CollectionDataset)
		return "no-op", nil
	}

	timeBudget := time.Duration(60+(count+3999)/4000) * time.Second
	computeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeBudget,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var planned int
	if err := workflow.ExecuteActivity(computeCtx, ComputePlansActivity,
		ComputePlansParams{CollectionDataset: params.CollectionDataset}).Get(ctx, &planned); err != nil {
		return "", err
	}
	log.Info("Computed plans", "collection_dataset", params.CollectionDataset, "planned_items", planned)
	return fmt.Sprintf("planned %d items", planned), nil
}

// SubmitComputePlans runs the plan computation workflow to completion.
func SubmitComputePlans(ctx context.Context, log *logger.Logger, tc client.Client, collectionDataset string) error {
	log.Info("Starting plan computation", "collection_dataset", collectionDataset)
	run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("compute-plans-%s", collectionDataset),
		TaskQueue:                temporalx.CommonQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, ComputePlansWorkflow, ComputePlansWorkflowParams{CollectionDataset: collectionDataset})
	if err != nil {
		return fmt.Errorf("start compute-plans workflow: %w", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		return fmt.Errorf("compute-plans workflow failed: %w", err)
	}
	log.Info("Finished plan computation", "collection_dataset", collectionDataset)
	return nil
}

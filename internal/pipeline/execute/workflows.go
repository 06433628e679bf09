package execute

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/pipeline/index"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/journal"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/parse"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/plan"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// Assumed transfer speed for dynamic timeouts, in bytes per second.
const bps100k = 100_000 / 8

func secondsForBytes(base int, totalBytes int64, bytesPerSecond int) time.Duration {
	secs := base + int(math.Ceil(float64(totalBytes)/float64(bytesPerSecond)))
	return time.Duration(secs) * time.Second
}

// ExecutePlans pages through pending plans and runs them PlanConcurrency at
// a time. When a page fills up it continues from the next hash via a child
// run; when the dataset produced new blobs (unpacked containers) it computes
// fresh plans and restarts, bounded by MaxRecursivityDepth.
func ExecutePlans(ctx workflow.Context, params ExecutePlansParams) (string, error) {
	log := workflow.GetLogger(ctx)
	depth := params.RecursivityDepth
	if depth > MaxRecursivityDepth {
		return "", temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("recursivity_depth too large: %d", depth), "RecursivityDepthExceeded", nil)
	}

	ensureCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 12 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if err := workflow.ExecuteActivity(ensureCtx, EnsureTempDirExistsActivity,
		EnsureTempDirExistsParams{BaseTempDir: params.BaseTempDir}).Get(ctx, nil); err != nil {
		return "", err
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var planHashes []string
	if err := workflow.ExecuteActivity(listCtx, ListPendingPlansActivity, ListPendingPlansParams{
		CollectionDataset: params.CollectionDataset,
		StartingPlanHash:  params.StartingPlanHash,
	}).Get(ctx, &planHashes); err != nil {
		return "", err
	}

	if len(planHashes) == 0 {
		var count int
		if err := workflow.ExecuteActivity(listCtx, plan.CountNewBlobsActivity,
			plan.CountNewBlobsParams{CollectionDataset: params.CollectionDataset}).Get(ctx, &count); err != nil {
			return "", err
		}
		if count > 0 {
			if err := runComputePlansChild(ctx, params.CollectionDataset); err != nil {
				return "", err
			}
			return runExecutePlansChild(ctx, ExecutePlansParams{
				CollectionDataset: params.CollectionDataset,
				BaseTempDir:       params.BaseTempDir,
				RecursivityDepth:  depth + 1,
			}, fmt.Sprintf("execute-plans-%s-restart", params.CollectionDataset))
		}
		log.Info("No plans to execute", "collection_dataset", params.CollectionDataset)
		return "no plans", nil
	}

	continuationHash := ""
	if len(planHashes) > PlanPageSize {
		continuationHash = planHashes[PlanPageSize]
		planHashes = planHashes[:PlanPageSize]
		log.Info("Plan page full, will continue", "continuation_hash", continuationHash)
	}

	for i := 0; i < len(planHashes); i += PlanConcurrency {
		end := i + PlanConcurrency
		if end > len(planHashes) {
			end = len(planHashes)
		}
		var futs []workflow.ChildWorkflowFuture
		for _, ph := range planHashes[i:end] {
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: fmt.Sprintf("execute-plan-%s-%s", params.CollectionDataset, ph),
				TaskQueue:  temporalx.CommonQueue,
			})
			futs = append(futs, workflow.ExecuteChildWorkflow(cctx, ExecuteSinglePlanWorkflow, ExecuteSinglePlanParams{
				CollectionDataset: params.CollectionDataset,
				PlanHash:          ph,
				BaseTempDir:       params.BaseTempDir,
			}))
		}
		for _, fut := range futs {
			if err := fut.Get(ctx, nil); err != nil {
				return "", err
			}
		}
	}

	if continuationHash != "" {
		return runExecutePlansChild(ctx, ExecutePlansParams{
			CollectionDataset: params.CollectionDataset,
			BaseTempDir:       params.BaseTempDir,
			StartingPlanHash:  continuationHash,
			RecursivityDepth:  depth + 1,
		}, fmt.Sprintf("execute-plans-%s-cont-%s", params.CollectionDataset, continuationHash))
	}

	var count int
	if err := workflow.ExecuteActivity(listCtx, plan.CountNewBlobsActivity,
		plan.CountNewBlobsParams{CollectionDataset: params.CollectionDataset}).Get(ctx, &count); err != nil {
		return "", err
	}
	if count > 0 {
		if err := runComputePlansChild(ctx, params.CollectionDataset); err != nil {
			return "", err
		}
		result, err := runExecutePlansChild(ctx, ExecutePlansParams{
			CollectionDataset: params.CollectionDataset,
			BaseTempDir:       params.BaseTempDir,
			RecursivityDepth:  depth + 1,
		}, fmt.Sprintf("execute-plans-%s-restart-%d", params.CollectionDataset, depth+1))
		if err != nil {
			log.Error("Error executing restart plans", "error", err)
			return fmt.Sprintf("error executing restart plans: %v", err), nil
		}
		return result, nil
	}

	return fmt.Sprintf("executed %d plans", len(planHashes)), nil
}

func runComputePlansChild(ctx workflow.Context, collectionDataset string) error {
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: fmt.Sprintf("compute-plans-%s", collectionDataset),
		TaskQueue:  temporalx.CommonQueue,
	})
	return workflow.ExecuteChildWorkflow(cctx, plan.ComputePlansWorkflow,
		plan.ComputePlansWorkflowParams{CollectionDataset: collectionDataset}).Get(ctx, nil)
}

func runExecutePlansChild(ctx workflow.Context, params ExecutePlansParams, workflowID string) (string, error) {
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: workflowID,
		TaskQueue:  temporalx.CommonQueue,
	})
	var result string
	err := workflow.ExecuteChildWorkflow(cctx, ExecutePlansWorkflow, params).Get(ctx, &result)
	return result, err
}

// ExecuteSinglePlan stages one plan's files, parses them, indexes the
// results and marks the plan finished.
func ExecuteSinglePlan(ctx workflow.Context, params ExecuteSinglePlanParams) (string, error) {
	log := workflow.GetLogger(ctx)
	log.Info("Executing plan", "collection_dataset", params.CollectionDataset, "plan_hash", params.PlanHash)

	metaCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 20 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var items []PlanItem
	if err := workflow.ExecuteActivity(metaCtx, GetPlanItemsMetadataActivity, GetPlanItemsMetadataParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
	}).Get(ctx, &items); err != nil {
		return "", err
	}

	var totalBytes int64
	for _, it := range items {
		totalBytes += it.FileSizeBytes
	}

	dlCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: secondsForBytes(900, totalBytes, bps100k),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var dl DownloadPlanFilesResult
	if err := workflow.ExecuteActivity(dlCtx, DownloadPlanFilesActivity, DownloadPlanFilesParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
		Items:             items,
		BaseTempDir:       params.BaseTempDir,
	}).Get(ctx, &dl); err != nil {
		return "", err
	}

	procCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: fmt.Sprintf("process-batches-%s-%s", params.CollectionDataset, params.PlanHash),
		TaskQueue:  temporalx.CommonQueue,
	})
	if err := workflow.ExecuteChildWorkflow(procCtx, ProcessItemsBatchedWorkflow, ProcessItemsBatchedParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
		OutDir:            dl.OutDir,
		Items:             items,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	cleanupCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: secondsForBytes(900, totalBytes, bps100k),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if err := workflow.ExecuteActivity(cleanupCtx, CleanupPlanDirActivity, CleanupPlanDirParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
		BaseTempDir:       params.BaseTempDir,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	idxCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: fmt.Sprintf("index-dataset-plan-%s-%s", params.CollectionDataset, params.PlanHash),
		TaskQueue:  temporalx.CommonQueue,
	})
	if err := workflow.ExecuteChildWorkflow(idxCtx, index.IndexDatasetPlanWorkflow, index.IndexDatasetPlanParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	finishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 25 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if err := workflow.ExecuteActivity(finishCtx, MarkPlanFinishedActivity, MarkPlanFinishedParams{
		CollectionDataset: params.CollectionDataset,
		PlanHash:          params.PlanHash,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	log.Info("Finished plan", "collection_dataset", params.CollectionDataset, "plan_hash", params.PlanHash)
	return fmt.Sprintf("finished %s", params.PlanHash), nil
}

// ProcessItemsBatched runs the per-file parse workflows in parallel batches.
// Failures are journaled and do not fail the plan.
func ProcessItemsBatched(ctx workflow.Context, params ProcessItemsBatchedParams) (string, error) {
	if len(params.Items) == 0 {
		return "no items", nil
	}

	processed := 0
	for i := 0; i < len(params.Items); i += ItemConcurrency {
		end := i + ItemConcurrency
		if end > len(params.Items) {
			end = len(params.Items)
		}
		batch := params.Items[i:end]
		var futs []workflow.ChildWorkflowFuture
		var starts []time.Time
		var itemHashes []string
		var taskIDs []string
		for _, it := range batch {
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: fmt.Sprintf("parse-file-%s-%s-%s", params.CollectionDataset, params.PlanHash, it.ItemHash),
				TaskQueue:  temporalx.CommonQueue,
			})
			futs = append(futs, workflow.ExecuteChildWorkflow(cctx, parse.ParseSingleFileWorkflow, parse.ParseSingleFileParams{
				CollectionDataset: params.CollectionDataset,
				PlanHash:          params.PlanHash,
				ItemHash:          it.ItemHash,
				FilePath:          filepath.Join(params.OutDir, it.ItemHash),
				FileSizeBytes:     it.FileSizeBytes,
			}))
			starts = append(starts, workflow.Now(ctx))
			itemHashes = append(itemHashes, it.ItemHash)
			taskIDs = append(taskIDs, "P3_ParseSingleFile")
		}

		results := make([]error, len(futs))
		for j, fut := range futs {
			results[j] = fut.Get(ctx, nil)
		}
		if _, err := journal.RecordErrorsFromResults(ctx, results, taskIDs, starts,
			params.CollectionDataset, itemHashes, 0); err != nil {
			return "", err
		}
		processed += len(batch)
	}
	return fmt.Sprintf("processed %d items", processed), nil
}

// DefaultBaseTempDir is the staging root used by plan execution.
func DefaultBaseTempDir() string {
	return filepath.Join(os.TempDir(), "hoover4")
}

// SubmitExecutePlans runs the plan execution workflow to completion.
func SubmitExecutePlans(ctx context.Context, log *logger.Logger, tc client.Client, collectionDataset string) error {
	log.Info("Starting execute plans", "collection_dataset", collectionDataset)
	run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("execute-plans-%s", collectionDataset),
		TaskQueue:                temporalx.CommonQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, ExecutePlansWorkflow, ExecutePlansParams{
		CollectionDataset: collectionDataset,
		BaseTempDir:       DefaultBaseTempDir(),
	})
	if err != nil {
		return fmt.Errorf("start execute-plans workflow: %w", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		return fmt.Errorf("execute-plans workflow failed: %w", err)
	}
	log.Info("Finished execute plans", "collection_dataset", collectionDataset)
	return nil
}

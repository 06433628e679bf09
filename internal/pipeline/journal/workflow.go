package journal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// RecordErrorsFromResults builds journal rows from a batch of child results
// and inserts them via the journal activity. Call only from workflow code.
func RecordErrorsFromResults(
	ctx workflow.Context,
	results []error,
	taskIDs []string,
	starts []time.Time,
	collectionDataset string,
	itemHashes []string,
	timeoutSeconds int,
) (int, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}
	now := workflow.Now(ctx)
	var rows []ErrorRow
	for i, res := range results {
		if res == nil {
			continue
		}
		started := now
		if i < len(starts) {
			started = starts[i]
		}
		durMS := now.Sub(started).Milliseconds()
		if durMS < 0 {
			durMS = 0
		}
		taskName := "unknown_task"
		if i < len(taskIDs) {
			taskName = taskIDs[i]
		}
		itemHash := ""
		if i < len(itemHashes) {
			itemHash = itemHashes[i]
		}
		rows = append(rows, ErrorRow{
			CollectionDataset: collectionDataset,
			Hash:              itemHash,
			TaskName:          taskName,
			RunTimeMS:         durMS,
			ErrorLogs:         temporalx.FormatFailureChain(res),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeoutSeconds) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if err := workflow.ExecuteActivity(actx, RecordProcessingErrorsActivity,
		RecordProcessingErrorsParams{Errors: rows}).Get(ctx, nil); err != nil {
		return 0, err
	}
	return len(rows), nil
}

package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

func TestRecordErrorsFromResults(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	var mu sync.Mutex
	var recorded []ErrorRow
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params RecordProcessingErrorsParams) (int, error) {
			mu.Lock()
			recorded = append(recorded, params.Errors...)
			mu.Unlock()
			return len(params.Errors), nil
		},
		activity.RegisterOptions{Name: RecordProcessingErrorsActivity},
	)

	wf := func(ctx workflow.Context) (int, error) {
		results := []error{
			errors.New("archive corrupt"),
			nil,
			errors.New("ffprobe timeout"),
		}
		taskIDs := []string{"archive_scan", "extract_plaintext_chunks", "video_process"}
		starts := []time.Time{workflow.Now(ctx), workflow.Now(ctx), workflow.Now(ctx)}
		hashes := []string{"h1", "h2", "h3"}
		return RecordErrorsFromResults(ctx, results, taskIDs, starts, "testdata", hashes, 0)
	}

	env.ExecuteWorkflow(wf)
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var count int
	if err := env.GetWorkflowResult(&count); err != nil {
		t.Fatalf("result: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 journaled rows, got %d", count)
	}
	if len(recorded) != 2 {
		t.Fatalf("activity saw %d rows", len(recorded))
	}
	if recorded[0].TaskName != "archive_scan" || recorded[0].Hash != "h1" {
		t.Fatalf("row 0: %+v", recorded[0])
	}
	if recorded[1].TaskName != "video_process" || recorded[1].Hash != "h3" {
		t.Fatalf("row 1: %+v", recorded[1])
	}
	if !strings.Contains(recorded[0].ErrorLogs, "archive corrupt") {
		t.Fatalf("error text missing: %q", recorded[0].ErrorLogs)
	}
	if recorded[0].CollectionDataset != "testdata" {
		t.Fatalf("dataset: %q", recorded[0].CollectionDataset)
	}
}

func TestRecordErrorsFromResultsAllNil(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	called := false
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params RecordProcessingErrorsParams) (int, error) {
			called = true
			return 0, nil
		},
		activity.RegisterOptions{Name: RecordProcessingErrorsActivity},
	)

	wf := func(ctx workflow.Context) (int, error) {
		return RecordErrorsFromResults(ctx, []error{nil, nil}, []string{"a", "b"},
			[]time.Time{workflow.Now(ctx), workflow.Now(ctx)}, "testdata", []string{"h1", "h2"}, 0)
	}

	env.ExecuteWorkflow(wf)
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var count int
	if err := env.GetWorkflowResult(&count); err != nil {
		t.Fatalf("result: %v", err)
	}
	if count != 0 || called {
		t.Fatalf("expected no journal insert, count=%d called=%v", count, called)
	}
}

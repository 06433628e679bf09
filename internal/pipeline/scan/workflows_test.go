package scan

import (
	"context"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func TestBatchStrings(t *testing.T) {
	got := batchStrings([]string{"a", "b", "c", "d", "e"}, 2)
	if len(got) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(got))
	}
	if len(got[0]) != 2 || len(got[1]) != 2 || len(got[2]) != 1 {
		t.Fatalf("bad batch sizes: %v", got)
	}
	if got := batchStrings(nil, 2); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestBatchFilesBySizeCountCap(t *testing.T) {
	var files []FileMeta
	for i := 0; i < 7; i++ {
		files = append(files, FileMeta{Path: "/f", Size: 1})
	}
	batches := batchFilesBySize(files, 3, 1000)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 3 || len(batches[1]) != 3 || len(batches[2]) != 1 {
		t.Fatalf("bad batch sizes: %d %d %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestBatchFilesBySizeByteCap(t *testing.T) {
	files := []FileMeta{
		{Path: "/a", Size: 60},
		{Path: "/b", Size: 60},
		{Path: "/c", Size: 60},
	}
	batches := batchFilesBySize(files, 100, 100)
	if len(batches) != 3 {
		t.Fatalf("expected one batch per file, got %d", len(batches))
	}
}

func TestBatchFilesBySizeOversized(t *testing.T) {
	files := []FileMeta{
		{Path: "/small1", Size: 10},
		{Path: "/huge", Size: 5000},
		{Path: "/small2", Size: 10},
	}
	batches := batchFilesBySize(files, 100, 100)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[1]) != 1 || batches[1][0].Path != "/huge" {
		t.Fatalf("oversized file should get its own batch: %v", batches[1])
	}
}

func TestSlugifyDatasetName(t *testing.T) {
	cases := map[string]string{
		"testdata":       "testdata",
		"Test Data 2024": "test_data_2024",
		"a--b..c":        "a_b_c",
		"  spaces  ":     "spaces",
		"":               "dataset",
		"!!!":            "dataset",
	}
	for in, want := range cases {
		if got := SlugifyDatasetName(in); got != want {
			t.Errorf("SlugifyDatasetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleFilesWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	var gotParams IngestFilesBatchParams
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IngestFilesBatchParams) (string, error) {
			gotParams = params
			return "ingested 2 files (skipped 0)", nil
		},
		activity.RegisterOptions{Name: IngestFilesBatchActivity},
	)

	params := HandleFilesParams{
		CollectionDataset: "testdata",
		DatasetPath:       "/data/testdata",
		FilePaths:         []string{"/a.txt", "/b.txt"},
	}
	env.ExecuteWorkflow(HandleFiles, params)

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var result string
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if result != "ingested 2 files (skipped 0)" {
		t.Fatalf("unexpected result: %q", result)
	}
	if gotParams.CollectionDataset != "testdata" || len(gotParams.FilePaths) != 2 {
		t.Fatalf("activity saw wrong params: %+v", gotParams)
	}
}

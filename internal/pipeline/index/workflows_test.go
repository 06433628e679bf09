package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func TestIndexDatasetPlanChunksWork(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	hashes := make([]string, 150)
	for i := range hashes {
		hashes[i] = fmt.Sprintf("hash%03d", i)
	}

	var mu sync.Mutex
	var textCalls, metaCalls int
	var textHashes int

	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexDatasetPlanParams) ([]string, error) {
			return hashes, nil
		},
		activity.RegisterOptions{Name: FetchPlanHashesActivity},
	)
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexTextContentParams) (string, error) {
			mu.Lock()
			textCalls++
			textHashes += len(params.Hashes)
			mu.Unlock()
			return "ok", nil
		},
		activity.RegisterOptions{Name: IndexTextContentActivity},
	)
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexTextContentParams) (string, error) {
			mu.Lock()
			metaCalls++
			mu.Unlock()
			return "ok", nil
		},
		activity.RegisterOptions{Name: IndexMetadatasActivity},
	)

	env.ExecuteWorkflow(IndexDatasetPlan, IndexDatasetPlanParams{
		CollectionDataset: "testdata",
		PlanHash:          "abc123",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "indexed abc123", result)
	require.Equal(t, 2, textCalls, "text chunks")
	require.Equal(t, 2, metaCalls, "metadata chunks")
	require.Equal(t, len(hashes), textHashes, "every hash reaches the text indexer")
}

func TestIndexDatasetPlanToleratesChunkFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexDatasetPlanParams) ([]string, error) {
			return []string{"h1"}, nil
		},
		activity.RegisterOptions{Name: FetchPlanHashesActivity},
	)
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexTextContentParams) (string, error) {
			return "", fmt.Errorf("manticore unavailable")
		},
		activity.RegisterOptions{Name: IndexTextContentActivity},
	)
	env.RegisterActivityWithOptions(
		func(ctx context.Context, params IndexTextContentParams) (string, error) {
			return "ok", nil
		},
		activity.RegisterOptions{Name: IndexMetadatasActivity},
	)

	env.ExecuteWorkflow(IndexDatasetPlan, IndexDatasetPlanParams{
		CollectionDataset: "testdata",
		PlanHash:          "abc123",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError(), "chunk failure should not fail the workflow")
}

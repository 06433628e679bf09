package parse

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/pipeline/scan"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// ExtractArchiveToTemp unpacks an archive into a scratch directory with 7z.
func (a *Activities) ExtractArchiveToTemp(ctx context.Context, params ExtractArchiveParams) (TempDirResult, error) {
	outDir, err := MakeTempDir(params.CollectionDataset, "extract", params.ArchiveHash)
	if err != nil {
		return TempDirResult{}, err
	}
	a.Log.Info("Extracting archive", "out_dir", outDir)

	cmd := exec.CommandContext(ctx, "7z", "x", "-y", "-o"+outDir, params.ArchivePath)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return TempDirResult{}, fmt.Errorf("7z extraction failed for %s: %s\n%s",
			params.ArchivePath, truncate([]byte(stderr.String()), 200), truncate([]byte(stdout.String()), 200))
	}
	return TempDirResult{OutDir: outDir}, nil
}

// RecordArchiveContainer inserts a container row linking extracted children
// back to the archive blob.
func (a *Activities) RecordArchiveContainer(ctx context.Context, params RecordArchiveContainerParams) (string, error) {
	a.Log.Info("Recording archive container", "archive_hash", params.ArchiveHash)
	var types []string
	for _, t := range params.ArchiveTypes {
		if t != "" {
			types = append(types, t)
		}
	}
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO archives (collection_dataset, archive_hash, archive_type)")
	if err != nil {
		return "", err
	}
	if err := batch.Append(params.CollectionDataset, params.ArchiveHash, strings.Join(types, " ")); err != nil {
		return "", err
	}
	if err := batch.Send(); err != nil {
		return "", fmt.Errorf("insert archives: %w", err)
	}
	return params.ArchiveHash, nil
}

// CleanupTempDir removes a scratch directory recursively.
func (a *Activities) CleanupTempDir(ctx context.Context, params CleanupTempDirParams) (string, error) {
	a.Log.Info("Cleaning up temp dir", "out_dir", params.OutDir)
	if err := os.RemoveAll(params.OutDir); err != nil {
		a.Log.Warn("Temp dir cleanup failed", "out_dir", params.OutDir, "error", err)
	}
	return params.OutDir, nil
}

// scanTempDirAsContainer re-enters the scan phase on an unpacked directory,
// attributing every child to the container blob.
func scanTempDirAsContainer(ctx workflow.Context, collectionDataset, outDir, containerHash, scanWorkflowID string) error {
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: scanWorkflowID,
		TaskQueue:  temporalx.CommonQueue,
	})
	return workflow.ExecuteChildWorkflow(cctx, scan.HandleFoldersWorkflow, scan.HandleFoldersParams{
		CollectionDataset: collectionDataset,
		DatasetPath:       outDir,
		FolderPaths:       []string{"/"},
		ContainerHash:     containerHash,
	}).Get(ctx, nil)
}

// ArchiveExtractionAndScan unpacks an archive, records the container row,
// scans the extracted tree, then cleans up.
func ArchiveExtractionAndScan(ctx workflow.Context, params ArchiveExtractionWorkflowParams) (string, error) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(params.TimeoutSeconds) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	var res TempDirResult
	if err := workflow.ExecuteActivity(actx, ExtractArchiveToTempActivity, ExtractArchiveParams{
		CollectionDataset: params.CollectionDataset,
		ArchiveHash:       params.ArchiveHash,
		ArchiveTypes:      params.ArchiveTypes,
		ArchivePath:       params.ArchivePath,
	}).Get(ctx, &res); err != nil {
		return "", err
	}

	if err := workflow.ExecuteActivity(actx, RecordArchiveContainerActivity, RecordArchiveContainerParams{
		CollectionDataset: params.CollectionDataset,
		ArchiveHash:       params.ArchiveHash,
		ArchiveTypes:      params.ArchiveTypes,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	if err := scanTempDirAsContainer(ctx, params.CollectionDataset, res.OutDir, params.ArchiveHash,
		fmt.Sprintf("scan-archive-%s-%s", params.CollectionDataset, params.ArchiveHash)); err != nil {
		return "", err
	}

	if err := workflow.ExecuteActivity(actx, CleanupTempDirActivity,
		CleanupTempDirParams{OutDir: res.OutDir}).Get(ctx, nil); err != nil {
		return "", err
	}
	return res.OutDir, nil
}

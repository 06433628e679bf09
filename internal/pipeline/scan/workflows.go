package scan

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

func batchStrings(items []string, batchSize int) [][]string {
	var batches [][]string
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// batchFilesBySize packs files into batches bounded by count and total
// bytes. A file bigger than maxBytes gets a batch of its own.
func batchFilesBySize(files []FileMeta, maxCount int, maxBytes int64) [][]FileMeta {
	var batches [][]FileMeta
	var current []FileMeta
	var currentBytes int64
	for _, f := range files {
		if f.Size > maxBytes {
			if len(current) > 0 {
				batches = append(batches, current)
				current = nil
				currentBytes = 0
			}
			batches = append(batches, []FileMeta{f})
			continue
		}
		if len(current) >= maxCount || currentBytes+f.Size > maxBytes {
			if len(current) > 0 {
				batches = append(batches, current)
			}
			current = []FileMeta{f}
			currentBytes = f.Size
		} else {
			current = append(current, f)
			currentBytes += f.Size
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// HandleFiles ingests one batch of files. Dedup and batched inserts happen
// inside the single activity call.
func HandleFiles(ctx workflow.Context, params HandleFilesParams) (string, error) {
	log := workflow.GetLogger(ctx)
	log.Info("Handling files", "count", len(params.FilePaths), "collection_dataset", params.CollectionDataset)

	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Hour,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var result string
	err := workflow.ExecuteActivity(actx, IngestFilesBatchActivity, IngestFilesBatchParams{
		CollectionDataset: params.CollectionDataset,
		DatasetPath:       params.DatasetPath,
		FilePaths:         params.FilePaths,
		ContainerHash:     params.ContainerHash,
		RootPathPrefix:    params.RootPathPrefix,
	}).Get(ctx, &result)
	if err != nil {
		return "", err
	}
	log.Info("Handled files", "count", len(params.FilePaths), "collection_dataset", params.CollectionDataset)
	return result, nil
}

// HandleFolders lists up to FolderBatchSize folders in parallel, records the
// directories found, then fans out child workflows for the next level of
// folders and for the file batches.
func HandleFolders(ctx workflow.Context, params HandleFoldersParams) (string, error) {
	log := workflow.GetLogger(ctx)
	log.Info("Handling folders", "count", len(params.FolderPaths), "collection_dataset", params.CollectionDataset)

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 50 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var listFuts []workflow.Future
	for _, folderRel := range params.FolderPaths {
		listFuts = append(listFuts, workflow.ExecuteActivity(listCtx, ListDiskFolderActivity, ListDiskFolderParams{
			CollectionDataset: params.CollectionDataset,
			DatasetPath:       params.DatasetPath,
			FolderPath:        folderRel,
		}))
	}

	var allDirs []string
	var allFiles []FileMeta
	for _, fut := range listFuts {
		var listing FolderListing
		if err := fut.Get(ctx, &listing); err != nil {
			return "", err
		}
		for _, d := range listing.Dirs {
			allDirs = append(allDirs, d.Path)
		}
		allFiles = append(allFiles, listing.Files...)
	}

	if len(allDirs) > 0 {
		insCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 40 * time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		})
		if err := workflow.ExecuteActivity(insCtx, InsertVfsDirectoriesActivity, InsertVfsDirectoriesParams{
			CollectionDataset: params.CollectionDataset,
			DirPaths:          allDirs,
			ContainerHash:     params.ContainerHash,
		}).Get(ctx, nil); err != nil {
			return "", err
		}
	}

	var childFuts []workflow.ChildWorkflowFuture
	for _, folderBatch := range batchStrings(allDirs, FolderBatchSize) {
		childParams := HandleFoldersParams{
			CollectionDataset: params.CollectionDataset,
			DatasetPath:       params.DatasetPath,
			FolderPaths:       folderBatch,
			ContainerHash:     params.ContainerHash,
			RootPathPrefix:    params.RootPathPrefix,
		}
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: temporalx.StableChildID(HandleFoldersWorkflow, childParams),
			TaskQueue:  temporalx.CommonQueue,
		})
		childFuts = append(childFuts, workflow.ExecuteChildWorkflow(cctx, HandleFoldersWorkflow, childParams))
	}
	for _, fileBatch := range batchFilesBySize(allFiles, FileBatchMaxCount, FileBatchMaxBytes) {
		filePaths := make([]string, len(fileBatch))
		for i, f := range fileBatch {
			filePaths[i] = f.Path
		}
		childParams := HandleFilesParams{
			CollectionDataset: params.CollectionDataset,
			DatasetPath:       params.DatasetPath,
			FilePaths:         filePaths,
			ContainerHash:     params.ContainerHash,
			RootPathPrefix:    params.RootPathPrefix,
		}
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: temporalx.StableChildID(HandleFilesWorkflow, childParams),
			TaskQueue:  temporalx.CommonQueue,
		})
		childFuts = append(childFuts, workflow.ExecuteChildWorkflow(cctx, HandleFilesWorkflow, childParams))
	}
	for _, fut := range childFuts {
		if err := fut.Get(ctx, nil); err != nil {
			return "", err
		}
	}

	log.Info("Handled folders", "count", len(params.FolderPaths), "collection_dataset", params.CollectionDataset)
	return fmt.Sprintf("handled %d folders", len(params.FolderPaths)), nil
}

// IngestDiskDataset seeds the recursive scan at the dataset root.
func IngestDiskDataset(ctx workflow.Context, params IngestDiskDatasetParams) (string, error) {
	log := workflow.GetLogger(ctx)
	log.Info("Starting disk ingestion", "collection_dataset", params.CollectionDataset, "dataset_path", params.DatasetPath)

	rootParams := HandleFoldersParams{
		CollectionDataset: params.CollectionDataset,
		DatasetPath:       params.DatasetPath,
		FolderPaths:       []string{"/"},
	}
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: temporalx.StableChildID(HandleFoldersWorkflow, rootParams),
		TaskQueue:  temporalx.CommonQueue,
	})
	if err := workflow.ExecuteChildWorkflow(cctx, HandleFoldersWorkflow, rootParams).Get(ctx, nil); err != nil {
		return "", err
	}
	log.Info("Finished disk ingestion", "collection_dataset", params.CollectionDataset)
	return fmt.Sprintf("started ingestion for %s", params.CollectionDataset), nil
}

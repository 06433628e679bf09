package parse

import (
	"fmt"
	"math"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/pipeline/journal"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// detectorResult pairs one detector's outcome with its name for error
// attribution.
type detectorResult struct {
	name string
	det  DetectedTypes
	err  error
}

func unionDetectedTypes(results []detectorResult) DetectedTypes {
	coarseSet := make(map[string]bool)
	mimeSet := make(map[string]bool)
	encSet := make(map[string]bool)
	for _, r := range results {
		if r.err != nil {
			continue
		}
		for _, v := range r.det.CoarseTypes {
			if v != "" {
				coarseSet[v] = true
			}
		}
		for _, v := range r.det.MimeTypes {
			if v != "" {
				mimeSet[v] = true
			}
		}
		for _, v := range r.det.MimeEncodings {
			if v != "" {
				encSet[v] = true
			}
		}
	}
	return DetectedTypes{
		CoarseTypes:   sortedKeys(coarseSet),
		MimeTypes:     sortedKeys(mimeSet),
		MimeEncodings: sortedKeys(encSet),
	}
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

// ParseSingleFile detects the file's type with three parallel detectors and
// fans out to the matching handlers. Handler failures are journaled per
// branch; the workflow itself succeeds as long as the journal insert works.
func ParseSingleFile(ctx workflow.Context, params ParseSingleFileParams) (string, error) {
	procSecs := 900 + int(math.Ceil(float64(params.FileSizeBytes)/1250))
	procTimeout := time.Duration(procSecs) * time.Second

	commonCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: procTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	tikaCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(1000+procSecs) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		TaskQueue:           temporalx.TikaQueue,
	})

	detectParams := DetectMimeParams{
		CollectionDataset: params.CollectionDataset,
		FileHash:          params.ItemHash,
		FilePath:          params.FilePath,
		TimeoutSeconds:    procSecs,
	}
	detectorStart := workflow.Now(ctx)
	fileFut := workflow.ExecuteActivity(commonCtx, DetectMimeWithGNUFileActivity, detectParams)
	tikaFut := workflow.ExecuteActivity(tikaCtx, RunTikaAndStoreActivity, RunTikaParams{
		CollectionDataset: params.CollectionDataset,
		FileHash:          params.ItemHash,
		FilePath:          params.FilePath,
		ContentType:       "application/octet-stream",
		TimeoutSeconds:    1000 + procSecs,
	})
	magikaFut := workflow.ExecuteActivity(commonCtx, DetectMimeWithMagikaActivity, detectParams)

	detectors := []struct {
		name string
		fut  workflow.Future
	}{
		{"file", fileFut},
		{"tika", tikaFut},
		{"magika", magikaFut},
	}
	var detResults []detectorResult
	for _, d := range detectors {
		var det DetectedTypes
		err := d.fut.Get(ctx, &det)
		detResults = append(detResults, detectorResult{name: d.name, det: det, err: err})
		if err != nil {
			// Journal and continue with the remaining detectors.
			_, _ = journal.RecordErrorsFromResults(ctx, []error{err},
				[]string{fmt.Sprintf("detector_error_%s", d.name)},
				[]time.Time{detectorStart},
				params.CollectionDataset, []string{params.ItemHash}, 900)
		}
	}
	combined := unionDetectedTypes(detResults)
	coarseTypes := combined.CoarseTypes
	mimeTypes := combined.MimeTypes

	var futs []workflow.Future
	var taskIDs []string
	var starts []time.Time
	addBranch := func(fut workflow.Future, taskID string) {
		futs = append(futs, fut)
		taskIDs = append(taskIDs, taskID)
		starts = append(starts, workflow.Now(ctx))
	}
	childCtx := func(workflowID string) workflow.Context {
		return workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: workflowID,
			TaskQueue:  temporalx.CommonQueue,
		})
	}

	if contains(coarseTypes, "archive") {
		addBranch(workflow.ExecuteChildWorkflow(
			childCtx(fmt.Sprintf("archive-scan-%s-%s", params.CollectionDataset, params.ItemHash)),
			ArchiveExtractionAndScanWorkflow, ArchiveExtractionWorkflowParams{
				CollectionDataset: params.CollectionDataset,
				ArchiveHash:       params.ItemHash,
				ArchiveTypes:      mimeTypes,
				ArchivePath:       params.FilePath,
				TimeoutSeconds:    procSecs,
			}), "archive_scan")
	}

	if contains(coarseTypes, "email") {
		addBranch(workflow.ExecuteChildWorkflow(
			childCtx(fmt.Sprintf("email-scan-%s-%s", params.CollectionDataset, params.ItemHash)),
			EmailExtractionAndScanWorkflow, EmailExtractionWorkflowParams{
				CollectionDataset: params.CollectionDataset,
				EmailHash:         params.ItemHash,
				FilePath:          params.FilePath,
				TimeoutSeconds:    procSecs,
			}), "email_scan")
	}

	if contains(coarseTypes, "text") {
		addBranch(workflow.ExecuteActivity(commonCtx, ExtractPlaintextChunksActivity, ExtractPlaintextParams{
			CollectionDataset: params.CollectionDataset,
			FileHash:          params.ItemHash,
			FilePath:          params.FilePath,
			TimeoutSeconds:    procSecs,
		}), "extract_plaintext_chunks")
	}

	if contains(coarseTypes, "pdf") {
		addBranch(workflow.ExecuteChildWorkflow(
			childCtx(fmt.Sprintf("pdf-process-%s-%s", params.CollectionDataset, params.ItemHash)),
			PdfProcessingAndScanWorkflow, PdfProcessingWorkflowParams{
				CollectionDataset: params.CollectionDataset,
				PdfHash:           params.ItemHash,
				FilePath:          params.FilePath,
				TimeoutSeconds:    procSecs,
			}), "pdf_process")
	}

	if contains(coarseTypes, "image") {
		addBranch(workflow.ExecuteActivity(commonCtx, ParseImageMetadataAndStoreActivity, ParseImageParams{
			CollectionDataset: params.CollectionDataset,
			FileHash:          params.ItemHash,
			FilePath:          params.FilePath,
			TimeoutSeconds:    procSecs,
		}), "parse_image_metadata_and_store")

		ocrCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: procTimeout,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
			TaskQueue:           temporalx.EasyOCRQueue,
		})
		addBranch(workflow.ExecuteActivity(ocrCtx, RunEasyOCRAndStoreActivity, RunEasyOCRParams{
			CollectionDataset: params.CollectionDataset,
			FileHash:          params.ItemHash,
			FilePath:          params.FilePath,
			TimeoutSeconds:    procSecs,
		}), "run_easyocr_and_store")
	}

	if contains(coarseTypes, "audio") {
		addBranch(workflow.ExecuteActivity(commonCtx, ParseAudioMetadataAndStoreActivity, ParseAudioParams{
			CollectionDataset: params.CollectionDataset,
			FileHash:          params.ItemHash,
			FilePath:          params.FilePath,
			TimeoutSeconds:    procSecs,
		}), "parse_audio_metadata_and_store")
	}

	if contains(coarseTypes, "video") {
		addBranch(workflow.ExecuteChildWorkflow(
			childCtx(fmt.Sprintf("video-process-%s-%s", params.CollectionDataset, params.ItemHash)),
			VideoProcessingAndScanWorkflow, VideoProcessingWorkflowParams{
				CollectionDataset: params.CollectionDataset,
				VideoHash:         params.ItemHash,
				FilePath:          params.FilePath,
				TimeoutSeconds:    procSecs,
			}), "video_process")
	}

	results := make([]error, len(futs))
	for i, fut := range futs {
		results[i] = fut.Get(ctx, nil)
	}
	itemHashes := make([]string, len(taskIDs))
	for i := range itemHashes {
		itemHashes[i] = params.ItemHash
	}
	if _, err := journal.RecordErrorsFromResults(ctx, results, taskIDs, starts,
		params.CollectionDataset, itemHashes, procSecs); err != nil {
		return "", err
	}
	return "ok", nil
}

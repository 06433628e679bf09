// Package worker runs the Temporal workers for the processing queues. Each
// worker process serves exactly one queue; the supervisor spawns one process
// per queue plus extra common workers.
package worker

import (
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/internal/clients/ai"
	"github.com/liquidinvestigations/hoover4/internal/clients/tika"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/execute"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/index"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/journal"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/parse"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/plan"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/scan"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/store/manticore"
	"github.com/liquidinvestigations/hoover4/internal/store/s3blob"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

// WorkerTypes lists the accepted values for the worker CLI argument.
// "supervisor" spawns and monitors one process per queue.
var WorkerTypes = []string{"common", "tika", "easyocr", "indexing", "supervisor"}

func queueForType(workerType string) (string, error) {
	switch workerType {
	case "common":
		return temporalx.CommonQueue, nil
	case "tika":
		return temporalx.TikaQueue, nil
	case "easyocr":
		return temporalx.EasyOCRQueue, nil
	case "indexing":
		return temporalx.IndexingQueue, nil
	default:
		return "", fmt.Errorf("unknown worker type: %q", workerType)
	}
}

// Run connects to Temporal and the stores, registers the workflows and
// activities for the given worker type, and blocks until interrupted.
func Run(log *logger.Logger, workerType string) error {
	queue, err := queueForType(workerType)
	if err != nil {
		return err
	}
	log.Info("Starting worker", "worker_type", workerType, "task_queue", queue)

	tc, err := temporalx.NewClient(log)
	if err != nil {
		return err
	}
	defer tc.Close()

	ch, err := clickhouse.Open(log)
	if err != nil {
		return err
	}
	defer ch.Close()

	concurrency := temporalx.QueueConcurrency(queue)
	w := worker.New(tc, queue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency * 2,
	})

	switch workerType {
	case "common":
		if err := registerCommon(w, log, ch); err != nil {
			return err
		}
	case "tika":
		acts := &parse.Activities{Log: log, CH: ch, Tika: tika.New()}
		w.RegisterActivityWithOptions(acts.RunTikaAndStore,
			activity.RegisterOptions{Name: parse.RunTikaAndStoreActivity})
	case "easyocr":
		acts := &parse.Activities{Log: log, CH: ch, OCR: ai.NewOCRClient()}
		w.RegisterActivityWithOptions(acts.RunEasyOCRAndStore,
			activity.RegisterOptions{Name: parse.RunEasyOCRAndStoreActivity})
	case "indexing":
		mant, err := manticore.Open(log)
		if err != nil {
			return err
		}
		defer mant.Close()
		acts := &index.Activities{Log: log, CH: ch, Manticore: mant, NER: ai.NewNERClient()}
		w.RegisterActivityWithOptions(acts.IndexTextContent,
			activity.RegisterOptions{Name: index.IndexTextContentActivity})
	}

	return w.Run(worker.InterruptCh())
}

// registerCommon wires every workflow plus all activities that need no
// dedicated queue.
func registerCommon(w worker.Worker, log *logger.Logger, ch *clickhouse.DB) error {
	blobs, err := s3blob.New(log)
	if err != nil {
		return err
	}
	mant, err := manticore.Open(log)
	if err != nil {
		return err
	}

	w.RegisterWorkflowWithOptions(scan.IngestDiskDataset, workflow.RegisterOptions{Name: scan.IngestDiskDatasetWorkflow})
	w.RegisterWorkflowWithOptions(scan.HandleFolders, workflow.RegisterOptions{Name: scan.HandleFoldersWorkflow})
	w.RegisterWorkflowWithOptions(scan.HandleFiles, workflow.RegisterOptions{Name: scan.HandleFilesWorkflow})
	w.RegisterWorkflowWithOptions(plan.ComputePlans, workflow.RegisterOptions{Name: plan.ComputePlansWorkflow})
	w.RegisterWorkflowWithOptions(execute.ExecutePlans, workflow.RegisterOptions{Name: execute.ExecutePlansWorkflow})
	w.RegisterWorkflowWithOptions(execute.ExecuteSinglePlan, workflow.RegisterOptions{Name: execute.ExecuteSinglePlanWorkflow})
	w.RegisterWorkflowWithOptions(execute.ProcessItemsBatched, workflow.RegisterOptions{Name: execute.ProcessItemsBatchedWorkflow})
	w.RegisterWorkflowWithOptions(parse.ParseSingleFile, workflow.RegisterOptions{Name: parse.ParseSingleFileWorkflow})
	w.RegisterWorkflowWithOptions(parse.ArchiveExtractionAndScan, workflow.RegisterOptions{Name: parse.ArchiveExtractionAndScanWorkflow})
	w.RegisterWorkflowWithOptions(parse.EmailExtractionAndScan, workflow.RegisterOptions{Name: parse.EmailExtractionAndScanWorkflow})
	w.RegisterWorkflowWithOptions(parse.PdfProcessingAndScan, workflow.RegisterOptions{Name: parse.PdfProcessingAndScanWorkflow})
	w.RegisterWorkflowWithOptions(parse.VideoProcessingAndScan, workflow.RegisterOptions{Name: parse.VideoProcessingAndScanWorkflow})
	w.RegisterWorkflowWithOptions(index.IndexDatasetPlan, workflow.RegisterOptions{Name: index.IndexDatasetPlanWorkflow})

	scanActs := &scan.Activities{Log: log, CH: ch, Blobs: blobs}
	w.RegisterActivityWithOptions(scanActs.ListDiskFolder, activity.RegisterOptions{Name: scan.ListDiskFolderActivity})
	w.RegisterActivityWithOptions(scanActs.InsertVfsDirectories, activity.RegisterOptions{Name: scan.InsertVfsDirectoriesActivity})
	w.RegisterActivityWithOptions(scanActs.IngestFilesBatch, activity.RegisterOptions{Name: scan.IngestFilesBatchActivity})

	planActs := &plan.Activities{Log: log, CH: ch}
	w.RegisterActivityWithOptions(planActs.CountNewBlobs, activity.RegisterOptions{Name: plan.CountNewBlobsActivity})
	w.RegisterActivityWithOptions(planActs.ComputePlans, activity.RegisterOptions{Name: plan.ComputePlansActivity})

	execActs := &execute.Activities{Log: log, CH: ch, Blobs: blobs}
	w.RegisterActivityWithOptions(execActs.ListPendingPlans, activity.RegisterOptions{Name: execute.ListPendingPlansActivity})
	w.RegisterActivityWithOptions(execActs.GetPlanItemsMetadata, activity.RegisterOptions{Name: execute.GetPlanItemsMetadataActivity})
	w.RegisterActivityWithOptions(execActs.DownloadPlanFiles, activity.RegisterOptions{Name: execute.DownloadPlanFilesActivity})
	w.RegisterActivityWithOptions(execActs.CleanupPlanDir, activity.RegisterOptions{Name: execute.CleanupPlanDirActivity})
	w.RegisterActivityWithOptions(execActs.EnsureTempDirExists, activity.RegisterOptions{Name: execute.EnsureTempDirExistsActivity})
	w.RegisterActivityWithOptions(execActs.MarkPlanFinished, activity.RegisterOptions{Name: execute.MarkPlanFinishedActivity})

	journalActs := &journal.Activities{Log: log, CH: ch}
	w.RegisterActivityWithOptions(journalActs.RecordProcessingErrors, activity.RegisterOptions{Name: journal.RecordProcessingErrorsActivity})

	parseActs := &parse.Activities{Log: log, CH: ch}
	w.RegisterActivityWithOptions(parseActs.DetectMimeWithGNUFile, activity.RegisterOptions{Name: parse.DetectMimeWithGNUFileActivity})
	w.RegisterActivityWithOptions(parseActs.DetectMimeWithMagika, activity.RegisterOptions{Name: parse.DetectMimeWithMagikaActivity})
	w.RegisterActivityWithOptions(parseActs.ExtractPlaintextChunks, activity.RegisterOptions{Name: parse.ExtractPlaintextChunksActivity})
	w.RegisterActivityWithOptions(parseActs.ExtractArchiveToTemp, activity.RegisterOptions{Name: parse.ExtractArchiveToTempActivity})
	w.RegisterActivityWithOptions(parseActs.RecordArchiveContainer, activity.RegisterOptions{Name: parse.RecordArchiveContainerActivity})
	w.RegisterActivityWithOptions(parseActs.CleanupTempDir, activity.RegisterOptions{Name: parse.CleanupTempDirActivity})
	w.RegisterActivityWithOptions(parseActs.ParseEmailExtractTextHeaders, activity.RegisterOptions{Name: parse.ParseEmailExtractTextHeadersActivity})
	w.RegisterActivityWithOptions(parseActs.ExtractEmailAttachmentsToTemp, activity.RegisterOptions{Name: parse.ExtractEmailAttachmentsToTempActivity})
	w.RegisterActivityWithOptions(parseActs.PdfGetMetadataAndStore, activity.RegisterOptions{Name: parse.PdfGetMetadataAndStoreActivity})
	w.RegisterActivityWithOptions(parseActs.PdfSmallExtractTextAndImages, activity.RegisterOptions{Name: parse.PdfSmallExtractTextAndImagesActivity})
	w.RegisterActivityWithOptions(parseActs.PdfLargeSplitToChunks, activity.RegisterOptions{Name: parse.PdfLargeSplitToChunksActivity})
	w.RegisterActivityWithOptions(parseActs.ParseImageMetadataAndStore, activity.RegisterOptions{Name: parse.ParseImageMetadataAndStoreActivity})
	w.RegisterActivityWithOptions(parseActs.ParseAudioMetadataAndStore, activity.RegisterOptions{Name: parse.ParseAudioMetadataAndStoreActivity})
	w.RegisterActivityWithOptions(parseActs.VideoFfprobeAndStore, activity.RegisterOptions{Name: parse.VideoFfprobeAndStoreActivity})
	w.RegisterActivityWithOptions(parseActs.VideoExtractFramesAndSubtitles, activity.RegisterOptions{Name: parse.VideoExtractFramesAndSubtitlesActivity})

	indexActs := &index.Activities{Log: log, CH: ch, Manticore: mant, NER: ai.NewNERClient()}
	w.RegisterActivityWithOptions(indexActs.FetchPlanHashes, activity.RegisterOptions{Name: index.FetchPlanHashesActivity})
	w.RegisterActivityWithOptions(indexActs.IndexMetadatas, activity.RegisterOptions{Name: index.IndexMetadatasActivity})
	return nil
}

package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
)

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SlugifyDatasetName normalizes a dataset name to lowercase alphanumerics
// and underscores.
func SlugifyDatasetName(name string) string {
	slug := strings.ToLower(strings.Trim(slugRe.ReplaceAllString(name, "_"), "_"))
	if slug == "" {
		return "dataset"
	}
	return slug
}

// AddDiskDataset records the dataset row and runs the ingestion workflow to
// completion. The workflow ID is stable per dataset so a re-run attaches to
// the running ingestion instead of starting a second one.
func AddDiskDataset(ctx context.Context, log *logger.Logger, ch *clickhouse.DB, tc client.Client, datasetName, path string) error {
	collectionDataset := SlugifyDatasetName(datasetName)
	if collectionDataset != datasetName {
		return fmt.Errorf("dataset name must contain only lowercase alphanumeric characters and underscores; use %q instead of %q",
			collectionDataset, datasetName)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	absPath = filepath.ToSlash(absPath)
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		return fmt.Errorf("path does not exist or is not a directory: %s", absPath)
	}
	log.Info("Adding disk dataset", "collection_dataset", collectionDataset, "path", absPath)

	existing, err := ch.Count(ctx,
		"SELECT count() FROM dataset WHERE dataset_name = ? OR dataset_path = ?",
		datasetName, absPath)
	if err != nil {
		return fmt.Errorf("dataset duplicate check: %w", err)
	}
	if existing > 0 {
		log.Warn("Dataset with same name or path already exists, re-running once more", "collection_dataset", collectionDataset)
	}

	now := time.Now().UTC()
	batch, err := ch.Conn.PrepareBatch(ctx,
		"INSERT INTO dataset (collection_dataset, dataset_name, dataset_type, dataset_path, dataset_access_json, user_id, date_created, date_modified)")
	if err != nil {
		return err
	}
	if err := batch.Append(collectionDataset, datasetName, "disk", absPath, nil, "system", now, now); err != nil {
		return err
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert dataset row: %w", err)
	}

	log.Info("Starting ingestion workflow", "collection_dataset", collectionDataset)
	run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("ingest-disk-%s", collectionDataset),
		TaskQueue:                temporalx.CommonQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, IngestDiskDatasetWorkflow, IngestDiskDatasetParams{
		CollectionDataset: collectionDataset,
		DatasetPath:       absPath,
	})
	if err != nil {
		return fmt.Errorf("start ingestion workflow: %w", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		return fmt.Errorf("ingestion workflow failed: %w", err)
	}
	log.Info("Ingestion workflow finished", "collection_dataset", collectionDataset)
	return nil
}

// Package journal records pipeline failures into the processing_errors
// table. Failures never abort a plan: branches that error are journaled and
// the rest of the plan continues.
package journal

import (
	"context"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
)

const RecordProcessingErrorsActivity = "record_processing_errors"

type ErrorRow struct {
	CollectionDataset string `json:"collection_dataset"`
	Hash              string `json:"hash"`
	TaskName          string `json:"task_name"`
	RunTimeMS         int64  `json:"run_time_ms"`
	ErrorLogs         string `json:"error_logs"`
}

type RecordProcessingErrorsParams struct {
	Errors []ErrorRow `json:"errors"`
}

type Activities struct {
	Log *logger.Logger
	CH  *clickhouse.DB
}

// RecordProcessingErrors inserts all rows in one batch.
func (a *Activities) RecordProcessingErrors(ctx context.Context, params RecordProcessingErrorsParams) (int, error) {
	if len(params.Errors) == 0 {
		return 0, nil
	}
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO processing_errors (collection_dataset, hash, task_name, run_time_ms, error_logs, timestamp)")
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for _, e := range params.Errors {
		ms := e.RunTimeMS
		if ms < 0 {
			ms = 0
		}
		if err := batch.Append(e.CollectionDataset, e.Hash, e.TaskName, uint32(ms), e.ErrorLogs, now); err != nil {
			return 0, err
		}
	}
	if err := batch.Send(); err != nil {
		return 0, err
	}
	return len(params.Errors), nil
}

// Package parse turns staged blobs into structured rows: type detection,
// text extraction, metadata capture, and recursive unpacking of container
// formats (archives, emails, PDFs, videos) back into the scan phase.
package parse

import (
	"github.com/liquidinvestigations/hoover4/internal/clients/ai"
	"github.com/liquidinvestigations/hoover4/internal/clients/tika"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
)

type Activities struct {
	Log  *logger.Logger
	CH   *clickhouse.DB
	Tika *tika.Client
	OCR  *ai.OCRClient
}

package temporalx

// Task queue names. Routing is fixed: workflows and general activities run on
// the common queue, JVM extraction on the tika queue, GPU OCR on the easyocr
// queue, and Manticore text inserts on the single-slot indexing queue.
const (
	CommonQueue   = "processing-common-queue"
	TikaQueue     = "processing-tika-queue"
	EasyOCRQueue  = "processing-easyocr-queue"
	IndexingQueue = "processing-indexing-queue"
)

// Per-process activity concurrency for each queue.
func QueueConcurrency(queue string) int {
	switch queue {
	case EasyOCRQueue:
		return 4
	case IndexingQueue:
		return 1
	default:
		return 8
	}
}

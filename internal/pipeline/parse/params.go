package parse

const (
	ParseSingleFileWorkflow          = "ParseSingleFile"
	ArchiveExtractionAndScanWorkflow = "ArchiveExtractionAndScan"
	EmailExtractionAndScanWorkflow   = "EmailExtractionAndScan"
	PdfProcessingAndScanWorkflow     = "PdfProcessingAndScan"
	VideoProcessingAndScanWorkflow   = "VideoProcessingAndScan"

	DetectMimeWithGNUFileActivity         = "detect_mime_with_gnu_file"
	DetectMimeWithMagikaActivity          = "detect_mime_with_magika"
	RunTikaAndStoreActivity               = "run_tika_and_store"
	ExtractPlaintextChunksActivity        = "extract_plaintext_chunks"
	ExtractArchiveToTempActivity          = "extract_archive_to_temp"
	RecordArchiveContainerActivity        = "record_archive_container"
	CleanupTempDirActivity                = "cleanup_temp_dir"
	ParseEmailExtractTextHeadersActivity  = "parse_email_extract_text_headers"
	ExtractEmailAttachmentsToTempActivity = "extract_email_attachments_to_temp"
	PdfGetMetadataAndStoreActivity        = "pdf_get_metadata_and_store"
	PdfSmallExtractTextAndImagesActivity  = "pdf_small_extract_text_and_images"
	PdfLargeSplitToChunksActivity         = "pdf_large_split_to_chunks"
	ParseImageMetadataAndStoreActivity    = "parse_image_metadata_and_store"
	ParseAudioMetadataAndStoreActivity    = "parse_audio_metadata_and_store"
	VideoFfprobeAndStoreActivity          = "video_ffprobe_and_store"
	VideoExtractFramesAndSubtitlesActivity = "video_extract_frames_and_subtitles"
	RunEasyOCRAndStoreActivity            = "run_easyocr_and_store"
)

type ParseSingleFileParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
	ItemHash          string `json:"item_hash"`
	FilePath          string `json:"file_path"`
	FileSizeBytes     int64  `json:"file_size_bytes"`
}

// DetectMimeParams is shared by the file and magika detectors.
type DetectMimeParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

// DetectedTypes is the common shape returned by all three detectors.
type DetectedTypes struct {
	MimeTypes     []string `json:"mime_types"`
	MimeEncodings []string `json:"mime_encodings"`
	CoarseTypes   []string `json:"coarse_types"`
	Extensions    []string `json:"extensions"`
}

type RunTikaParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	ContentType       string `json:"content_type"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type ExtractPlaintextParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type ExtractArchiveParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	ArchiveHash       string   `json:"archive_hash"`
	ArchiveTypes      []string `json:"archive_types"`
	ArchivePath       string   `json:"archive_path"`
}

type RecordArchiveContainerParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	ArchiveHash       string   `json:"archive_hash"`
	ArchiveTypes      []string `json:"archive_types"`
}

type CleanupTempDirParams struct {
	OutDir string `json:"out_dir"`
}

type TempDirResult struct {
	OutDir string `json:"out_dir"`
}

type ArchiveExtractionWorkflowParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	ArchiveHash       string   `json:"archive_hash"`
	ArchiveTypes      []string `json:"archive_types"`
	ArchivePath       string   `json:"archive_path"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
}

type ParseEmailHeadersParams struct {
	CollectionDataset string `json:"collection_dataset"`
	EmailHash         string `json:"email_hash"`
	FilePath          string `json:"file_path"`
}

type ExtractEmailAttachmentsParams struct {
	CollectionDataset string `json:"collection_dataset"`
	EmailHash         string `json:"email_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type EmailExtractionWorkflowParams struct {
	CollectionDataset string `json:"collection_dataset"`
	EmailHash         string `json:"email_hash"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	FilePath          string `json:"file_path"`
}

type PdfMetaParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PdfHash           string `json:"pdf_hash"`
	FilePath          string `json:"file_path"`
}

type PdfMetaResult struct {
	PageCount int   `json:"page_count"`
	SizeBytes int64 `json:"size_bytes"`
}

type PdfSmallParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PdfHash           string `json:"pdf_hash"`
	FilePath          string `json:"file_path"`
	PageCount         int    `json:"page_count"`
}

type PdfLargeParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PdfHash           string `json:"pdf_hash"`
	FilePath          string `json:"file_path"`
	PageCount         int    `json:"page_count"`
	SizeBytes         int64  `json:"size_bytes"`
}

type PdfLargeResult struct {
	OutDir string   `json:"out_dir"`
	Chunks []string `json:"chunks"`
}

type PdfProcessingWorkflowParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PdfHash           string `json:"pdf_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type ParseImageParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type ParseAudioParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type VideoMetaParams struct {
	CollectionDataset string `json:"collection_dataset"`
	VideoHash         string `json:"video_hash"`
	FilePath          string `json:"file_path"`
}

type VideoExtractParams struct {
	CollectionDataset string `json:"collection_dataset"`
	VideoHash         string `json:"video_hash"`
	FilePath          string `json:"file_path"`
}

type VideoProcessingWorkflowParams struct {
	CollectionDataset string `json:"collection_dataset"`
	VideoHash         string `json:"video_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

type RunEasyOCRParams struct {
	CollectionDataset string `json:"collection_dataset"`
	FileHash          string `json:"file_hash"`
	FilePath          string `json:"file_path"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
}

package execute

const (
	ExecutePlansWorkflow       = "ExecutePlans"
	ExecuteSinglePlanWorkflow  = "ExecuteSinglePlan"
	ProcessItemsBatchedWorkflow = "ProcessItemsBatched"

	ListPendingPlansActivity     = "list_pending_plans"
	GetPlanItemsMetadataActivity = "get_plan_items_metadata"
	DownloadPlanFilesActivity    = "download_plan_files"
	CleanupPlanDirActivity       = "cleanup_plan_dir"
	EnsureTempDirExistsActivity  = "ensure_temp_dir_exists"
	MarkPlanFinishedActivity     = "mark_plan_finished"
)

const (
	// One paging batch of plans per workflow run; the 1001st hash becomes
	// the continuation cursor.
	PlanPageSize = 1000

	PlanConcurrency = 16
	ItemConcurrency = 32

	MaxRecursivityDepth = 100
)

type ExecutePlansParams struct {
	CollectionDataset string `json:"collection_dataset"`
	BaseTempDir       string `json:"base_temp_dir"`
	StartingPlanHash  string `json:"starting_plan_hash"`
	RecursivityDepth  int    `json:"recursivity_depth"`
}

type ExecuteSinglePlanParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
	BaseTempDir       string `json:"base_temp_dir"`
}

// PlanItem is one blob of a plan, joined with its storage location.
type PlanItem struct {
	ItemHash      string `json:"item_hash"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	S3URL         string `json:"s3_url"`
}

type ProcessItemsBatchedParams struct {
	CollectionDataset string     `json:"collection_dataset"`
	PlanHash          string     `json:"plan_hash"`
	OutDir            string     `json:"out_dir"`
	Items             []PlanItem `json:"items"`
}

type ListPendingPlansParams struct {
	CollectionDataset string `json:"collection_dataset"`
	StartingPlanHash  string `json:"starting_plan_hash"`
}

type GetPlanItemsMetadataParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
}

type DownloadPlanFilesParams struct {
	CollectionDataset string     `json:"collection_dataset"`
	PlanHash          string     `json:"plan_hash"`
	Items             []PlanItem `json:"items"`
	BaseTempDir       string     `json:"base_temp_dir"`
}

type DownloadPlanFilesResult struct {
	OutDir string `json:"out_dir"`
	Count  int    `json:"count"`
}

type CleanupPlanDirParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
	BaseTempDir       string `json:"base_temp_dir"`
}

type EnsureTempDirExistsParams struct {
	BaseTempDir string `json:"base_temp_dir"`
}

type MarkPlanFinishedParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
}

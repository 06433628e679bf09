package index

// Workflow and activity names. The indexing workflow is started as a child by
// the plan executor, so the name is referenced cross-package as a string.
const (
	IndexDatasetPlanWorkflow = "IndexDatasetPlan"

	FetchPlanHashesActivity  = "fetch_plan_hashes"
	IndexTextContentActivity = "index_text_content"
	IndexMetadatasActivity   = "index_metadatas"
)

// Rows per Manticore insert round trip.
const IndexRowChunkSize = 512

// Item hashes per indexing activity invocation.
const IndexingChunkSize = 100

type IndexDatasetPlanParams struct {
	CollectionDataset string `json:"collection_dataset"`
	PlanHash          string `json:"plan_hash"`
}

type IndexTextContentParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	PlanHash          string   `json:"plan_hash"`
	Hashes            []string `json:"hashes"`
}

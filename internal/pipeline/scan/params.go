package scan

// Workflow and activity names as registered on the common queue.
const (
	IngestDiskDatasetWorkflow = "IngestDiskDataset"
	HandleFoldersWorkflow     = "HandleFolders"
	HandleFilesWorkflow       = "HandleFiles"

	ListDiskFolderActivity       = "list_disk_folder"
	InsertVfsDirectoriesActivity = "insert_vfs_directories"
	IngestFilesBatchActivity     = "ingest_files_batch"
)

const (
	// Blobs at or under this size are stored inline in ClickHouse
	// blob_values; larger ones go to the object store.
	SmallBlobThresholdBytes = 600 * 1024

	FileBatchMaxCount = 100
	FileBatchMaxBytes = 50 * 1024 * 1024

	FolderBatchSize = 10
)

type IngestDiskDatasetParams struct {
	CollectionDataset string `json:"collection_dataset"`
	DatasetPath       string `json:"dataset_path"`
}

type HandleFoldersParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	DatasetPath       string   `json:"dataset_path"`
	FolderPaths       []string `json:"folder_paths"`
	ContainerHash     string   `json:"container_hash"`
	RootPathPrefix    string   `json:"root_path_prefix"`
}

type HandleFilesParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	DatasetPath       string   `json:"dataset_path"`
	FilePaths         []string `json:"file_paths"`
	ContainerHash     string   `json:"container_hash"`
	RootPathPrefix    string   `json:"root_path_prefix"`
}

type ListDiskFolderParams struct {
	CollectionDataset string `json:"collection_dataset"`
	DatasetPath       string `json:"dataset_path"`
	FolderPath        string `json:"folder_path"`
}

type DirMeta struct {
	Path  string `json:"path"`
	MTime int64  `json:"mtime"`
	CTime int64  `json:"ctime"`
}

type FileMeta struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	MTime int64  `json:"mtime"`
	CTime int64  `json:"ctime"`
}

type FolderListing struct {
	Dirs  []DirMeta  `json:"dirs"`
	Files []FileMeta `json:"files"`
}

type InsertVfsDirectoriesParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	DirPaths          []string `json:"dir_paths"`
	ContainerHash     string   `json:"container_hash"`
}

type IngestFilesBatchParams struct {
	CollectionDataset string   `json:"collection_dataset"`
	DatasetPath       string   `json:"dataset_path"`
	FilePaths         []string `json:"file_paths"`
	ContainerHash     string   `json:"container_hash"`
	RootPathPrefix    string   `json:"root_path_prefix"`
}

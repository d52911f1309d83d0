package models

// StoreStatus summarizes the store, the embedding provider, and the ingestion catalog.
type StoreStatus struct {
	Size      int    `json:"size"`
	NextID    int    `json:"next_id"`
	Dimension int    `json:"dimension"`
	StoreType string `json:"store_type"`
	Metric    string `json:"metric"`
	Provider  string `json:"provider"`
	// Degraded is true when the provider's vectors carry no semantic meaning.
	Degraded       bool   `json:"degraded"`
	Sources        int    `json:"sources"`
	CatalogFiles   int64  `json:"catalog_files"`
	SnapshotPath   string `json:"snapshot_path,omitempty"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

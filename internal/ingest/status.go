package ingest

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
)

// Status reports the store and provider state and the number of cataloged files.
// DiskUsageBytes is left for the caller, which knows every path on disk.
func (i *Ingester) Status(ctx context.Context) (*models.StoreStatus, error) {
	i.mu.Lock()
	st := &models.StoreStatus{
		Size:         i.orch.StoreSize(),
		NextID:       i.orch.NextID(),
		Sources:      len(i.orch.ContextSources()),
		SnapshotPath: i.snapshotPath,
	}
	if s := i.orch.Store(); s != nil {
		st.Dimension = s.Dimension()
		st.StoreType = s.Type()
		st.Metric = s.Metric().Name
	}
	if e := i.orch.Embedder(); e != nil {
		st.Provider = e.Name()
		st.Degraded = embedding.IsDegraded(e)
	}
	i.mu.Unlock()

	if i.catalog != nil {
		n, err := i.catalog.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog count: %w", err)
		}
		st.CatalogFiles = n
	}
	return st, nil
}

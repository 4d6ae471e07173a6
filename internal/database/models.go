package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StoredClusterResult is one persisted per-label result row.
type StoredClusterResult struct {
	ID           string          `json:"id"`
	ClusterID    int             `json:"cluster_id"`
	ClusterLabel int             `json:"cluster_label"`
	NComponents  int             `json:"n_components"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewStoredClusterResult creates a result row with a fresh id.
func NewStoredClusterResult(clusterID, label, nComponents int, result json.RawMessage) *StoredClusterResult {
	return &StoredClusterResult{
		ID:           uuid.New().String(),
		ClusterID:    clusterID,
		ClusterLabel: label,
		NComponents:  nComponents,
		Result:       result,
		CreatedAt:    time.Now(),
	}
}

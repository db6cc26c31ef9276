package repository

import (
	"ransomwatch/internal/domain"
)

// Storage is the persistence contract: synchronous, failing loudly
// with a PersistenceError on I/O problems. Metrics are append-only,
// one record per cycle, never overwritten.
type Storage interface {
	SaveMetrics(bundle *domain.MetricBundle) error
	SaveModel(model interface{}, name string) error
	LoadModel(name string, into interface{}) error
	SaveTrainingData(features []domain.FeatureVector, metadata map[string]interface{}) error
}

package repository

import (
	"context"

	"ransomwatch/internal/domain"
)

// Collector interfaces are small and typed per metric source
// (Interface Segregation Principle). A collector must not fail for the
// expected absence of data; it returns empty collections instead. It
// may fail for access-denied conditions, which the engine treats as a
// partial-bundle degradation, not a fatal error.

// SystemCollector samples host-level resource metrics once per cycle
type SystemCollector interface {
	Collect(ctx context.Context) (domain.SystemSample, error)
}

// FileCollector reports file events observed since the previous cycle
type FileCollector interface {
	Collect(ctx context.Context) ([]domain.FileEvent, error)
}

// ProcessCollector reports processes that exceeded resource thresholds
// and failed legitimacy verification.
type ProcessCollector interface {
	Collect(ctx context.Context) ([]domain.ProcessSample, error)
}

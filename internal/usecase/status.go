package usecase

import (
	"time"
)

// GetStatus returns a snapshot of the engine state for reporting
func (s *DetectorService) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"is_trained":      s.trained,
		"collector_count": s.collectors.Count(),
		"backend_trained": s.backend.IsTrained(),
		"baseline":        s.baseline,
		"timestamp":       s.now().Format(time.RFC3339),
	}
}

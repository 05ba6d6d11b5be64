package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	RunID      string            `json:"run_id,omitempty"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check is "up" once a complete bundle is loaded and "degraded" otherwise.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	b := s.app.Bundle()
	switch {
	case b == nil:
		status.Status = "degraded"
		status.Components["bundle"] = "missing"
	case !b.IsComplete():
		status.Status = "degraded"
		status.RunID = b.RunID
		status.Components["bundle"] = fmt.Sprintf("incomplete (%d of %d files failed)", b.FailureCount(), b.FailureCount()+b.SuccessCount())
	default:
		status.RunID = b.RunID
		status.Components["bundle"] = fmt.Sprintf("ok (%d files, %d symbols)", b.SuccessCount(), len(b.Symbols()))
	}

	if hits, misses, ok := s.app.pipeline.CacheStats(); ok {
		status.Components["cache"] = fmt.Sprintf("ok (%d hits, %d misses)", hits, misses)
	}
	return status
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthCheck is the payload served at /health.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type HealthChecker struct {
	pool    *pgxpool.Pool
	version string
}

func NewHealthChecker(pool *pgxpool.Pool, version string) *HealthChecker {
	return &HealthChecker{pool: pool, version: version}
}

// Health reports overall server health. The database check degrades the
// status to unhealthy and flips the HTTP status so load balancers stop
// routing traffic here.
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result := HealthCheck{
		Status:    "ok",
		Version:   h.version,
		Checks:    map[string]CheckResult{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	start := time.Now()
	if err := h.pool.Ping(ctx); err != nil {
		result.Status = "unhealthy"
		result.Checks["database"] = CheckResult{
			Status:    "fail",
			Message:   err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	} else {
		result.Checks["database"] = CheckResult{
			Status:    "pass",
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	status := http.StatusOK
	if result.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

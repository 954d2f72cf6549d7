package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/campus-coord/internal/logger"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

// Check probes one dependency; nil means healthy.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz answers 200 when every dependency responds, 503 otherwise.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			l := logger.FromContext(r.Context(), "health")
			l.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			metrics.SetDependencyHealth(name, false)
			deps[name] = "down"
			status = "degraded"
			continue
		}
		metrics.SetDependencyHealth(name, true)
		deps[name] = "up"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, map[string]any{"status": status, "dependencies": deps})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
)

// Pinger is implemented by backends that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
	log  *zap.Logger
}

// NewHealthHandler takes named dependencies to check; nil entries are skipped.
func NewHealthHandler(deps map[string]Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, log: log}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, models.APIResponse{
			Success: false,
			Message: "Service degraded",
			Data:    status,
		})
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("OK", status))
}

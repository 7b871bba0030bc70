package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process liveness and dependency health.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a health handler. Checks are optional; standalone
// mode registers none.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, checks: make(map[string]Pinger)}
}

// AddCheck registers a named dependency check.
func (h *HealthHandler) AddCheck(name string, p Pinger) {
	h.checks[name] = p
}

// Register mounts the health route.
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
}

// Health returns 200 when all dependencies respond, 503 otherwise.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	body := gin.H{"status": "ok", "version": h.version}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	c.JSON(status, body)
}

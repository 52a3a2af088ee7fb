package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if len(h.checks) == 0 {
		c.String(http.StatusOK, "ok")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			response.RespondError(c, http.StatusServiceUnavailable, "unhealthy", fmt.Errorf("%s: %w", name, err))
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

package api

import (
	"context"
	"net/http"
	"time"

	"emiho-marketplace/pkg/logging"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// Health reports the state of the database and cache
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(h.HealthChecks))
	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			logging.Errorf("Health check %s failed: %v", name, err)
			checks[name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.ServiceName,
		"checks":  checks,
	})
}

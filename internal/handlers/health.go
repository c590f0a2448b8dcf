package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "now": time.Now().UTC().Format(time.RFC3339Nano)})
}

// Health reports 503 only when the database is unreachable; redis backs
// the optional mail queue and is reported but not required.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := healthResponse{
		Status:      "ok",
		Database:    "ok",
		Cache:       "disabled",
		Environment: h.cfg.Environment,
	}

	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
		resp.Database = "error"
		h.log.Error().Err(err).Msg("database ping failed")
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	c.JSON(status, resp)
}

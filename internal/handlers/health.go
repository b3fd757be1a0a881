package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Gateway     string `json:"gateway"`
	LocalStore  string `json:"localStore"`
	Mode        string `json:"mode"`
	Environment string `json:"environment"`
}

// Health never fails the request; a dead backend only means offline mode.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	gatewayStatus := "ok"
	if err := h.app.Probe(ctx); err != nil {
		gatewayStatus = "error"
		h.log.Warn().Err(err).Msg("gateway probe failed")
	}

	storeStatus := "ok"
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			storeStatus = "error"
			h.log.Error().Err(err).Msg("local store ping failed")
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Gateway:     gatewayStatus,
		LocalStore:  storeStatus,
		Mode:        string(h.app.Sessions.Mode()),
		Environment: h.cfg.Environment,
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/api/transport"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/infrastructure/monitor"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
)

// StatusSource reports dependency reachability.
type StatusSource interface {
	GetStatus() monitor.Status
}

// RunSource reports the most recent refresh.
type RunSource interface {
	Last() services.RunInfo
}

type HealthHandler struct {
	baseHandler
	monitor   StatusSource
	refresher RunSource
}

func NewHealthHandler(mon StatusSource, refresher RunSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		refresher:   refresher,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]any{
		"timestamp": time.Now().UTC(),
		"services": map[string]any{
			"host": status.Host,
			"cache": map[string]any{
				"online":  status.Cache,
				"backend": status.Backend,
			},
		},
		"entities":   status.Entities,
		"last_check": status.LastCheck,
	}
	if h.refresher != nil {
		payload["last_refresh"] = h.refresher.Last()
	}

	if status.Host && status.Cache {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}

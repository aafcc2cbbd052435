package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/api/transport"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/settings"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
)

type SettingsHandler struct {
	baseHandler
	settings *settings.Service
}

func NewSettingsHandler(svc *settings.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		settings:    svc,
	}
}

// @Summary Effective settings
// @Tags settings
// @Router /api/v1/settings [get]
func (h *SettingsHandler) Get(ctx *fasthttp.RequestCtx) {
	h.respondSuccess(ctx, http.StatusOK, transport.SettingsResponse{
		Settings:  h.settings.Get(),
		Overrides: h.settings.Overrides(),
	})
}

// @Summary Patch setting overrides; null resets a key
// @Tags settings
// @Router /api/v1/settings [patch]
func (h *SettingsHandler) Patch(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var patch map[string]any
	if err := decodeBody(ctx, &patch); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	updated, err := h.settings.Patch(stdCtx, patch)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SettingsResponse{
		Settings:  updated,
		Overrides: h.settings.Overrides(),
	})
}

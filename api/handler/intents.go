package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/api/transport"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
	appLogger "github.com/gavinmorrow/hunter-extension-sub000/pkg/logger"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
)

// IntentHandler forwards presentation intents to the dispatcher.
type IntentHandler struct {
	baseHandler
	dispatcher *usecase.Dispatcher
}

func NewIntentHandler(d *usecase.Dispatcher, adapter *httpcontext.Adapter, logger *zap.Logger) *IntentHandler {
	return &IntentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  d,
	}
}

// @Summary Raise a change-entity or create-task intent
// @Tags intents
// @Router /api/v1/intents [post]
func (h *IntentHandler) Raise(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.IntentRequest
	if err := decodeBody(ctx, &req); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}

	appLogger.WithRequestID(stdCtx, h.logger).Debug("intent received",
		zap.String("type", req.Type),
		zap.String("subject", httpcontext.Subject(stdCtx)))

	out, err := h.dispatcher.Dispatch(stdCtx, req)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, out)
}

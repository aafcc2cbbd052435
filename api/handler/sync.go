package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/api/transport"
	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
)

// ScrapeMerger merges records read from the host page.
type ScrapeMerger interface {
	MergeScraped(ctx context.Context, records []domain.ScrapeRecord) error
	Snapshot() []domain.Assignment
}

// RefreshRunner runs a refresh on demand.
type RefreshRunner interface {
	Run(ctx context.Context, force bool) (services.RunInfo, error)
}

// SyncHandler accepts scraped records and on-demand refreshes.
type SyncHandler struct {
	baseHandler
	merger    ScrapeMerger
	refresher RefreshRunner
}

func NewSyncHandler(merger ScrapeMerger, refresher RefreshRunner, adapter *httpcontext.Adapter, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		baseHandler: newBaseHandler(adapter, logger),
		merger:      merger,
		refresher:   refresher,
	}
}

// @Summary Merge scraped records
// @Tags sync
// @Router /api/v1/scrape [post]
func (h *SyncHandler) Scrape(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ScrapeRequest
	if err := decodeBody(ctx, &req); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if len(req.Records) == 0 {
		h.badRequest(ctx, "no records")
		return
	}
	if err := h.merger.MergeScraped(stdCtx, req.Records); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.ScrapeResponse{
		Received: len(req.Records),
		Total:    len(h.merger.Snapshot()),
	})
}

// @Summary Refresh from the host now
// @Tags sync
// @Router /api/v1/refresh [post]
func (h *SyncHandler) Refresh(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	info, err := h.refresher.Run(stdCtx, true)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, info)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/view"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/hostdate"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase/calendar"
)

// BannerDismisser removes a shown banner.
type BannerDismisser interface {
	Dismiss(id string) bool
}

// CalendarHandler serves the read side of the calendar.
type CalendarHandler struct {
	baseHandler
	dispatcher *usecase.Dispatcher
	view       *view.Calendar
	banners    BannerDismisser
	now        func() time.Time
	pollWait   time.Duration
}

func NewCalendarHandler(d *usecase.Dispatcher, v *view.Calendar, banners BannerDismisser, adapter *httpcontext.Adapter, logger *zap.Logger) *CalendarHandler {
	wait := 25 * time.Second
	if adapter != nil && adapter.Timeout() <= wait {
		wait = adapter.Timeout() - time.Second
	}
	return &CalendarHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  d,
		view:        v,
		banners:     banners,
		now:         time.Now,
		pollWait:    wait,
	}
}

// @Summary List assignments, or one assignment with ?id=
// @Tags calendar
// @Router /api/v1/assignments [get]
func (h *CalendarHandler) Assignments(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if id := string(ctx.QueryArgs().Peek("id")); id != "" {
		a, err := h.dispatcher.ExecuteQuery(stdCtx, calendar.QueryAssignment, map[string]string{"id": id})
		if err != nil {
			h.respondError(stdCtx, ctx, err)
			return
		}
		h.respondSuccess(ctx, http.StatusOK, a)
		return
	}

	out, err := h.dispatcher.ExecuteQuery(stdCtx, calendar.QueryAssignments, nil)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	list, _ := out.([]domain.Assignment)
	h.respondList(ctx, list, len(list))
}

// @Summary Week grid containing ?week=yyyy-mm-dd (default today)
// @Tags calendar
// @Router /api/v1/calendar [get]
func (h *CalendarHandler) Week(ctx *fasthttp.RequestCtx) {
	day := h.now()
	if raw := string(ctx.QueryArgs().Peek("week")); raw != "" {
		parsed, err := hostdate.FromInputValue(raw)
		if err != nil {
			h.badRequest(ctx, "week must be yyyy-mm-dd")
			return
		}
		day = parsed
	}
	h.respondSuccess(ctx, http.StatusOK, h.view.Week(day))
}

// @Summary Long-poll view events after ?since=
// @Tags calendar
// @Router /api/v1/events [get]
func (h *CalendarHandler) Events(ctx *fasthttp.RequestCtx) {
	var since uint64
	if raw := string(ctx.QueryArgs().Peek("since")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.badRequest(ctx, "since must be a sequence number")
			return
		}
		since = parsed
	}
	wait := h.pollWait
	if raw := string(ctx.QueryArgs().Peek("wait")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			h.badRequest(ctx, "wait must be a duration")
			return
		}
		if parsed < wait {
			wait = parsed
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	pollCtx, stop := context.WithTimeout(stdCtx, wait)
	defer stop()

	h.respondSuccess(ctx, http.StatusOK, h.view.Since(pollCtx, since))
}

// @Summary Dismiss a banner
// @Tags calendar
// @Router /api/v1/banners/{id} [delete]
func (h *CalendarHandler) DismissBanner(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing banner id")
		return
	}
	if !h.banners.Dismiss(id) {
		stdCtx, cancel := h.requestContext(ctx)
		defer cancel()
		h.respondError(stdCtx, ctx, domain.NewError(domain.ErrCodeNotFound, "banner not found"))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"dismissed": id})
}

package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/gavinmorrow/hunter-extension-sub000/api/handler"
)

type Handlers struct {
	Health   *apiHandler.HealthHandler
	Calendar *apiHandler.CalendarHandler
	Intents  *apiHandler.IntentHandler
	Sync     *apiHandler.SyncHandler
	Settings *apiHandler.SettingsHandler
}

// New builds the local API router. A nil authMiddleware leaves the API routes open.
func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	if authMiddleware == nil {
		authMiddleware = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	api.GET("/assignments", authMiddleware(handlers.Calendar.Assignments))
	api.GET("/calendar", authMiddleware(handlers.Calendar.Week))
	api.GET("/events", authMiddleware(handlers.Calendar.Events))
	api.DELETE("/banners/{id}", authMiddleware(handlers.Calendar.DismissBanner))

	api.POST("/intents", authMiddleware(handlers.Intents.Raise))

	api.POST("/scrape", authMiddleware(handlers.Sync.Scrape))
	api.POST("/refresh", authMiddleware(handlers.Sync.Refresh))

	api.GET("/settings", authMiddleware(handlers.Settings.Get))
	api.PATCH("/settings", authMiddleware(handlers.Settings.Patch))

	return r
}

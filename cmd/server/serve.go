package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/gavinmorrow/hunter-extension-sub000/api/handler"
	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/config"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/infrastructure/hostapi"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/infrastructure/monitor"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/middleware"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/router"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services/lifecycle"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services/notify"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/settings"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/view"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/logger"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/waitfor"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase/calendar"
)

const actionStartup = "startup"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon and the local API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	store, cachePing, err := openStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Error("cache unavailable", zap.Error(err))
		return err
	}
	manager.Register("cache", func(ctx context.Context) error {
		return store.Close()
	})

	prefs, err := settings.NewService(store, settings.Settings{
		WeekStart:       cfg.View.WeekStart.String(),
		ShowWeekends:    cfg.View.ShowWeekends,
		RefreshInterval: cfg.Refresh.Interval.String(),
	}, zapLogger)
	if err != nil {
		return err
	}
	if err := prefs.Load(appCtx); err != nil {
		zapLogger.Warn("settings overrides unavailable", zap.Error(err))
	}
	current := prefs.Get()
	weekStart, _ := current.Weekday()

	gateway := hostapi.New(hostapi.Config{
		BaseURL:         cfg.Host.BaseURL,
		SessionToken:    cfg.Host.SessionToken,
		StudentID:       cfg.Host.StudentID,
		Timeout:         cfg.Host.RequestTimeout,
		MaxConnsPerHost: cfg.Host.MaxConnsPerHost,
	}, zapLogger)

	calendarView := view.New(view.Options{
		WeekStart: weekStart,
		Location:  cfg.Host.Location(),
		Buffer:    cfg.View.EventBuffer,
	})
	calendarView.SetColorOverrides(current.Colors())

	notifier := notify.New(notify.Options{
		Sink:           calendarView,
		SuppressWindow: cfg.Notify.SuppressWindow,
		Logger:         zapLogger,
	})

	orchestrator := calendar.New(calendar.Options{
		Gateway:           gateway,
		Renderer:          calendarView,
		Reporter:          notifier,
		Cache:             store,
		Logger:            zapLogger,
		Location:          cfg.Host.Location(),
		EnrichConcurrency: int64(cfg.Refresh.EnrichConcurrency),
	})
	orchestrator.SetHiddenDays(current.HiddenDays())
	manager.Register("orchestrator", func(ctx context.Context) error {
		orchestrator.Close()
		return nil
	})

	prefs.OnChange(func(s settings.Settings) {
		if day, err := s.Weekday(); err == nil {
			calendarView.SetWeekStart(day)
		}
		calendarView.SetColorOverrides(s.Colors())
		orchestrator.SetHiddenDays(s.HiddenDays())
	})

	if err := orchestrator.LoadCached(appCtx); err != nil {
		zapLogger.Warn("starting without cached snapshot", zap.Error(err))
	}

	studentID, ok := waitfor.Poll(appCtx, cfg.Startup.WaitTimeout, cfg.Startup.PollInterval, func() (int64, bool) {
		ctx, cancel := context.WithTimeout(appCtx, cfg.Host.RequestTimeout)
		defer cancel()
		id, err := gateway.StudentID(ctx)
		return id, err == nil
	})
	if ok {
		zapLogger.Info("host session ready", zap.Int64("student_id", studentID))
	} else {
		notifier.Fatal(actionStartup, domain.WrapError(domain.ErrCodeUnauthorized,
			"the host session could not be found; sign in to the host and reload", domain.ErrUnauthorized))
	}

	mon := monitor.New(monitor.Options{
		Host:     gateway,
		Cache:    cachePing,
		Backend:  cfg.Cache.Backend,
		Entities: calendarView.Len,
		Interval: cfg.Refresh.MonitorInterval,
		Logger:   zapLogger,
	})
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	interval, err := current.Interval()
	if err != nil {
		interval = cfg.Refresh.Interval
	}
	refresher := services.NewRefresher(orchestrator, mon, zapLogger, services.RefresherConfig{
		Interval: interval,
		Timeout:  cfg.Refresh.Timeout,
	})
	refresher.Start()
	manager.Register("refresher", refresher.Stop)
	if ok {
		manager.Go("initial_refresh", func(ctx context.Context) error {
			if _, err := refresher.Run(ctx, true); err != nil {
				zapLogger.Warn("initial refresh failed", zap.Error(err))
			}
			return nil
		})
	}

	dispatcher := usecase.NewDispatcher()
	orchestrator.Register(dispatcher)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Health:   apiHandler.NewHealthHandler(mon, refresher, ctxAdapter, zapLogger),
		Calendar: apiHandler.NewCalendarHandler(dispatcher, calendarView, notifier, ctxAdapter, zapLogger),
		Intents:  apiHandler.NewIntentHandler(dispatcher, ctxAdapter, zapLogger),
		Sync:     apiHandler.NewSyncHandler(orchestrator, refresher, ctxAdapter, zapLogger),
		Settings: apiHandler.NewSettingsHandler(prefs, ctxAdapter, zapLogger),
	}

	var authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler
	if cfg.JWT.Secret != "" {
		authMiddleware = middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	} else {
		zapLogger.Warn("JWT_SECRET is empty; local API is unauthenticated")
	}
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func(ctx context.Context) error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	start := time.Now()
	err = manager.Wait()
	zapLogger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return err
}

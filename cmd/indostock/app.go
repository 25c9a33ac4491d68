package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/ahmadfadadm/indostock-ai/internal/collector"
	"github.com/ahmadfadadm/indostock-ai/internal/config"
	"github.com/ahmadfadadm/indostock-ai/internal/dashboard"
	"github.com/ahmadfadadm/indostock-ai/internal/insight"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/recorder"
)

// App bundles the wired components shared by every subcommand.
type App struct {
	Config     *config.Config
	Source     collector.RowSource
	Collector  *collector.Collector
	Fetcher    *insight.Fetcher
	Recorder   recorder.Recorder
	Controller *dashboard.Controller

	closers []func() error
}

func newApp(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	src, err := openSource(cfg)
	if err != nil {
		return nil, err
	}
	app.Source = src
	if c, ok := src.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	log.Printf("[INFO] row source: %s", src.Name())
	app.Collector = collector.NewCollector(src)

	var cache insight.Cache = insight.NewMemoryCache()
	if cfg.Cache.RedisAddr != "" {
		rc, err := insight.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("[WARN] redis cache unavailable, using in-process cache: %v", err)
		} else {
			cache = rc
			app.closers = append(app.closers, rc.Close)
			log.Printf("[INFO] insight cache: redis %s", cfg.Cache.RedisAddr)
		}
	}
	if cfg.Gemini.APIKey == "" {
		log.Println("[WARN] gemini api key not set, narratives will use the local fallback")
	}
	gen := insight.NewGeminiClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Proxy)
	app.Fetcher = insight.NewFetcher(cache, gen)
	app.Fetcher.Models = cfg.Gemini.Models
	app.Fetcher.AttemptTimeout = cfg.Gemini.AttemptTimeout
	app.Fetcher.RateLimitDelay = cfg.Gemini.RateLimitDelay

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			app.Recorder = recorder.NewNoopRecorder()
		} else {
			app.Recorder = sr
			app.closers = append(app.closers, sr.Close)
		}
	} else {
		app.Recorder = recorder.NewNoopRecorder()
	}

	app.Controller = dashboard.NewController(app.Collector, app.Fetcher, app.Recorder, cfg.Instruments, cfg.Reveal.Interval)
	return app, nil
}

func openSource(cfg *config.Config) (collector.RowSource, error) {
	switch cfg.DataSource.Driver {
	case config.DriverSupabase:
		return collector.NewSupabaseSource(cfg.DataSource.URL, cfg.DataSource.APIKey, cfg.Proxy), nil
	case config.DriverPostgres:
		src, err := collector.NewPostgresSource(cfg.DataSource.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres source: %w", err)
		}
		return src, nil
	case config.DriverSQLite:
		src, err := collector.NewSQLiteSource(cfg.DataSource.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite source: %w", err)
		}
		return src, nil
	case config.DriverMock:
		return collector.NewMockSource(), nil
	default:
		return nil, fmt.Errorf("unsupported data source driver %q", cfg.DataSource.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a.Controller != nil {
		a.Controller.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
}

// instrument resolves a user-supplied code such as "bbca" or "BBCA.JK".
func (a *App) instrument(arg string) (model.Instrument, error) {
	code := strings.ToUpper(strings.TrimSpace(arg))
	if !strings.HasSuffix(code, model.ExchangeSuffix) {
		code += model.ExchangeSuffix
	}
	for _, inst := range a.Config.Instruments {
		if inst.Code == code {
			return inst, nil
		}
	}
	return model.Instrument{}, fmt.Errorf("%s: %w", code, dashboard.ErrUnknownInstrument)
}

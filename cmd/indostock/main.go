package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmadfadadm/indostock-ai/internal/calculator"
	"github.com/ahmadfadadm/indostock-ai/internal/config"
	"github.com/ahmadfadadm/indostock-ai/internal/httpapi"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/report"
	"github.com/ahmadfadadm/indostock-ai/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "indostock",
		Short:        "IDX stock dashboard backend: forecasts, sentiment and AI insight",
		SilenceUsage: true,
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "path to the YAML config file")

	load := func() (*App, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
		return newApp(cfg)
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newSnapshotCmd(load))
	root.AddCommand(newInsightCmd(load))
	root.AddCommand(newEvaluateCmd(load))
	return root
}

type loader func() (*App, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled refreshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.Println("[INFO] indostock starting...")
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := app.Controller.Init(ctx); err != nil {
				log.Printf("[WARN] initial load: %v", err)
			}

			sched := scheduler.NewScheduler(ctx, app.Controller)
			if err := sched.RegisterAll(app.Config.Schedule.RefreshCron, app.Config.Schedule.BucketCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if os.Getenv("RUN_ON_START") == "true" {
				log.Println("[INFO] RUN_ON_START enabled, refreshing now")
				go sched.RunRefreshNow()
			}

			api := httpapi.NewServer(ctx, app.Controller, app.Config.Reveal.Interval)
			if fr, ok := app.Recorder.(httpapi.FallbackReporter); ok {
				api.Fallbacks = fr
			}
			srv := &http.Server{
				Addr:              app.Config.Server.Addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Printf("[INFO] listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				log.Println("[INFO] shutdown signal received, stopping...")
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			}

			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("[WARN] http shutdown: %v", err)
			}
			log.Println("[INFO] indostock stopped")
			return nil
		},
	}
}

func newSnapshotCmd(load loader) *cobra.Command {
	var sortKey string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest price and change of every instrument",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			snaps, err := app.Collector.Snapshots(ctx, app.Config.Instruments)
			if err != nil {
				return err
			}
			key := calculator.SortKey(sortKey)
			calculator.SortSnapshots(snaps, key, calculator.DefaultAscending(key))
			fmt.Fprint(cmd.OutOrStdout(), report.FormatSnapshots(snaps))
			return nil
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", string(calculator.SortByChange), "sort column: code, type, price or change")
	return cmd
}

func newInsightCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:     "insight <code>",
		Short:   "Fetch the AI narrative for an instrument",
		Example: "  indostock insight BBCA\n  indostock insight TLKM.JK",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			inst, err := app.instrument(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			var price, change float64
			snaps, err := app.Collector.Snapshots(ctx, []model.Instrument{inst})
			if err == nil && len(snaps) == 1 {
				price, change = snaps[0].Price, snaps[0].ChangePct
			} else {
				log.Printf("[WARN] no snapshot for %s, prompting with zero price", inst.Code)
			}
			rec := app.Fetcher.Fetch(ctx, inst.Ticker(), price, change)
			fmt.Fprint(cmd.OutOrStdout(), report.FormatInsight(inst.Ticker(), rec))
			return nil
		},
	}
}

func newEvaluateCmd(load loader) *cobra.Command {
	var rangeFlag string
	cmd := &cobra.Command{
		Use:   "evaluate <code>",
		Short: "Show the forecast signal and model quality metrics for an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			inst, err := app.instrument(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			rng := model.ParseRange(rangeFlag)
			points, err := app.Collector.Chart(ctx, inst.Code, rng)
			if err != nil {
				return fmt.Errorf("load chart: %w", err)
			}
			metrics, err := calculator.EvaluateForecast(points)
			if err != nil && !errors.Is(err, calculator.ErrInsufficientData) {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.FormatEvaluation(inst.Code, rng, calculator.InterpretForecast(points), metrics))
			return nil
		},
	}
	cmd.Flags().StringVar(&rangeFlag, "range", string(model.Range1Y), "chart window: 5D, 1M, 6M, YTD or 1Y")
	return cmd
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahmadfadadm/indostock-ai/internal/dashboard"
	"github.com/ahmadfadadm/indostock-ai/internal/insight"
)

// Refresher runs one full refresh cycle; it reports false when skipped.
type Refresher interface {
	RefreshAll(ctx context.Context, trigger string) bool
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r Refresher) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Refresher: r,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the refresh and cache-bucket tasks.
func (s *Scheduler) RegisterAll(refreshCron, bucketCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(bucketCron, s.bucketTask); err != nil {
		return fmt.Errorf("register bucket task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes a refresh immediately (for RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	if !s.Refresher.RefreshAll(s.Ctx, dashboard.TriggerStartup) {
		log.Println("[WARN] startup refresh skipped, another cycle is running")
	}
}

func (s *Scheduler) refreshTask() {
	if s.Ctx.Err() != nil {
		return
	}
	log.Println("[INFO] running scheduled refresh")
	s.Refresher.RefreshAll(s.Ctx, dashboard.TriggerCron)
}

// bucketTask marks the insight cache rolling into a new hour bucket; every
// narrative requested from now on is fetched fresh.
func (s *Scheduler) bucketTask() {
	log.Printf("[INFO] insight cache bucket is now %s", insight.HourBucket(s.Now()))
}

// Package dashboard holds the selection state of the stock dashboard and
// derives every display value from the latest fetched rows.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ahmadfadadm/indostock-ai/internal/calculator"
	"github.com/ahmadfadadm/indostock-ai/internal/collector"
	"github.com/ahmadfadadm/indostock-ai/internal/insight"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/recorder"
	"github.com/ahmadfadadm/indostock-ai/internal/reveal"
)

// TopMoversCount is how many movers the overview lists.
const TopMoversCount = 5

var ErrUnknownInstrument = errors.New("unknown instrument")

// Refresh triggers recorded with each cycle.
const (
	TriggerManual  = "manual"
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

// View is a consistent copy of everything the dashboard shows.
type View struct {
	Selected     *model.MarketSnapshot        `json:"selected,omitempty"`
	Range        model.Range                  `json:"range"`
	Snapshots    []model.MarketSnapshot       `json:"snapshots"`
	TopMovers    []model.MarketSnapshot       `json:"top_movers"`
	Chart        []model.PricePoint           `json:"chart"`
	Volatility   model.VolatilityReading      `json:"volatility"`
	Forecast     model.ForecastInterpretation `json:"forecast"`
	Sentiment    model.SentimentShare         `json:"sentiment"`
	News         []model.NewsItem             `json:"news"`
	Evaluation   *model.EvaluationMetrics     `json:"evaluation,omitempty"`
	Insight      *model.InsightRecord         `json:"insight,omitempty"`
	RevealedText string                       `json:"revealed_text"`
	Refreshing   bool                         `json:"refreshing"`
	LastRefresh  time.Time                    `json:"last_refresh"`
}

// Controller serialises dashboard state behind a mutex. Fetches run outside
// the lock; their results are applied only if the selection they were issued
// for is still current.
type Controller struct {
	collector   *collector.Collector
	fetcher     *insight.Fetcher
	recorder    recorder.Recorder
	instruments []model.Instrument
	reveal      *reveal.Scheduler
	revealed    reveal.Buffer

	refreshing atomic.Bool

	mu          sync.Mutex
	selected    string
	rng         model.Range
	generation  uint64
	snapshots   []model.MarketSnapshot
	chart       []model.PricePoint
	news        []model.NewsItem
	insight     *model.InsightRecord
	lastRefresh time.Time
}

// NewController creates a Controller. rec may be nil.
func NewController(col *collector.Collector, f *insight.Fetcher, rec recorder.Recorder, instruments []model.Instrument, revealInterval time.Duration) *Controller {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if len(instruments) == 0 {
		instruments = model.DefaultInstruments
	}
	c := &Controller{
		collector:   col,
		fetcher:     f,
		recorder:    rec,
		instruments: instruments,
		reveal:      reveal.NewScheduler(revealInterval),
		rng:         model.Range1M,
	}
	if f.OnAcquire == nil {
		f.OnAcquire = c.recordInsight
	}
	return c
}

func (c *Controller) recordInsight(code string, rec model.InsightRecord) {
	if err := c.recorder.RecordInsight(&recorder.InsightEvent{
		Code:   code,
		Bucket: rec.FetchedAtBucket,
		Source: string(rec.Source),
		Model:  rec.Model,
	}); err != nil {
		log.Printf("[ERROR] record insight: %v", err)
	}
}

// Instruments returns the configured universe.
func (c *Controller) Instruments() []model.Instrument { return c.instruments }

// Init loads snapshots and selects the default instrument: BBCA.JK when it
// has data, else the first snapshot.
func (c *Controller) Init(ctx context.Context) error {
	if err := c.refreshSnapshots(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	code := ""
	if c.selected == "" {
		for _, s := range c.snapshots {
			if s.Code == model.DefaultSelection {
				code = s.Code
				break
			}
		}
		if code == "" && len(c.snapshots) > 0 {
			code = c.snapshots[0].Code
		}
	}
	c.mu.Unlock()

	if code == "" {
		log.Println("[WARN] no instrument has data, nothing selected")
		return nil
	}
	return c.Select(ctx, code)
}

func (c *Controller) lookup(code string) (model.Instrument, bool) {
	for _, inst := range c.instruments {
		if inst.Code == code {
			return inst, true
		}
	}
	return model.Instrument{}, false
}

// Select makes code the current instrument, resets the range to 1M, then
// loads its chart, news and narrative in that order.
func (c *Controller) Select(ctx context.Context, code string) error {
	if _, ok := c.lookup(code); !ok {
		return fmt.Errorf("select %s: %w", code, ErrUnknownInstrument)
	}
	c.mu.Lock()
	c.selected = code
	c.rng = model.Range1M
	c.generation++
	gen := c.generation
	c.chart, c.news, c.insight = nil, nil, nil
	c.reveal.Stop()
	c.revealed.Set("")
	c.mu.Unlock()

	c.loadChart(ctx, gen, code, model.Range1M)
	c.loadNews(ctx, gen, code)
	c.loadInsight(ctx, gen, code)
	return nil
}

// SetRange changes the chart window of the current selection.
func (c *Controller) SetRange(ctx context.Context, r model.Range) {
	c.mu.Lock()
	c.rng = r
	code, gen := c.selected, c.generation
	c.mu.Unlock()
	if code == "" {
		return
	}
	c.loadChart(ctx, gen, code, r)
}

// RefreshAll reloads snapshots, chart, news and (with a selection) the
// narrative concurrently and waits for all of them. It returns false without
// doing anything when a refresh is already running.
func (c *Controller) RefreshAll(ctx context.Context, trigger string) bool {
	if !c.refreshing.CompareAndSwap(false, true) {
		log.Println("[INFO] refresh already in flight, skipping")
		return false
	}
	defer c.refreshing.Store(false)

	cycle := &recorder.RefreshCycle{ID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now()}
	log.Printf("[INFO] refresh %s started (%s)", cycle.ID, trigger)

	c.mu.Lock()
	code, rng, gen := c.selected, c.rng, c.generation
	c.mu.Unlock()

	var failures atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.refreshSnapshots(gctx); err != nil {
			failures.Add(1)
		}
		return nil
	})
	if code != "" {
		g.Go(func() error {
			if !c.loadNews(gctx, gen, code) {
				failures.Add(1)
			}
			return nil
		})
		g.Go(func() error {
			if !c.loadChart(gctx, gen, code, rng) {
				failures.Add(1)
			}
			return nil
		})
		g.Go(func() error {
			c.loadInsight(gctx, gen, code)
			return nil
		})
	}
	_ = g.Wait()

	cycle.Duration = time.Since(cycle.StartedAt)
	cycle.Errors = int(failures.Load())
	c.mu.Lock()
	cycle.Snapshots = len(c.snapshots)
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	if err := c.recorder.RecordRefresh(cycle); err != nil {
		log.Printf("[ERROR] record refresh: %v", err)
	}
	log.Printf("[INFO] refresh %s done in %v: %d snapshots, %d errors", cycle.ID, cycle.Duration, cycle.Snapshots, cycle.Errors)
	return true
}

// Refreshing reports whether a RefreshAll cycle is running.
func (c *Controller) Refreshing() bool { return c.refreshing.Load() }

func (c *Controller) refreshSnapshots(ctx context.Context) error {
	snaps, err := c.collector.Snapshots(ctx, c.instruments)
	if err != nil {
		log.Printf("[ERROR] refresh snapshots: %v", err)
		return err
	}
	c.mu.Lock()
	c.snapshots = snaps
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadChart(ctx context.Context, gen uint64, code string, r model.Range) bool {
	pts, err := c.collector.Chart(ctx, code, r)
	if err != nil {
		log.Printf("[WARN] chart %s %s: %v", code, r, err)
		pts = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || r != c.rng {
		log.Printf("[INFO] discarding stale chart for %s %s", code, r)
		return err == nil
	}
	c.chart = pts
	return err == nil
}

func (c *Controller) loadNews(ctx context.Context, gen uint64, code string) bool {
	items, err := c.collector.News(ctx, code)
	if err != nil {
		log.Printf("[WARN] news %s: %v", code, err)
		items = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Printf("[INFO] discarding stale news for %s", code)
		return err == nil
	}
	c.news = items
	return err == nil
}

func (c *Controller) loadInsight(ctx context.Context, gen uint64, code string) {
	price, change := c.priceOf(code)
	rec := c.fetcher.Fetch(ctx, model.TrimExchange(code), price, change)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Printf("[INFO] discarding stale insight for %s", code)
		return
	}
	changed := c.insight == nil || c.insight.Text != rec.Text
	c.insight = &rec
	if changed {
		c.reveal.Start(rec.Text, c.revealed.Set)
	}
}

func (c *Controller) priceOf(code string) (price, change float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.snapshots {
		if s.Code == code {
			return s.Price, s.ChangePct
		}
	}
	return 0, 0
}

// View returns the derived dashboard state.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		Range:       c.rng,
		Snapshots:   append([]model.MarketSnapshot(nil), c.snapshots...),
		Chart:       append([]model.PricePoint(nil), c.chart...),
		News:        append([]model.NewsItem(nil), c.news...),
		LastRefresh: c.lastRefresh,
	}
	selected := c.selected
	if c.insight != nil {
		rec := *c.insight
		v.Insight = &rec
	}
	c.mu.Unlock()

	v.Refreshing = c.refreshing.Load()
	v.RevealedText = c.revealed.String()

	for i := range v.Snapshots {
		if v.Snapshots[i].Code == selected {
			s := v.Snapshots[i]
			v.Selected = &s
			break
		}
	}
	if v.Selected != nil {
		v.Volatility = calculator.ClassifyVolatility(v.Selected.Volatility)
	} else {
		v.Volatility = calculator.ClassifyVolatility(nil)
	}

	v.TopMovers = calculator.TopMovers(v.Snapshots)
	if len(v.TopMovers) > TopMoversCount {
		v.TopMovers = v.TopMovers[:TopMoversCount]
	}
	v.Forecast = calculator.InterpretForecast(v.Chart)
	v.Sentiment = calculator.SentimentDistribution(v.News)
	if m, err := calculator.EvaluateForecast(v.Chart); err == nil {
		v.Evaluation = m
	}
	return v
}

// Selected returns the current instrument code, or "".
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Close stops the narrative reveal.
func (c *Controller) Close() {
	c.reveal.Stop()
}

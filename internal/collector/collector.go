package collector

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmadfadadm/indostock-ai/internal/calculator"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/series"
)

const (
	// SnapshotRows is how many recent rows a snapshot needs.
	SnapshotRows = 2
	// NewsLimit caps the articles pulled per instrument.
	NewsLimit = 10
	// DefaultParallelism bounds concurrent snapshot queries.
	DefaultParallelism = 8
)

var _ RowSource = (*MockSource)(nil)

// MockSource serves fixed rows for development and testing.
type MockSource struct {
	mu      sync.Mutex
	Rows    map[string][]model.PriceRow // by full code, any order
	News    map[string][]model.NewsItem // by bare ticker
	Err     error
	Queries int
}

// NewMockSource creates an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		Rows: make(map[string][]model.PriceRow),
		News: make(map[string][]model.NewsItem),
	}
}

func (m *MockSource) Name() string { return "mock" }

// AddRow appends a row under row.Code.
func (m *MockSource) AddRow(row model.PriceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows[row.Code] = append(m.Rows[row.Code], row)
}

// AddNews appends an article under its bare ticker.
func (m *MockSource) AddNews(item model.NewsItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.News[item.Code] = append(m.News[item.Code], item)
}

func (m *MockSource) QueryPriceHistory(_ context.Context, code string, q series.Query) ([]model.PriceRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	if m.Err != nil {
		return nil, fetchErr(m.Name(), "price history", code, m.Err)
	}
	var out []model.PriceRow
	for _, r := range m.Rows[code] {
		if q.Since != nil && r.Date.Format("2006-01-02") < q.Since.Format("2006-01-02") {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MockSource) QueryNews(_ context.Context, ticker string, limit int) ([]model.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	if m.Err != nil {
		return nil, fetchErr(m.Name(), "news", ticker, m.Err)
	}
	out := append([]model.NewsItem(nil), m.News[ticker]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Collector turns row-source queries into snapshots, chart series and news.
type Collector struct {
	Source      RowSource
	Parallelism int
	Now         func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(source RowSource) *Collector {
	return &Collector{Source: source, Parallelism: DefaultParallelism, Now: time.Now}
}

// Snapshots builds one snapshot per instrument, preserving input order.
// Instruments whose rows fail to load or are empty are logged and skipped;
// an error is returned only when ctx is done.
func (c *Collector) Snapshots(ctx context.Context, instruments []model.Instrument) ([]model.MarketSnapshot, error) {
	type result struct {
		snap model.MarketSnapshot
		ok   bool
	}
	results := make([]result, len(instruments))
	limit := c.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}
	sem := make(chan struct{}, limit)

	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range instruments {
		i, inst := i, inst
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			rows, err := c.Source.QueryPriceHistory(gctx, inst.Code, series.Query{Limit: SnapshotRows})
			if err != nil {
				log.Printf("[WARN] snapshot %s: %v", inst.Code, err)
				return nil
			}
			snap, ok := calculator.BuildSnapshot(inst, rows)
			if !ok {
				log.Printf("[WARN] snapshot %s: no rows", inst.Code)
				return nil
			}
			results[i] = result{snap: snap, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect snapshots: %w", err)
	}

	snaps := make([]model.MarketSnapshot, 0, len(instruments))
	for _, r := range results {
		if r.ok {
			snaps = append(snaps, r.snap)
		}
	}
	return snaps, nil
}

// Chart loads and normalizes the price series of code for rng.
func (c *Collector) Chart(ctx context.Context, code string, rng model.Range) ([]model.PricePoint, error) {
	now := c.Now()
	rows, err := c.Source.QueryPriceHistory(ctx, code, series.QueryFor(rng, now))
	if err != nil {
		return nil, err
	}
	return series.Normalize(rows, rng, now), nil
}

// News loads the latest articles for a full instrument code.
func (c *Collector) News(ctx context.Context, code string) ([]model.NewsItem, error) {
	items, err := c.Source.QueryNews(ctx, model.TrimExchange(code), NewsLimit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = model.SourceFromURL(items[i].URL)
		}
	}
	return items, nil
}

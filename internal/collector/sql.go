package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/series"
)

var _ RowSource = (*SQLSource)(nil)

// SQLSource reads the prediction store directly over database/sql. The same
// queries serve Postgres (the hosted store) and SQLite (local snapshots);
// only placeholder syntax differs.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewPostgresSource connects to the hosted Postgres store.
func NewPostgresSource(dsn string) (*SQLSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Println("[INFO] postgres row source connected")
	return &SQLSource{db: db, driver: "postgres"}, nil
}

// NewSQLiteSource opens (or creates) a local SQLite copy of the store and
// makes sure both tables exist.
func NewSQLiteSource(path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLSource{db: db, driver: "sqlite"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[INFO] sqlite row source opened: %s", path)
	return s, nil
}

func (s *SQLSource) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_predictions (
			code                 TEXT NOT NULL,
			date                 TEXT NOT NULL,
			actual_close         REAL,
			predicted_close      REAL,
			predicted_volatility REAL,
			PRIMARY KEY (code, date)
		)`,
		`CREATE TABLE IF NOT EXISTS sentimen_saham (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			code         TEXT NOT NULL,
			title        TEXT,
			url          TEXT,
			published_at TEXT,
			sentiment    TEXT,
			score        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_code_time ON sentimen_saham(code, published_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLSource) Name() string { return s.driver }

// DB exposes the handle for seeding local stores.
func (s *SQLSource) DB() *sql.DB { return s.db }

func (s *SQLSource) Close() error { return s.db.Close() }

func (s *SQLSource) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLSource) QueryPriceHistory(ctx context.Context, code string, q series.Query) ([]model.PriceRow, error) {
	var b strings.Builder
	args := []any{code}
	b.WriteString("SELECT code, date, actual_close, predicted_close, predicted_volatility FROM stock_predictions WHERE code = ")
	b.WriteString(s.placeholder(1))
	if q.Since != nil {
		args = append(args, q.Since.Format("2006-01-02"))
		b.WriteString(" AND date >= " + s.placeholder(len(args)))
	}
	b.WriteString(" ORDER BY date DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		b.WriteString(" LIMIT " + s.placeholder(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fetchErr(s.driver, "price history", code, err)
	}
	defer rows.Close()

	var out []model.PriceRow
	for rows.Next() {
		var (
			r                  model.PriceRow
			date               any
			actual, pred, vola sql.NullFloat64
		)
		if err := rows.Scan(&r.Code, &date, &actual, &pred, &vola); err != nil {
			return nil, fetchErr(s.driver, "price history", code, err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, fetchErr(s.driver, "price history", code, err)
		}
		r.Date = d
		r.ActualClose = nullable(actual)
		r.PredictedClose = nullable(pred)
		r.PredictedVolatility = nullable(vola)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(s.driver, "price history", code, err)
	}
	return out, nil
}

func (s *SQLSource) QueryNews(ctx context.Context, ticker string, limit int) ([]model.NewsItem, error) {
	query := "SELECT id, code, title, url, published_at, sentiment, score FROM sentimen_saham WHERE code = " +
		s.placeholder(1) + " ORDER BY published_at DESC LIMIT " + s.placeholder(2)
	rows, err := s.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		return nil, fetchErr(s.driver, "news", ticker, err)
	}
	defer rows.Close()

	var out []model.NewsItem
	for rows.Next() {
		var (
			n                    model.NewsItem
			title, link, sentTxt sql.NullString
			published            any
			score                sql.NullFloat64
		)
		if err := rows.Scan(&n.ID, &n.Code, &title, &link, &published, &sentTxt, &score); err != nil {
			return nil, fetchErr(s.driver, "news", ticker, err)
		}
		if published != nil {
			if t, err := parseDate(published); err == nil {
				n.PublishedAt = t
			} else {
				log.Printf("[WARN] news %d: bad published_at: %v", n.ID, err)
			}
		}
		n.Title = title.String
		n.URL = link.String
		n.Sentiment = model.NormalizeSentiment(sentTxt.String)
		n.Score = score.Float64
		n.Source = model.SourceFromURL(n.URL)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr(s.driver, "news", ticker, err)
	}
	return out, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate accepts the shapes the drivers hand back: time.Time from
// Postgres date/timestamp columns, text from SQLite and PostgREST.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case []byte:
		return parseDateString(string(d))
	case string:
		return parseDateString(d)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}

func parseDateString(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

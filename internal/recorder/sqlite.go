package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists activity to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_cycles (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			origin      TEXT,
			duration_ms INTEGER,
			snapshots   INTEGER,
			errors      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_ts ON refresh_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS insight_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code      TEXT NOT NULL,
			bucket    TEXT,
			source    TEXT,
			model     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insight_code_ts ON insight_events(code, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(c *RefreshCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_cycles
		(id, timestamp, origin, duration_ms, snapshots, errors)
		VALUES (?,?,?,?,?,?)`,
		c.ID, c.StartedAt.Unix(), c.Trigger, c.Duration.Milliseconds(), c.Snapshots, c.Errors,
	)
	return err
}

func (r *SQLiteRecorder) RecordInsight(evt *InsightEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO insight_events
		(timestamp, code, bucket, source, model)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Code, evt.Bucket, evt.Source, evt.Model,
	)
	return err
}

// FallbackShare returns the fraction of insight acquisitions since t that
// used the local fallback, or 0 when there were none.
func (r *SQLiteRecorder) FallbackShare(since time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total, fallback int
	err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN source = 'fallback' THEN 1 ELSE 0 END), 0)
		FROM insight_events WHERE timestamp >= ?`, since.Unix()).Scan(&total, &fallback)
	if err != nil {
		return 0, fmt.Errorf("query fallback share: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(fallback) / float64(total), nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

// Package series turns raw prediction-store rows into ordered chart points.
package series

import (
	"sort"
	"time"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// RecentRows is how many rows the 5D window keeps, regardless of calendar span.
const RecentRows = 5

// Query describes how a row source should trim a history request.
type Query struct {
	Limit int        // 0 means no limit
	Since *time.Time // nil means no lower date bound
}

// StartDate returns the inclusive lower date bound for r, computed from local
// midnight of now. The 5D window has no date bound and returns nil.
func StartDate(r model.Range, now time.Time) *time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start time.Time
	switch r {
	case model.Range5D:
		return nil
	case model.Range6M:
		start = today.AddDate(0, -6, 0)
	case model.RangeYTD:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	case model.Range1Y:
		start = today.AddDate(-1, 0, 0)
	default:
		start = today.AddDate(0, -1, 0)
	}
	return &start
}

// QueryFor returns the push-down query for r.
func QueryFor(r model.Range, now time.Time) Query {
	if r == model.Range5D {
		return Query{Limit: RecentRows}
	}
	return Query{Since: StartDate(r, now)}
}

// Normalize converts rows (most recent first) into an ascending series trimmed
// to r. Fewer rows than the window asks for is not an error. When two rows
// share a date the most recent one in input order wins.
func Normalize(rows []model.PriceRow, r model.Range, now time.Time) []model.PricePoint {
	kept := rows
	if r == model.Range5D {
		if len(kept) > RecentRows {
			kept = kept[:RecentRows]
		}
	} else {
		start := dateKey(*StartDate(r, now))
		kept = make([]model.PriceRow, 0, len(rows))
		for _, row := range rows {
			if dateKey(row.Date) >= start {
				kept = append(kept, row)
			}
		}
	}

	seen := make(map[string]bool, len(kept))
	points := make([]model.PricePoint, 0, len(kept))
	for _, row := range kept {
		key := dateKey(row.Date)
		if seen[key] {
			continue
		}
		seen[key] = true
		points = append(points, model.PricePoint{
			Date:           row.Date,
			ActualClose:    row.ActualClose,
			PredictedClose: row.PredictedClose,
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// dateKey compares calendar dates, not instants: store rows are date-only and
// usually decoded as UTC while StartDate is local.
func dateKey(t time.Time) string { return t.Format("2006-01-02") }

package model

import "time"

// PriceRow is a raw row from the stock_predictions store.
type PriceRow struct {
	Code                string
	Date                time.Time
	ActualClose         *float64
	PredictedClose      *float64
	PredictedVolatility *float64
}

// PricePoint is a single normalized chart point. ActualClose is nil for
// forecast-only dates.
type PricePoint struct {
	Date           time.Time `json:"date"`
	ActualClose    *float64  `json:"actual_close,omitempty"`
	PredictedClose *float64  `json:"predicted_close,omitempty"`
}

// HasActual reports whether the point carries an observed close.
func (p PricePoint) HasActual() bool { return p.ActualClose != nil }

// Range identifies a chart window.
type Range string

const (
	Range5D  Range = "5D"
	Range1M  Range = "1M"
	Range6M  Range = "6M"
	RangeYTD Range = "YTD"
	Range1Y  Range = "1Y"
)

// Ranges lists the selectable chart windows in display order.
var Ranges = []Range{Range5D, Range1M, Range6M, RangeYTD, Range1Y}

// ParseRange returns the Range for s, falling back to 1M for unknown values.
func ParseRange(s string) Range {
	for _, r := range Ranges {
		if string(r) == s {
			return r
		}
	}
	return Range1M
}

// MarketSnapshot is the per-refresh view of one instrument.
type MarketSnapshot struct {
	Instrument
	Price      float64  `json:"price"`
	ChangePct  float64  `json:"change_pct"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// Float returns a pointer to v. Handy for building rows in tests and adapters.
func Float(v float64) *float64 { return &v }

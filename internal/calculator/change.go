package calculator

import "github.com/ahmadfadadm/indostock-ai/internal/model"

// ChangePct returns the percentage move from previous to latest, or 0 when
// previous is 0.
func ChangePct(latest, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (latest - previous) / previous * 100
}

// PreferredPrice returns the observed close, falling back to the forecast,
// then to def. Zero closes fall through like missing ones.
func PreferredPrice(row model.PriceRow, def float64) float64 {
	if row.ActualClose != nil && *row.ActualClose != 0 {
		return *row.ActualClose
	}
	if row.PredictedClose != nil && *row.PredictedClose != 0 {
		return *row.PredictedClose
	}
	return def
}

// BuildSnapshot derives a MarketSnapshot from the most recent rows of an
// instrument (most recent first). With a single row the change is 0.
// ok is false when rows is empty.
func BuildSnapshot(inst model.Instrument, rows []model.PriceRow) (snap model.MarketSnapshot, ok bool) {
	if len(rows) == 0 {
		return model.MarketSnapshot{Instrument: inst}, false
	}
	latest := rows[0]
	prev := latest
	if len(rows) > 1 {
		prev = rows[1]
	}
	price := PreferredPrice(latest, 0)
	prevPrice := PreferredPrice(prev, price)
	return model.MarketSnapshot{
		Instrument: inst,
		Price:      price,
		ChangePct:  ChangePct(price, prevPrice),
		Volatility: latest.PredictedVolatility,
	}, true
}

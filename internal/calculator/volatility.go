package calculator

import "github.com/ahmadfadadm/indostock-ai/internal/model"

// Regimes maps a volatility fraction to a regime; lower bounds are inclusive
// and the table is ordered from most to least severe.
var Regimes = []struct {
	MinFraction float64
	Regime      model.Regime
}{
	{0.05, model.RegimeExtreme},
	{0.03, model.RegimeHigh},
	{0.01, model.RegimeMedium},
}

// ClassifyVolatility classifies a nullable volatility fraction. A nil input
// yields the N/A regime with zero volatility.
func ClassifyVolatility(v *float64) model.VolatilityReading {
	if v == nil {
		return model.VolatilityReading{Regime: model.RegimeNA}
	}
	reading := model.VolatilityReading{Fraction: *v, Percent: *v * 100, Regime: model.RegimeLow}
	for _, r := range Regimes {
		if *v >= r.MinFraction {
			reading.Regime = r.Regime
			break
		}
	}
	return reading
}

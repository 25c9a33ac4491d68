package calculator

import "github.com/ahmadfadadm/indostock-ai/internal/model"

// Signal thresholds on the forecast diff percentage (exclusive).
const (
	StrongBuyAbove  = 2.0
	BuyAbove        = 0.5
	StrongSellBelow = -2.0
	SellBelow       = -0.5
)

// InterpretForecast compares the latest observed close with the last point's
// forecast (or its actual when no forecast exists).
func InterpretForecast(points []model.PricePoint) model.ForecastInterpretation {
	if len(points) == 0 {
		return model.ForecastInterpretation{Signal: model.SignalHold}
	}

	var current float64
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].ActualClose != nil {
			current = *points[i].ActualClose
			break
		}
	}

	last := points[len(points)-1]
	var target float64
	hasTarget := true
	switch {
	case last.PredictedClose != nil && *last.PredictedClose != 0:
		target = *last.PredictedClose
	case last.ActualClose != nil:
		target = *last.ActualClose
	default:
		hasTarget = false
	}

	var diff float64
	if hasTarget {
		diff = ChangePct(target, current)
	}
	return model.ForecastInterpretation{
		Signal:       signalFor(diff),
		CurrentPrice: current,
		TargetPrice:  target,
		DiffPct:      diff,
		HasTarget:    hasTarget,
	}
}

func signalFor(diff float64) model.Signal {
	switch {
	case diff > StrongBuyAbove:
		return model.SignalStrongBuy
	case diff > BuyAbove:
		return model.SignalBuy
	case diff < StrongSellBelow:
		return model.SignalStrongSell
	case diff < SellBelow:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}

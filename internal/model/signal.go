package model

import "time"

// Regime is a discrete volatility classification.
type Regime string

const (
	RegimeExtreme Regime = "Extreme"
	RegimeHigh    Regime = "High"
	RegimeMedium  Regime = "Medium"
	RegimeLow     Regime = "Low"
	RegimeNA      Regime = "N/A"
)

// Label returns the display label, e.g. "High Volatility".
func (r Regime) Label() string {
	if r == RegimeNA {
		return string(r)
	}
	return string(r) + " Volatility"
}

// VolatilityReading is the classified volatility of the selected instrument.
type VolatilityReading struct {
	Fraction float64 `json:"fraction"`
	Percent  float64 `json:"percent"`
	Regime   Regime  `json:"regime"`
}

// Signal is the forecast-derived trade recommendation.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG SELL"
)

// ForecastInterpretation compares the latest observed close with the model's
// final forecast in the visible series.
type ForecastInterpretation struct {
	Signal       Signal  `json:"signal"`
	CurrentPrice float64 `json:"current_price"`
	TargetPrice  float64 `json:"target_price"`
	DiffPct      float64 `json:"diff_pct"`
	HasTarget    bool    `json:"has_target"`
}

// SentimentShare holds rounded per-bucket percentages. Buckets are rounded
// independently, so they need not sum to 100.
type SentimentShare struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Total    int `json:"total"`
}

// Residual is one evaluated (actual, predicted) pair.
type Residual struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
	Residual  float64   `json:"residual"`
}

// EvaluationMetrics summarises forecast quality over points with both values.
// Confidence is a display heuristic, not a statistical interval.
type EvaluationMetrics struct {
	RMSE       float64    `json:"rmse"`
	MAE        float64    `json:"mae"`
	MAPE       float64    `json:"mape"`
	R2         float64    `json:"r2"`
	Confidence float64    `json:"confidence"`
	Residuals  []Residual `json:"residuals"`
}

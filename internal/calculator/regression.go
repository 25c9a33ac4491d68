package calculator

import (
	"errors"
	"math"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// MinEvaluationPoints is the fewest paired points EvaluateForecast accepts.
const MinEvaluationPoints = 5

// ErrInsufficientData means too few points carry both an actual and a
// predicted close. It is a no-result state, not a failure.
var ErrInsufficientData = errors.New("insufficient data for forecast evaluation")

// EvaluateForecast computes regression-quality statistics over the points that
// carry both values.
//
// Two cases the raw formulas leave undefined are pinned down here: pairs with
// a zero actual are left out of MAPE (MAPE is 100 when none remain), and a
// zero-variance actual series yields R² = 1 when every residual is zero and 0
// otherwise.
func EvaluateForecast(points []model.PricePoint) (*model.EvaluationMetrics, error) {
	residuals := make([]model.Residual, 0, len(points))
	for _, p := range points {
		if p.ActualClose == nil || p.PredictedClose == nil {
			continue
		}
		residuals = append(residuals, model.Residual{
			Date:      p.Date,
			Actual:    *p.ActualClose,
			Predicted: *p.PredictedClose,
			Residual:  *p.ActualClose - *p.PredictedClose,
		})
	}
	if len(residuals) < MinEvaluationPoints {
		return nil, ErrInsufficientData
	}

	n := float64(len(residuals))
	var sumSq, sumAbs, sumActual, sumPct float64
	pctCount := 0
	for _, r := range residuals {
		sumSq += r.Residual * r.Residual
		sumAbs += math.Abs(r.Residual)
		sumActual += r.Actual
		if r.Actual != 0 {
			sumPct += math.Abs(r.Residual) / math.Abs(r.Actual)
			pctCount++
		}
	}

	mean := sumActual / n
	var sumTot float64
	for _, r := range residuals {
		d := r.Actual - mean
		sumTot += d * d
	}

	mape := 100.0
	if pctCount > 0 {
		mape = sumPct / float64(pctCount) * 100
	}

	var r2 float64
	switch {
	case sumTot != 0:
		r2 = 1 - sumSq/sumTot
	case sumSq == 0:
		r2 = 1
	}

	return &model.EvaluationMetrics{
		RMSE:       math.Sqrt(sumSq / n),
		MAE:        sumAbs / n,
		MAPE:       mape,
		R2:         r2,
		Confidence: Confidence(r2, mape),
		Residuals:  residuals,
	}, nil
}

// Confidence blends R² and MAPE into a 0..100 display score.
func Confidence(r2, mape float64) float64 {
	c := r2*80 + math.Max(0, 100-mape)*0.2
	return math.Max(0, math.Min(100, c))
}

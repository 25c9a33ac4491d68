// Package report renders dashboard data as plain text for the CLI.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahmadfadadm/indostock-ai/internal/calculator"
	"github.com/ahmadfadadm/indostock-ai/internal/dashboard"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// FormatSnapshots renders the movers table.
func FormatSnapshots(snaps []model.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("IDX market snapshot | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	if len(snaps) == 0 {
		b.WriteString("no instruments have data\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%-8s %-28s %-16s %12s %8s  %s\n", "CODE", "NAME", "SECTOR", "PRICE", "CHG%", "VOLATILITY"))
	for _, s := range snaps {
		vol := calculator.ClassifyVolatility(s.Volatility)
		b.WriteString(fmt.Sprintf("%-8s %-28s %-16s %12s %+7.2f%%  %s\n",
			s.Ticker(), truncate(s.Name, 28), truncate(s.Sector, 16), FormatRupiah(s.Price), s.ChangePct, vol.Regime.Label()))
	}
	return b.String()
}

// FormatInsight renders one narrative with its provenance.
func FormatInsight(code string, rec model.InsightRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("AI insight | %s | bucket %s\n\n", code, rec.FetchedAtBucket))
	b.WriteString(rec.Text)
	b.WriteString("\n\n")
	if rec.Sentiment != "" {
		b.WriteString(fmt.Sprintf("Sentiment: %s\n", rec.Sentiment))
	}
	if rec.Upside != "" {
		b.WriteString(fmt.Sprintf("Upside: %s\n", rec.Upside))
	}
	source := string(rec.Source)
	if rec.Model != "" {
		source += " (" + rec.Model + ")"
	}
	b.WriteString(fmt.Sprintf("Source: %s\n", source))
	return b.String()
}

// FormatEvaluation renders the forecast signal and model quality of code.
// m may be nil when there are too few comparable points.
func FormatEvaluation(code string, rng model.Range, f model.ForecastInterpretation, m *model.EvaluationMetrics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Model evaluation | %s | %s\n\n", code, rng))
	b.WriteString(fmt.Sprintf("Signal: %s", f.Signal))
	if f.HasTarget {
		b.WriteString(fmt.Sprintf(" (current %s, target %s, %+.2f%%)", FormatRupiah(f.CurrentPrice), FormatRupiah(f.TargetPrice), f.DiffPct))
	}
	b.WriteString("\n\n")
	if m == nil {
		b.WriteString(fmt.Sprintf("Not enough data: need at least %d points with both actual and forecast\n", calculator.MinEvaluationPoints))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("RMSE: %.2f\n", m.RMSE))
	b.WriteString(fmt.Sprintf("MAE:  %.2f\n", m.MAE))
	b.WriteString(fmt.Sprintf("MAPE: %.2f%%\n", m.MAPE))
	b.WriteString(fmt.Sprintf("R²:   %.4f\n", m.R2))
	b.WriteString(fmt.Sprintf("Confidence: %.0f/100\n", m.Confidence))
	return b.String()
}

// FormatDashboard renders the overview of a dashboard view.
func FormatDashboard(v dashboard.View) string {
	var b strings.Builder
	if v.Selected == nil {
		b.WriteString("No instrument selected\n")
		return b.String()
	}
	s := v.Selected
	b.WriteString(fmt.Sprintf("%s | %s | %s\n", s.Ticker(), s.Name, s.Sector))
	b.WriteString(fmt.Sprintf("Price: %s (%+.2f%%)\n", FormatRupiah(s.Price), s.ChangePct))
	b.WriteString(fmt.Sprintf("Volatility: %.2f%% %s\n", v.Volatility.Percent, v.Volatility.Regime.Label()))
	b.WriteString(fmt.Sprintf("Forecast: %s (%+.2f%%)\n", v.Forecast.Signal, v.Forecast.DiffPct))
	b.WriteString(fmt.Sprintf("News sentiment: %d%% positive, %d%% negative, %d%% neutral (%d articles)\n",
		v.Sentiment.Positive, v.Sentiment.Negative, v.Sentiment.Neutral, v.Sentiment.Total))
	if len(v.TopMovers) > 0 {
		b.WriteString("\nTop movers:\n")
		for _, m := range v.TopMovers {
			b.WriteString(fmt.Sprintf("  %-6s %+6.2f%%\n", m.Ticker(), m.ChangePct))
		}
	}
	return b.String()
}

// FormatRupiah renders a price with dot thousand separators, e.g. Rp 9.125.
func FormatRupiah(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

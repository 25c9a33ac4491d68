package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestChangePct_ZeroPrevious(t *testing.T) {
	for _, latest := range []float64{0, 1, -5, 9000} {
		if got := ChangePct(latest, 0); got != 0 {
			t.Errorf("ChangePct(%.0f, 0) = %v, want 0", latest, got)
		}
	}
	if got := ChangePct(110, 100); !approx(got, 10) {
		t.Errorf("ChangePct(110, 100) = %v, want 10", got)
	}
}

func TestBuildSnapshot(t *testing.T) {
	inst := model.Instrument{Code: "BBCA.JK", Name: "Bank Central Asia Tbk", Sector: "Finance"}

	if _, ok := BuildSnapshot(inst, nil); ok {
		t.Error("expected ok=false for empty rows")
	}

	rows := []model.PriceRow{
		{ActualClose: model.Float(9900), PredictedVolatility: model.Float(0.02)},
		{ActualClose: model.Float(10000)},
	}
	snap, ok := BuildSnapshot(inst, rows)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if snap.Price != 9900 || !approx(snap.ChangePct, -1) {
		t.Errorf("snapshot = %+v, want price 9900 change -1", snap)
	}
	if snap.Volatility == nil || *snap.Volatility != 0.02 {
		t.Errorf("volatility not carried from latest row: %v", snap.Volatility)
	}

	// Forecast-only latest row falls back to the predicted close.
	snap, _ = BuildSnapshot(inst, []model.PriceRow{
		{PredictedClose: model.Float(1050)},
		{ActualClose: model.Float(1000)},
	})
	if snap.Price != 1050 || !approx(snap.ChangePct, 5) {
		t.Errorf("forecast fallback snapshot = %+v", snap)
	}

	// Single row: previous is the latest itself.
	snap, _ = BuildSnapshot(inst, rows[:1])
	if snap.ChangePct != 0 {
		t.Errorf("single-row change = %v, want 0", snap.ChangePct)
	}

	// Nothing usable: price 0, change 0.
	snap, _ = BuildSnapshot(inst, []model.PriceRow{{}, {ActualClose: model.Float(0)}})
	if snap.Price != 0 || snap.ChangePct != 0 {
		t.Errorf("empty-values snapshot = %+v, want zeros", snap)
	}
}

func TestClassifyVolatility_Boundaries(t *testing.T) {
	tests := []struct {
		v      float64
		regime model.Regime
	}{
		{0, model.RegimeLow},
		{0.0099, model.RegimeLow},
		{0.01, model.RegimeMedium},
		{0.02, model.RegimeMedium},
		{0.03, model.RegimeHigh},
		{0.049, model.RegimeHigh},
		{0.05, model.RegimeExtreme},
		{0.5, model.RegimeExtreme},
	}
	for _, tt := range tests {
		v := tt.v
		got := ClassifyVolatility(&v)
		if got.Regime != tt.regime {
			t.Errorf("volatility %.4f: expected %q, got %q", tt.v, tt.regime, got.Regime)
		}
		if !approx(got.Percent, tt.v*100) {
			t.Errorf("volatility %.4f: percent = %v", tt.v, got.Percent)
		}
	}
}

func TestClassifyVolatility_Monotonic(t *testing.T) {
	severity := map[model.Regime]int{
		model.RegimeLow: 0, model.RegimeMedium: 1, model.RegimeHigh: 2, model.RegimeExtreme: 3,
	}
	prev := -1
	for v := 0.0; v <= 0.1; v += 0.001 {
		x := v
		s := severity[ClassifyVolatility(&x).Regime]
		if s < prev {
			t.Fatalf("severity decreased at %.3f", v)
		}
		prev = s
	}
}

func TestClassifyVolatility_Nil(t *testing.T) {
	got := ClassifyVolatility(nil)
	if got.Regime != model.RegimeNA || got.Fraction != 0 || got.Percent != 0 {
		t.Errorf("nil volatility = %+v, want N/A with zero", got)
	}
	if got.Regime.Label() != "N/A" {
		t.Errorf("label = %q", got.Regime.Label())
	}
	if model.RegimeHigh.Label() != "High Volatility" {
		t.Errorf("label = %q", model.RegimeHigh.Label())
	}
}

func pt(d int, actual, predicted *float64) model.PricePoint {
	return model.PricePoint{
		Date:           time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC),
		ActualClose:    actual,
		PredictedClose: predicted,
	}
}

func TestInterpretForecast_Signals(t *testing.T) {
	tests := []struct {
		target float64
		signal model.Signal
	}{
		{103, model.SignalStrongBuy},
		{102, model.SignalBuy}, // exactly 2% is not > 2
		{100.6, model.SignalBuy},
		{100.5, model.SignalHold},
		{100, model.SignalHold},
		{99.5, model.SignalHold},
		{99.4, model.SignalSell},
		{98, model.SignalSell},
		{97.9, model.SignalStrongSell},
	}
	for _, tt := range tests {
		series := []model.PricePoint{
			pt(1, model.Float(95), model.Float(96)),
			pt(2, model.Float(100), model.Float(100)),
			pt(3, nil, model.Float(tt.target)),
		}
		got := InterpretForecast(series)
		if got.Signal != tt.signal {
			t.Errorf("target %.1f: expected %s, got %s (diff %.3f)", tt.target, tt.signal, got.Signal, got.DiffPct)
		}
		if got.CurrentPrice != 100 {
			t.Errorf("current price = %v, want 100", got.CurrentPrice)
		}
	}
}

func TestInterpretForecast_Fallbacks(t *testing.T) {
	if got := InterpretForecast(nil); got.Signal != model.SignalHold || got.HasTarget {
		t.Errorf("empty series = %+v", got)
	}

	// Last point without forecast falls back to its actual.
	got := InterpretForecast([]model.PricePoint{
		pt(1, model.Float(100), nil),
		pt(2, model.Float(103), nil),
	})
	if got.TargetPrice != 103 || got.DiffPct != 0 || got.Signal != model.SignalHold {
		t.Errorf("actual fallback = %+v", got)
	}

	// No actual anywhere: current is 0 and diff is 0.
	got = InterpretForecast([]model.PricePoint{pt(1, nil, model.Float(120))})
	if got.CurrentPrice != 0 || got.DiffPct != 0 || got.TargetPrice != 120 {
		t.Errorf("no-actual series = %+v", got)
	}
}

func news(labels ...string) []model.NewsItem {
	items := make([]model.NewsItem, len(labels))
	base := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	for i, l := range labels {
		items[i] = model.NewsItem{ID: int64(i), PublishedAt: base.Add(-time.Duration(i) * time.Hour), Sentiment: model.Sentiment(l)}
	}
	return items
}

func TestSentimentDistribution(t *testing.T) {
	got := SentimentDistribution(news(
		"positive", "positive", "positive", "positive", "positive",
		"negative", "negative", "negative",
		"neutral", "neutral",
	))
	if got.Positive != 50 || got.Negative != 30 || got.Neutral != 20 || got.Total != 10 {
		t.Errorf("distribution = %+v, want 50/30/20", got)
	}
}

func TestSentimentDistribution_Edges(t *testing.T) {
	if got := SentimentDistribution(nil); got != (model.SentimentShare{}) {
		t.Errorf("empty = %+v, want zeros", got)
	}

	// Thirds round independently and sum to 99.
	got := SentimentDistribution(news("positive", "Negative", "neutral"))
	if got.Positive != 33 || got.Negative != 33 || got.Neutral != 33 {
		t.Errorf("thirds = %+v", got)
	}

	// Only the 10 most recent count; older items are negative.
	labels := make([]string, 0, 15)
	for i := 0; i < 10; i++ {
		labels = append(labels, "positive")
	}
	for i := 0; i < 5; i++ {
		labels = append(labels, "negative")
	}
	got = SentimentDistribution(news(labels...))
	if got.Positive != 100 || got.Negative != 0 || got.Total != 10 {
		t.Errorf("window = %+v, want 100%% positive of 10", got)
	}
}

func TestEvaluateForecast_Perfect(t *testing.T) {
	var pts []model.PricePoint
	for d := 1; d <= 6; d++ {
		v := 9000 + float64(d*10)
		pts = append(pts, pt(d, model.Float(v), model.Float(v)))
	}
	m, err := EvaluateForecast(pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.RMSE != 0 || m.MAE != 0 || m.MAPE != 0 || m.R2 != 1 {
		t.Errorf("perfect forecast metrics = %+v", m)
	}
	if m.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", m.Confidence)
	}
	if len(m.Residuals) != 6 {
		t.Errorf("residuals = %d, want 6", len(m.Residuals))
	}
}

func TestEvaluateForecast_ZeroVariance(t *testing.T) {
	var perfect, off []model.PricePoint
	for d := 1; d <= 5; d++ {
		perfect = append(perfect, pt(d, model.Float(100), model.Float(100)))
		off = append(off, pt(d, model.Float(100), model.Float(101)))
	}
	m, err := EvaluateForecast(perfect)
	if err != nil || m.R2 != 1 {
		t.Errorf("flat perfect series: r2 = %v, err = %v", m, err)
	}
	m, err = EvaluateForecast(off)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.R2 != 0 || math.IsNaN(m.R2) || math.IsInf(m.R2, 0) {
		t.Errorf("flat imperfect series r2 = %v, want 0", m.R2)
	}
}

func TestEvaluateForecast_Values(t *testing.T) {
	// actual 10,20,30,40,50 ; predicted off by +1,-1,+2,-2,0
	actual := []float64{10, 20, 30, 40, 50}
	pred := []float64{9, 21, 28, 42, 50}
	var pts []model.PricePoint
	for i := range actual {
		pts = append(pts, pt(i+1, model.Float(actual[i]), model.Float(pred[i])))
	}
	pts = append(pts, pt(9, nil, model.Float(55))) // forecast-only, ignored

	m, err := EvaluateForecast(pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(m.RMSE, math.Sqrt(10.0/5)) {
		t.Errorf("rmse = %v", m.RMSE)
	}
	if !approx(m.MAE, 6.0/5) {
		t.Errorf("mae = %v", m.MAE)
	}
	wantMAPE := (1.0/10 + 1.0/20 + 2.0/30 + 2.0/40) / 5 * 100
	if !approx(m.MAPE, wantMAPE) {
		t.Errorf("mape = %v, want %v", m.MAPE, wantMAPE)
	}
	if !approx(m.R2, 1-10.0/1000) {
		t.Errorf("r2 = %v", m.R2)
	}
	if !approx(m.Confidence, m.R2*80+(100-wantMAPE)*0.2) {
		t.Errorf("confidence = %v", m.Confidence)
	}
}

func TestEvaluateForecast_Insufficient(t *testing.T) {
	pts := []model.PricePoint{
		pt(1, model.Float(1), model.Float(1)),
		pt(2, model.Float(2), model.Float(2)),
		pt(3, model.Float(3), nil),
		pt(4, nil, model.Float(4)),
		pt(5, model.Float(5), model.Float(5)),
		pt(6, model.Float(6), model.Float(6)),
	}
	if _, err := EvaluateForecast(pts); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEvaluateForecast_ZeroActualExcludedFromMAPE(t *testing.T) {
	pts := []model.PricePoint{
		pt(1, model.Float(0), model.Float(1)),
		pt(2, model.Float(10), model.Float(10)),
		pt(3, model.Float(20), model.Float(20)),
		pt(4, model.Float(30), model.Float(30)),
		pt(5, model.Float(40), model.Float(40)),
	}
	m, err := EvaluateForecast(pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MAPE != 0 || math.IsNaN(m.MAPE) || math.IsInf(m.MAPE, 0) {
		t.Errorf("mape = %v, want 0 with the zero actual excluded", m.MAPE)
	}
}

func TestConfidence_Clamped(t *testing.T) {
	if got := Confidence(-3, 500); got != 0 {
		t.Errorf("Confidence(-3, 500) = %v, want 0", got)
	}
	if got := Confidence(1.5, 0); got != 100 {
		t.Errorf("Confidence(1.5, 0) = %v, want 100", got)
	}
}

func TestTopMoversAndTable(t *testing.T) {
	snaps := []model.MarketSnapshot{
		{Instrument: model.Instrument{Code: "BBCA.JK", Name: "Bank Central Asia Tbk", Sector: "Finance"}, Price: 9000, ChangePct: 0.5},
		{Instrument: model.Instrument{Code: "GOTO.JK", Name: "GoTo Gojek Tokopedia Tbk", Sector: "Tech"}, Price: 70, ChangePct: -4},
		{Instrument: model.Instrument{Code: "ADRO.JK", Name: "Adaro Energy Indonesia Tbk", Sector: "Energy"}, Price: 2500, ChangePct: 2},
	}
	movers := TopMovers(snaps)
	if movers[0].Code != "GOTO.JK" || movers[1].Code != "ADRO.JK" {
		t.Errorf("top movers order = %s, %s", movers[0].Code, movers[1].Code)
	}
	if snaps[0].Code != "BBCA.JK" {
		t.Error("TopMovers must not reorder its input")
	}

	if got := FilterSnapshots(snaps, "bank"); len(got) != 1 || got[0].Code != "BBCA.JK" {
		t.Errorf("filter by name = %+v", got)
	}
	if got := FilterSnapshots(snaps, "TECH"); len(got) != 1 || got[0].Code != "GOTO.JK" {
		t.Errorf("filter by sector = %+v", got)
	}
	if got := FilterSnapshots(snaps, ""); len(got) != 3 {
		t.Errorf("empty filter kept %d", len(got))
	}

	table := FilterSnapshots(snaps, "")
	SortSnapshots(table, SortByPrice, DefaultAscending(SortByPrice))
	if table[0].Code != "BBCA.JK" || table[2].Code != "GOTO.JK" {
		t.Errorf("price desc order = %s..%s", table[0].Code, table[2].Code)
	}
	SortSnapshots(table, SortByCode, DefaultAscending(SortByCode))
	if table[0].Code != "ADRO.JK" {
		t.Errorf("code asc first = %s", table[0].Code)
	}
}

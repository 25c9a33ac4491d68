package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahmadfadadm/indostock-ai/internal/collector"
	"github.com/ahmadfadadm/indostock-ai/internal/dashboard"
	"github.com/ahmadfadadm/indostock-ai/internal/insight"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _ string, prompt string) (string, error) {
	code := "?"
	if i := strings.Index(prompt, "Code: "); i >= 0 {
		code = strings.Fields(prompt[i+len("Code: "):])[0]
	}
	return fmt.Sprintf(`{"summary":"Ringkasan %s"}`, code), nil
}

var instruments = []model.Instrument{
	{Code: "BBCA.JK", Name: "Bank Central Asia", Sector: "Finance"},
	{Code: "TLKM.JK", Name: "Telkom Indonesia", Sector: "Infrastructure"},
	{Code: "ANTM.JK", Name: "Aneka Tambang", Sector: "Basic Materials"},
}

func startServer(t *testing.T) (*httptest.Server, *dashboard.Controller) {
	t.Helper()
	src := collector.NewMockSource()
	now := time.Now()
	for i, inst := range instruments {
		base := float64(1000 * (i + 1))
		src.AddRow(model.PriceRow{Code: inst.Code, Date: now, ActualClose: model.Float(base * (1 + float64(i)/100))})
		src.AddRow(model.PriceRow{Code: inst.Code, Date: now.AddDate(0, 0, -1), ActualClose: model.Float(base)})
	}

	f := insight.NewFetcher(insight.NewMemoryCache(), echoGenerator{})
	f.Models = []string{"m"}
	ctrl := dashboard.NewController(collector.NewCollector(src), f, nil, instruments, time.Millisecond)
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(ctrl.Close)

	api := NewServer(context.Background(), ctrl, time.Millisecond)
	api.pollInterval = 5 * time.Millisecond
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv, ctrl
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStocksEndpoint(t *testing.T) {
	srv, _ := startServer(t)

	var snaps []model.MarketSnapshot
	getJSON(t, srv.URL+"/api/stocks", &snaps)
	if len(snaps) != 3 || snaps[0].Code != "ANTM.JK" {
		t.Fatalf("default sort (change desc) = %+v", snaps)
	}

	getJSON(t, srv.URL+"/api/stocks?sort=code", &snaps)
	if snaps[0].Code != "ANTM.JK" || snaps[2].Code != "TLKM.JK" {
		t.Errorf("code asc = %s..%s", snaps[0].Code, snaps[2].Code)
	}
	getJSON(t, srv.URL+"/api/stocks?sort=price&dir=asc", &snaps)
	if snaps[0].Code != "BBCA.JK" {
		t.Errorf("price asc first = %s", snaps[0].Code)
	}
	getJSON(t, srv.URL+"/api/stocks?q=finance", &snaps)
	if len(snaps) != 1 || snaps[0].Code != "BBCA.JK" {
		t.Errorf("search finance = %+v", snaps)
	}
}

func TestSelectAndRange(t *testing.T) {
	srv, ctrl := startServer(t)

	var v dashboard.View
	if code := postJSON(t, srv.URL+"/api/select", `{"code":"tlkm"}`, &v); code != http.StatusOK {
		t.Fatalf("select status %d", code)
	}
	if v.Selected == nil || v.Selected.Code != "TLKM.JK" || v.Insight == nil || v.Insight.Text != "Ringkasan TLKM" {
		t.Errorf("view after select = %+v", v)
	}
	if code := postJSON(t, srv.URL+"/api/select", `{"code":"GOTO.JK"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown select status %d", code)
	}
	if code := postJSON(t, srv.URL+"/api/select", `not json`, nil); code != http.StatusBadRequest {
		t.Errorf("bad body status %d", code)
	}

	postJSON(t, srv.URL+"/api/range", `{"range":"5d"}`, &v)
	if v.Range != model.Range5D {
		t.Errorf("range = %s", v.Range)
	}
	postJSON(t, srv.URL+"/api/range", `{"range":"10Y"}`, &v)
	if v.Range != model.Range1M || ctrl.View().Range != model.Range1M {
		t.Errorf("unknown range should fall back to 1M, got %s", v.Range)
	}
}

func TestRefreshAndDashboard(t *testing.T) {
	srv, _ := startServer(t)

	var started map[string]bool
	if code := postJSON(t, srv.URL+"/api/refresh", ``, &started); code != http.StatusOK || !started["started"] {
		t.Fatalf("refresh status %d body %v", code, started)
	}
	var v dashboard.View
	getJSON(t, srv.URL+"/api/dashboard", &v)
	if v.LastRefresh.IsZero() || v.Refreshing {
		t.Errorf("view = refreshing %v last %v", v.Refreshing, v.LastRefresh)
	}
	if len(v.TopMovers) != 3 {
		t.Errorf("top movers = %d", len(v.TopMovers))
	}
}

type fixedShare float64

func (f fixedShare) FallbackShare(time.Time) (float64, error) { return float64(f), nil }

func TestHealth(t *testing.T) {
	srv, _ := startServer(t)

	var h Health
	if code := getJSON(t, srv.URL+"/healthz", &h); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
	if h.Status != "ok" || h.Selected != "BBCA.JK" || h.Instruments != 3 || h.Refreshing {
		t.Errorf("health = %+v", h)
	}
	if h.FallbackShare != nil {
		t.Errorf("fallback share without a reporter = %v", *h.FallbackShare)
	}
}

func TestHealth_FallbackShare(t *testing.T) {
	_, ctrl := startServer(t)
	api := NewServer(context.Background(), ctrl, time.Millisecond)
	api.Fallbacks = fixedShare(0.25)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	var h Health
	getJSON(t, srv.URL+"/healthz", &h)
	if h.FallbackShare == nil || *h.FallbackShare != 0.25 {
		t.Errorf("fallback share = %v, want 0.25", h.FallbackShare)
	}
}

func TestInsightStream(t *testing.T) {
	srv, ctrl := startServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/insight"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntilDone := func(want string) {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var f RevealFrame
			if err := conn.ReadJSON(&f); err != nil {
				t.Fatalf("read: %v", err)
			}
			if !strings.HasPrefix(f.Text, "Ringkasan") && !strings.HasPrefix("Ringkasan", f.Text) {
				t.Fatalf("frame %q is not a narrative prefix", f.Text)
			}
			if f.Done {
				if f.Text != want {
					t.Fatalf("final frame = %q, want %q", f.Text, want)
				}
				return
			}
		}
	}
	readUntilDone("Ringkasan BBCA")

	if err := ctrl.Select(context.Background(), "ANTM.JK"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	readUntilDone("Ringkasan ANTM")
}

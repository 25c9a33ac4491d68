// Package httpapi exposes the dashboard controller over JSON endpoints and
// streams the narrative reveal over a websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahmadfadadm/indostock-ai/internal/calculator"
	"github.com/ahmadfadadm/indostock-ai/internal/dashboard"
	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/reveal"
)

// DefaultPollInterval is how often a websocket checks for a new narrative.
const DefaultPollInterval = 250 * time.Millisecond

// HealthWindow is how far back /healthz looks when reporting the fallback share.
const HealthWindow = 24 * time.Hour

// FallbackReporter reports the share of recent narratives that came from the
// local fallback instead of a model.
type FallbackReporter interface {
	FallbackShare(since time.Time) (float64, error)
}

// Server serves the dashboard API.
type Server struct {
	ctrl           *dashboard.Controller
	revealInterval time.Duration
	pollInterval   time.Duration
	upgrader       websocket.Upgrader
	refreshCtx     context.Context

	// Fallbacks, when set, adds the recent fallback share to /healthz.
	Fallbacks FallbackReporter
}

// NewServer creates a Server. Refreshes triggered over HTTP run on ctx so
// they survive the request that started them.
func NewServer(ctx context.Context, ctrl *dashboard.Controller, revealInterval time.Duration) *Server {
	return &Server{
		ctrl:           ctrl,
		revealInterval: revealInterval,
		pollInterval:   DefaultPollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		refreshCtx: ctx,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/range", s.handleRange)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws/insight", s.handleInsightStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return corsMiddleware(mux)
}

// Health is the /healthz body.
type Health struct {
	Status        string   `json:"status"`
	Selected      string   `json:"selected"`
	Instruments   int      `json:"instruments"`
	Refreshing    bool     `json:"refreshing"`
	FallbackShare *float64 `json:"fallback_share,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := Health{
		Status:      "ok",
		Selected:    s.ctrl.Selected(),
		Instruments: len(s.ctrl.Instruments()),
		Refreshing:  s.ctrl.Refreshing(),
	}
	if s.Fallbacks != nil {
		share, err := s.Fallbacks.FallbackShare(time.Now().Add(-HealthWindow))
		if err != nil {
			log.Printf("[WARN] health fallback share: %v", err)
		} else {
			h.FallbackShare = &share
		}
	}
	writeJSON(w, h)
}

// handleStocks serves the movers table: ?q= filters by code, name or sector;
// ?sort= picks the column and ?dir=asc|desc overrides its default direction.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snaps := calculator.FilterSnapshots(s.ctrl.View().Snapshots, q.Get("q"))

	key := calculator.SortKey(q.Get("sort"))
	if key == "" {
		key = calculator.SortByChange
	}
	asc := calculator.DefaultAscending(key)
	switch strings.ToLower(q.Get("dir")) {
	case "asc":
		asc = true
	case "desc":
		asc = false
	}
	calculator.SortSnapshots(snaps, key, asc)
	writeJSON(w, snaps)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.ctrl.View())
}

type selectRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "body must be {\"code\": \"BBCA.JK\"}", http.StatusBadRequest)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !strings.HasSuffix(code, model.ExchangeSuffix) {
		code += model.ExchangeSuffix
	}
	if err := s.ctrl.Select(r.Context(), code); err != nil {
		if errors.Is(err, dashboard.ErrUnknownInstrument) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] select %s: %v", code, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.ctrl.View())
}

type rangeRequest struct {
	Range string `json:"range"`
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "body must be {\"range\": \"1M\"}", http.StatusBadRequest)
		return
	}
	s.ctrl.SetRange(r.Context(), model.ParseRange(strings.ToUpper(req.Range)))
	writeJSON(w, s.ctrl.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	started := s.ctrl.RefreshAll(s.refreshCtx, dashboard.TriggerManual)
	status := http.StatusOK
	if !started {
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]bool{"started": started})
}

// RevealFrame is one websocket message of the narrative reveal.
type RevealFrame struct {
	Code string `json:"code"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// handleInsightStream reveals the current narrative character by character
// and restarts whenever the narrative changes.
func (s *Server) handleInsightStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	sched := reveal.NewScheduler(s.revealInterval)
	defer sched.Stop()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	lastText := "\x00"
	for {
		v := s.ctrl.View()
		if v.Insight != nil && v.Insight.Text != lastText {
			lastText = v.Insight.Text
			code, full := "", v.Insight.Text
			if v.Selected != nil {
				code = v.Selected.Code
			}
			sched.Start(full, func(prefix string) {
				writeMu.Lock()
				defer writeMu.Unlock()
				frame := RevealFrame{Code: code, Text: prefix, Done: prefix == full}
				if err := conn.WriteJSON(frame); err != nil {
					log.Printf("[WARN] websocket write: %v", err)
				}
			})
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] writing JSON response: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

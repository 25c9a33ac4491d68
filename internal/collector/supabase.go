package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/series"
)

var _ RowSource = (*SupabaseSource)(nil)

// SupabaseSource reads the hosted store through its PostgREST endpoint.
type SupabaseSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewSupabaseSource creates a source with optional proxy support.
func NewSupabaseSource(baseURL, apiKey, proxyURL string) *SupabaseSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &SupabaseSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (s *SupabaseSource) Name() string { return "supabase" }

// restPrediction is the JSON shape of a stock_predictions row.
type restPrediction struct {
	Code                string   `json:"code"`
	Date                string   `json:"date"`
	ActualClose         *float64 `json:"actual_close"`
	PredictedClose      *float64 `json:"predicted_close"`
	PredictedVolatility *float64 `json:"predicted_volatility"`
}

// restNews is the JSON shape of a sentimen_saham row.
type restNews struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"published_at"`
	Sentiment   string  `json:"sentiment"`
	Score       float64 `json:"score"`
}

func (s *SupabaseSource) QueryPriceHistory(ctx context.Context, code string, q series.Query) ([]model.PriceRow, error) {
	params := url.Values{}
	params.Set("select", "code,date,actual_close,predicted_close,predicted_volatility")
	params.Set("code", "eq."+code)
	params.Set("order", "date.desc")
	if q.Since != nil {
		params.Set("date", "gte."+q.Since.Format("2006-01-02"))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var raw []restPrediction
	if err := s.get(ctx, "stock_predictions", params, &raw); err != nil {
		return nil, fetchErr(s.Name(), "price history", code, err)
	}
	rows := make([]model.PriceRow, 0, len(raw))
	for _, r := range raw {
		d, err := parseDateString(r.Date)
		if err != nil {
			return nil, fetchErr(s.Name(), "price history", code, err)
		}
		rows = append(rows, model.PriceRow{
			Code:                r.Code,
			Date:                d,
			ActualClose:         r.ActualClose,
			PredictedClose:      r.PredictedClose,
			PredictedVolatility: r.PredictedVolatility,
		})
	}
	return rows, nil
}

func (s *SupabaseSource) QueryNews(ctx context.Context, ticker string, limit int) ([]model.NewsItem, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("code", "eq."+ticker)
	params.Set("order", "published_at.desc")
	params.Set("limit", strconv.Itoa(limit))

	var raw []restNews
	if err := s.get(ctx, "sentimen_saham", params, &raw); err != nil {
		return nil, fetchErr(s.Name(), "news", ticker, err)
	}
	items := make([]model.NewsItem, 0, len(raw))
	for _, r := range raw {
		n := model.NewsItem{
			ID:        r.ID,
			Code:      r.Code,
			Title:     r.Title,
			URL:       r.URL,
			Sentiment: model.NormalizeSentiment(r.Sentiment),
			Score:     r.Score,
			Source:    model.SourceFromURL(r.URL),
		}
		if t, err := parseDateString(r.PublishedAt); err == nil {
			n.PublishedAt = t
		}
		items = append(items, n)
	}
	return items, nil
}

func (s *SupabaseSource) get(ctx context.Context, table string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.BaseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("apikey", s.APIKey)
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("query %s: status %d, body: %s", table, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiURL is the public generative language endpoint.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

var (
	ErrRateLimited = errors.New("model rate limited")
	ErrUnavailable = errors.New("model unavailable")
	ErrMalformed   = errors.New("malformed model reply")
)

// Generator is a text-completion service.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

var _ Generator = (*GeminiClient)(nil)

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewGeminiClient creates a client with optional proxy support. Request
// deadlines come from the caller's context.
func NewGeminiClient(baseURL, apiKey, proxyURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &GeminiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns the concatenated text of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("%w: api key missing", ErrUnavailable)
	}
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, url.PathEscape(model), url.QueryEscape(g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, model, redactKey(err.Error(), g.APIKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, model)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s: status %d, body: %s", ErrUnavailable, model, resp.StatusCode, string(respBody))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: %s: no candidates", ErrMalformed, model)
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: %s: empty text", ErrMalformed, model)
	}
	return text.String(), nil
}

// redactKey keeps the API key out of transport errors, which quote the URL.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
}

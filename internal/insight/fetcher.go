package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

const (
	DefaultAttemptTimeout = 8 * time.Second
	DefaultRateLimitDelay = time.Second

	// significantMove is the |change %| above which the fallback calls a move significant.
	significantMove = 1.5
)

// DefaultModels is the cascade order used when none is configured.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite"}

// Fetcher resolves a narrative for an instrument. It never fails: when every
// model is exhausted it synthesizes a local narrative.
type Fetcher struct {
	Cache          Cache
	Generator      Generator
	Models         []string
	AttemptTimeout time.Duration
	RateLimitDelay time.Duration
	Now            func() time.Time
	// OnAcquire, when set, observes every record produced by a model or the
	// fallback (not cache hits).
	OnAcquire func(code string, rec model.InsightRecord)

	group singleflight.Group
}

// NewFetcher creates a Fetcher with default models and timings.
func NewFetcher(cache Cache, gen Generator) *Fetcher {
	return &Fetcher{
		Cache:          cache,
		Generator:      gen,
		Models:         DefaultModels,
		AttemptTimeout: DefaultAttemptTimeout,
		RateLimitDelay: DefaultRateLimitDelay,
		Now:            time.Now,
	}
}

// Fetch returns the narrative for code at the given price and change.
// Concurrent calls for the same code share one acquisition, which runs
// detached from any single caller. A caller whose ctx ends first gets an
// uncached local narrative while the shared acquisition carries on.
func (f *Fetcher) Fetch(ctx context.Context, code string, price, changePct float64) model.InsightRecord {
	if rec, ok := f.Cache.Get(ctx, code); ok {
		rec.Source = model.InsightFromCache
		return rec
	}
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(code, func() (any, error) {
		if rec, ok := f.Cache.Get(shared, code); ok {
			rec.Source = model.InsightFromCache
			return rec, nil
		}
		return f.acquire(shared, code, price, changePct), nil
	})
	select {
	case res := <-ch:
		return res.Val.(model.InsightRecord)
	case <-ctx.Done():
		log.Printf("[WARN] insight %s: %v, using local narrative", code, ctx.Err())
		rec := Fallback(code, price, changePct)
		rec.FetchedAtBucket = HourBucket(f.Now())
		return rec
	}
}

func (f *Fetcher) acquire(ctx context.Context, code string, price, changePct float64) model.InsightRecord {
	bucket := HourBucket(f.Now())
	var rec model.InsightRecord

	out := f.cascade(ctx, BuildPrompt(code, price, changePct))
	switch out.kind {
	case outcomeSuccess:
		rec = model.InsightRecord{
			Text:            out.reply.Summary,
			Sentiment:       out.reply.Sentiment,
			Upside:          out.reply.Upside,
			FetchedAtBucket: bucket,
			Model:           out.model,
			Source:          model.InsightFromModel,
		}
		log.Printf("[INFO] insight %s from %s", code, out.model)
	default:
		rec = Fallback(code, price, changePct)
		rec.FetchedAtBucket = bucket
		log.Printf("[WARN] insight %s: all %d models failed, using local narrative", code, len(f.Models))
	}

	f.Cache.Put(ctx, code, rec)
	if f.OnAcquire != nil {
		f.OnAcquire(code, rec)
	}
	return rec
}

type outcomeKind int

const (
	outcomeExhausted outcomeKind = iota
	outcomeSuccess
)

type outcome struct {
	kind  outcomeKind
	model string
	reply Reply
}

// cascade tries each model in order and stops at the first usable reply.
func (f *Fetcher) cascade(ctx context.Context, prompt string) outcome {
	for i, m := range f.Models {
		reply, err := f.attempt(ctx, m, prompt)
		if err == nil {
			return outcome{kind: outcomeSuccess, model: m, reply: reply}
		}
		log.Printf("[WARN] insight model %s (attempt %d/%d): %v", m, i+1, len(f.Models), err)
		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, ErrRateLimited) && i < len(f.Models)-1 {
			select {
			case <-ctx.Done():
				return outcome{kind: outcomeExhausted}
			case <-time.After(f.RateLimitDelay):
			}
		}
	}
	return outcome{kind: outcomeExhausted}
}

func (f *Fetcher) attempt(ctx context.Context, m, prompt string) (Reply, error) {
	timeout := f.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := f.Generator.Generate(actx, m, prompt)
	if err != nil {
		return Reply{}, err
	}
	return ParseReply(text)
}

// BuildPrompt asks for a strict JSON reply about one instrument.
func BuildPrompt(code string, price, changePct float64) string {
	var b strings.Builder
	b.WriteString("Analyze this Indonesian stock data strictly.\n")
	fmt.Fprintf(&b, "Code: %s\n", code)
	fmt.Fprintf(&b, "Current Price: Rp %s\n", strconv.FormatFloat(price, 'f', -1, 64))
	fmt.Fprintf(&b, "Change: %s%%\n\n", strconv.FormatFloat(changePct, 'f', 2, 64))
	b.WriteString("Return a valid JSON object ONLY (no markdown formatting, no code blocks).\n")
	b.WriteString("The JSON must match this structure:\n")
	b.WriteString(`{"summary": "One concise paragraph (max 30 words) analyzing the stock movement based on the price change in Bahasa Indonesia.", `)
	b.WriteString(`"sentiment": "Positive" or "Negative" or "Neutral", `)
	b.WriteString(`"upside": "Estimated percentage range (e.g., +2.5% - +5.0%) based on technical volatility"}`)
	return b.String()
}

// Reply is the structured answer a model must return.
type Reply struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Upside    string `json:"-"`
}

// ParseReply strips markdown fences and decodes the JSON reply. A reply
// without a summary is malformed.
func ParseReply(text string) (Reply, error) {
	clean := stripFences(text)
	var raw struct {
		Summary   string          `json:"summary"`
		Sentiment string          `json:"sentiment"`
		Upside    json.RawMessage `json:"upside"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		start, end := strings.Index(clean, "{"), strings.LastIndex(clean, "}")
		if start < 0 || end <= start {
			return Reply{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal([]byte(clean[start:end+1]), &raw); err != nil {
			return Reply{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	r := Reply{
		Summary:   strings.TrimSpace(raw.Summary),
		Sentiment: strings.TrimSpace(raw.Sentiment),
		Upside:    rawString(raw.Upside),
	}
	if r.Summary == "" {
		return Reply{}, fmt.Errorf("%w: empty summary", ErrMalformed)
	}
	return r, nil
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// rawString accepts the upside as a JSON string or a bare number.
func rawString(msg json.RawMessage) string {
	if len(msg) == 0 || string(msg) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(msg))
}

// Fallback synthesizes a narrative from price action alone.
func Fallback(code string, price, changePct float64) model.InsightRecord {
	direction, sentiment := "bullish", "Positive"
	if changePct < 0 {
		direction, sentiment = "bearish", "Negative"
	}
	intensity := "stable"
	if math.Abs(changePct) > significantMove {
		intensity = "significant"
	}
	text := fmt.Sprintf(
		"%s is trading at Rp %s with a %s %s move of %+.2f%% in the latest session. "+
			"The AI service is unreachable, so this summary is derived from price action only.",
		code, strconv.FormatFloat(price, 'f', -1, 64), intensity, direction, changePct,
	)
	return model.InsightRecord{
		Text:      text,
		Sentiment: sentiment,
		Upside:    "N/A",
		Source:    model.InsightFromFallback,
	}
}

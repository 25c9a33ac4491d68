package collector

import (
	"context"
	"fmt"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
	"github.com/ahmadfadadm/indostock-ai/internal/series"
)

// RowSource is the read-only prediction and sentiment store.
type RowSource interface {
	// QueryPriceHistory returns rows for a full instrument code, most recent
	// date first, trimmed by q.
	QueryPriceHistory(ctx context.Context, code string, q series.Query) ([]model.PriceRow, error)
	// QueryNews returns the latest articles for a bare ticker (no exchange
	// suffix), most recent first.
	QueryNews(ctx context.Context, ticker string, limit int) ([]model.NewsItem, error)
	Name() string
}

// DataFetchError reports that the row source could not serve a query.
type DataFetchError struct {
	Source string
	Op     string
	Code   string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Source, e.Op, e.Code, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

func fetchErr(source, op, code string, err error) error {
	return &DataFetchError{Source: source, Op: op, Code: code, Err: err}
}

package calculator

import (
	"math"
	"sort"
	"strings"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// TopMovers returns a copy of snaps ordered by absolute change, largest first.
func TopMovers(snaps []model.MarketSnapshot) []model.MarketSnapshot {
	out := make([]model.MarketSnapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].ChangePct) > math.Abs(out[j].ChangePct)
	})
	return out
}

// SortKey selects the movers table column.
type SortKey string

const (
	SortByCode   SortKey = "code"
	SortBySector SortKey = "type"
	SortByPrice  SortKey = "price"
	SortByChange SortKey = "change"
)

// DefaultAscending reports the initial direction when a column is chosen:
// text columns ascend, numeric columns descend.
func DefaultAscending(key SortKey) bool {
	return key == SortByCode || key == SortBySector
}

// FilterSnapshots keeps snapshots whose code, name or sector contains term
// (case-insensitive). An empty term keeps everything.
func FilterSnapshots(snaps []model.MarketSnapshot, term string) []model.MarketSnapshot {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.MarketSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if term == "" ||
			strings.Contains(strings.ToLower(s.Code), term) ||
			strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Sector), term) {
			out = append(out, s)
		}
	}
	return out
}

// SortSnapshots sorts snaps in place by key. Unknown keys sort by change.
func SortSnapshots(snaps []model.MarketSnapshot, key SortKey, ascending bool) {
	less := func(i, j int) bool {
		switch key {
		case SortByCode:
			return snaps[i].Code < snaps[j].Code
		case SortBySector:
			return snaps[i].Sector < snaps[j].Sector
		case SortByPrice:
			return snaps[i].Price < snaps[j].Price
		default:
			return snaps[i].ChangePct < snaps[j].ChangePct
		}
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if ascending {
			return less(i, j)
		}
		return less(j, i)
	})
}

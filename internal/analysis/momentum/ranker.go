package momentum

import (
	"sort"

	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// DefaultNbTop is the number of tickers selected by default.
const DefaultNbTop = 5

// Series is the ordered close history of one ticker.
type Series struct {
	Ticker string
	Closes []float64
}

// Ranker orders scored tickers and allocates capital equally to the top N.
type Ranker struct {
	nbTop int
}

// NewRanker creates a ranker selecting nbTop tickers.
func NewRanker(nbTop int) *Ranker {
	if nbTop < 1 {
		nbTop = DefaultNbTop
	}
	return &Ranker{nbTop: nbTop}
}

// NbTop returns the configured selection size.
func (r *Ranker) NbTop() int {
	return r.nbTop
}

// RankSeries scores every series and ranks the ones with enough history.
// Tickers that cannot be scored are reported in the returned errors and do
// not affect the ranking of the others.
func (r *Ranker) RankSeries(series []Series, strategy models.Strategy) ([]models.MomentumRecord, []models.TickerError, error) {
	if !strategy.Valid() {
		return nil, nil, apperrors.NewValidationError("strategy", strategy, "must be long or short")
	}

	scores := make([]models.MomentumScore, 0, len(series))
	var errs []models.TickerError
	for _, s := range series {
		score, err := Score(s.Ticker, s.Closes, strategy)
		if err != nil {
			errs = append(errs, models.TickerError{Ticker: s.Ticker, Error: err.Error()})
			continue
		}
		scores = append(scores, score)
	}

	records, err := r.Rank(scores, strategy)
	return records, errs, err
}

// Rank sorts scores (descending for long, ascending for short, ties kept in
// input order), assigns ranks 1..n and splits 100% equally across the top
// min(nbTop, n) records.
func (r *Ranker) Rank(scores []models.MomentumScore, strategy models.Strategy) ([]models.MomentumRecord, error) {
	var in, out models.Signal
	switch strategy {
	case models.StrategyLong:
		in, out = models.SignalInvest, models.SignalExit
	case models.StrategyShort:
		in, out = models.SignalShort, models.SignalCover
	default:
		return nil, apperrors.NewValidationError("strategy", strategy, "must be long or short")
	}

	sorted := make([]models.MomentumScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		if strategy == models.StrategyShort {
			return sorted[i].Momentum < sorted[j].Momentum
		}
		return sorted[i].Momentum > sorted[j].Momentum
	})

	selected := r.nbTop
	if len(sorted) < selected {
		selected = len(sorted)
	}
	var allocation float64
	if selected > 0 {
		allocation = models.Round2(100 / float64(selected))
	}

	records := make([]models.MomentumRecord, len(sorted))
	for i, s := range sorted {
		rec := models.MomentumRecord{
			Ticker:       s.Ticker,
			Momentum:     s.Momentum,
			PerfLookback: s.PerfLookback,
			PerfRecent:   s.PerfRecent,
			Rank:         i + 1,
			Signal:       out,
		}
		if i < selected {
			rec.Signal = in
			rec.Allocation = allocation
		}
		records[i] = rec
	}
	return records, nil
}

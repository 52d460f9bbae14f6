package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"momentum-options/internal/analysis/momentum"
	"momentum-options/internal/analysis/volatility"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/logging"
	"momentum-options/internal/models"
)

// BatchRequest configures a recommendation run over stored price history.
type BatchRequest struct {
	Tickers []string
	AsOf    time.Time          // zero means now
	DTE     int                // zero uses the configured target
	IVRanks map[string]float64 // optional, keyed by ticker
}

// RecommendBatch evaluates every ticker from its stored closes: spot is the
// last close, IV the historical volatility and the sub-scores come from the
// 63-5 score. Failed tickers are reported without aborting the batch.
func (k *Kernel) RecommendBatch(ctx context.Context, req BatchRequest) (*models.RecommendationBatch, error) {
	if len(req.Tickers) == 0 {
		return nil, apperrors.NewValidationError("tickers", req.Tickers, "at least one ticker is required")
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = k.now()
	}
	start := time.Now()
	log := logging.WithOperation(k.logger, "recommend_batch")

	loaded, errs, err := k.LoadSeries(ctx, req.Tickers, WindowStart(models.StrategyShort, asOf), asOf)
	if err != nil {
		return nil, err
	}

	// Each ticker owns one slot, so results keep input order.
	recs := make([]*models.Recommendation, len(req.Tickers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers())
	for i, ticker := range req.Tickers {
		i, ticker := i, ticker
		points, ok := loaded[ticker]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := k.recommendFromHistory(ticker, points, req)
			if err != nil {
				logging.LogTickerFailure(log, ticker, err)
				mu.Lock()
				errs = append(errs, models.TickerError{Ticker: ticker, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			recs[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &models.RecommendationBatch{Recommendations: []models.Recommendation{}}
	for _, rec := range recs {
		if rec != nil {
			batch.Recommendations = append(batch.Recommendations, *rec)
		}
	}
	batch.Errors = sortErrors(errs, req.Tickers)

	logging.LogBatch(log, "recommend_batch", len(batch.Recommendations), len(batch.Errors), time.Since(start))
	return batch, nil
}

func (k *Kernel) recommendFromHistory(ticker string, points []models.PricePoint, req BatchRequest) (models.Recommendation, error) {
	closes := models.Closes(points)
	lookback, recent, err := momentum.Score63_5(closes)
	if err != nil {
		var de *apperrors.DataError
		if apperrors.As(err, &de) {
			de.Symbol = ticker
		}
		return models.Recommendation{}, err
	}

	iv, estimated := k.batchVolatility(closes)

	var ivRank *float64
	if r, ok := req.IVRanks[ticker]; ok {
		ivRank = &r
	}

	rec, err := k.Recommend(RecommendRequest{
		Ticker:       ticker,
		Spot:         closes[len(closes)-1],
		IV:           iv,
		PerfLookback: lookback,
		PerfRecent:   recent,
		DTE:          req.DTE,
		IVRank:       ivRank,
		Closes:       closes,
	})
	if err != nil {
		return models.Recommendation{}, err
	}
	if !estimated {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("historical volatility unavailable, using default %.2f", iv))
	}
	return rec, nil
}

// batchVolatility is the unrounded IV proxy used to price batch
// recommendations. ok is false when the configured default was substituted.
func (k *Kernel) batchVolatility(closes []float64) (float64, bool) {
	vol, ok := volatility.HistoricalWithStatus(closes, k.cfg.Volatility.Window)
	if !ok {
		return k.cfg.Volatility.Default, false
	}
	return vol, true
}

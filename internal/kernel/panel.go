package kernel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"momentum-options/internal/analysis/momentum"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/logging"
	"momentum-options/internal/models"
	"momentum-options/internal/store"
	"momentum-options/pkg/utils"
)

// Calendar windows loaded per strategy. The short window covers the 69
// sessions of the 63-5 score with room for holidays.
const (
	longWindowMonths = 13
	shortWindowDays  = 120
	staleTradingDays = 5
)

// WindowStart returns the first date loaded for a strategy evaluated at asOf.
func WindowStart(strategy models.Strategy, asOf time.Time) time.Time {
	if strategy == models.StrategyLong {
		first := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -(longWindowMonths - 1), 0)
	}
	return asOf.AddDate(0, 0, -shortWindowDays)
}

// LoadSeries reads every ticker's closes in [from, to] concurrently. Tickers
// without data are returned as errors; the remaining series keep input order.
func (k *Kernel) LoadSeries(ctx context.Context, tickers []string, from, to time.Time) (map[string][]models.PricePoint, []models.TickerError, error) {
	if k.prices == nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDataNotFound, "no price history configured")
	}

	var (
		mu     sync.Mutex
		series = make(map[string][]models.PricePoint, len(tickers))
		errs   []models.TickerError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers())

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			points, err := k.prices.GetPrices(gctx, ticker, from, to)
			if err == nil && len(points) == 0 {
				err = apperrors.NewDataError("prices", ticker, "no closes in window", apperrors.ErrDataNotFound)
			}
			if err != nil {
				logging.LogTickerFailure(k.logger, ticker, err)
				mu.Lock()
				errs = append(errs, models.TickerError{Ticker: ticker, Error: err.Error()})
				mu.Unlock()
				return nil // non-fatal
			}
			if last := points[len(points)-1].Date; utils.TradingDaysBetween(last, to) > staleTradingDays {
				l := logging.WithSymbol(k.logger, ticker)
				l.Warn().
					Time("last_close", last).
					Msg("Price history is stale")
			}
			mu.Lock()
			series[ticker] = points
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return series, sortErrors(errs, tickers), nil
}

// RankPanel loads each ticker's window ending at asOf from price history,
// ranks the panel and, when save is set, appends the batch as a snapshot.
func (k *Kernel) RankPanel(ctx context.Context, tickers []string, strategy models.Strategy, topN int, asOf time.Time, save bool) (*models.RankedBatch, error) {
	if !strategy.Valid() {
		return nil, apperrors.NewValidationError("strategy", strategy, "must be long or short")
	}
	if len(tickers) == 0 {
		return nil, apperrors.NewValidationError("tickers", tickers, "at least one ticker is required")
	}
	if asOf.IsZero() {
		asOf = k.now()
	}
	start := time.Now()
	log := logging.WithOperation(k.logger, "rank_panel")

	loaded, loadErrs, err := k.LoadSeries(ctx, tickers, WindowStart(strategy, asOf), asOf)
	if err != nil {
		return nil, err
	}

	series := make([]momentum.Series, 0, len(loaded))
	for _, t := range tickers {
		points, ok := loaded[t]
		if !ok {
			continue
		}
		closes := models.Closes(points)
		if strategy == models.StrategyLong {
			closes = momentum.MonthlyCloses(points)
		}
		series = append(series, momentum.Series{Ticker: t, Closes: closes})
	}

	batch, err := k.RankMomentum(series, topN, strategy)
	if err != nil {
		return nil, err
	}
	batch.CalculationDate = asOf
	batch.Errors = sortErrors(append(loadErrs, batch.Errors...), tickers)

	if save && batch.Success() {
		if k.history == nil {
			return nil, apperrors.Wrap(apperrors.ErrDataNotFound, "no history store configured")
		}
		snap := models.SnapshotFromBatch(batch)
		if err := k.history.AppendSnapshot(ctx, snap); err != nil {
			return nil, err
		}
		log.Info().Str("snapshot_id", snap.ID).Msg("Snapshot saved")
	}

	logging.LogBatch(log, "rank_panel", len(batch.Records), len(batch.Errors), time.Since(start))
	return batch, nil
}

// History returns the snapshot store.
func (k *Kernel) History() (store.HistoryStore, error) {
	if k.history == nil {
		return nil, apperrors.Wrap(apperrors.ErrDataNotFound, "no history store configured")
	}
	return k.history, nil
}

func (k *Kernel) workers() int {
	if k.cfg.Momentum.Workers > 0 {
		return k.cfg.Momentum.Workers
	}
	return 1
}

// sortErrors orders errors by the tickers' input position. Errors for
// tickers not in the list keep their relative order at the end.
func sortErrors(errs []models.TickerError, tickers []string) []models.TickerError {
	if len(errs) < 2 {
		return errs
	}
	byTicker := make(map[string][]models.TickerError, len(errs))
	for _, e := range errs {
		byTicker[e.Ticker] = append(byTicker[e.Ticker], e)
	}
	out := make([]models.TickerError, 0, len(errs))
	for _, t := range tickers {
		out = append(out, byTicker[t]...)
		delete(byTicker, t)
	}
	for _, e := range errs {
		if _, ok := byTicker[e.Ticker]; ok {
			out = append(out, e)
		}
	}
	return out
}

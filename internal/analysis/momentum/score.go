// Package momentum scores and ranks tickers by trailing performance.
package momentum

import (
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Window lengths, in observations.
const (
	// MonthlyPoints is the minimum series length for 12-1 momentum.
	MonthlyPoints = 13
	// LookbackDays is the trend window of the 63-5 score.
	LookbackDays = 63
	// RecentDays is the bounce window excluded from the 63-5 trend.
	RecentDays = 5
	// DailyPoints is the minimum series length for 63-5 momentum.
	DailyPoints = LookbackDays + RecentDays + 1
)

// Score12_1 returns the 12-month return excluding the most recent month, in
// percent, from a monthly close series ordered oldest first.
func Score12_1(closes []float64) (float64, error) {
	n := len(closes)
	if n < MonthlyPoints {
		return 0, apperrors.NewInsufficientHistory("", n, MonthlyPoints)
	}
	base := closes[n-MonthlyPoints]
	if base <= 0 {
		return 0, apperrors.NewValidationError("price", base, "base price must be positive")
	}
	return (closes[n-2] - base) / base * 100, nil
}

// Score63_5 returns the 63-day trend ending five sessions ago and the
// return over those five sessions, both in percent, from a daily close
// series ordered oldest first.
func Score63_5(closes []float64) (lookback, recent float64, err error) {
	n := len(closes)
	if n < DailyPoints {
		return 0, 0, apperrors.NewInsufficientHistory("", n, DailyPoints)
	}
	last := n - 1
	pivot := closes[last-RecentDays]
	base := closes[last-RecentDays-LookbackDays]
	if base <= 0 || pivot <= 0 {
		return 0, 0, apperrors.NewValidationError("price", base, "prices must be positive")
	}
	lookback = (pivot - base) / base * 100
	recent = (closes[last] - pivot) / pivot * 100
	return lookback, recent, nil
}

// Score computes the strategy's score for one ticker.
func Score(ticker string, closes []float64, strategy models.Strategy) (models.MomentumScore, error) {
	switch strategy {
	case models.StrategyLong:
		m, err := Score12_1(closes)
		if err != nil {
			return models.MomentumScore{}, withTicker(err, ticker)
		}
		return models.MomentumScore{Ticker: ticker, Momentum: m}, nil
	case models.StrategyShort:
		lookback, recent, err := Score63_5(closes)
		if err != nil {
			return models.MomentumScore{}, withTicker(err, ticker)
		}
		return models.MomentumScore{Ticker: ticker, Momentum: lookback, PerfLookback: lookback, PerfRecent: recent}, nil
	default:
		return models.MomentumScore{}, apperrors.NewValidationError("strategy", strategy, "must be long or short")
	}
}

func withTicker(err error, ticker string) error {
	var de *apperrors.DataError
	if apperrors.As(err, &de) {
		de.Symbol = ticker
		return de
	}
	return apperrors.Wrap(err, ticker)
}

// Package volatility estimates volatility from price history and from
// observed option prices.
package volatility

import "math"

const (
	// DefaultVolatility is returned when a series is too short to estimate from.
	DefaultVolatility = 0.30
	// DefaultWindow is the number of daily returns used by default.
	DefaultWindow = 30
	// TradingDaysPerYear annualizes daily volatility.
	TradingDaysPerYear = 252
)

// Historical returns the annualized close-to-close volatility over the most
// recent window log returns. Series shorter than window+1 yield
// DefaultVolatility.
func Historical(prices []float64, window int) float64 {
	vol, _ := HistoricalWithStatus(prices, window)
	return vol
}

// HistoricalWithStatus is Historical plus a flag that is false when the
// default was substituted for a real estimate.
func HistoricalWithStatus(prices []float64, window int) (float64, bool) {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(prices) < window+1 {
		return DefaultVolatility, false
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	if len(returns) < window {
		return DefaultVolatility, false
	}

	recent := returns[len(returns)-window:]
	daily := stdDev(recent)
	return daily * math.Sqrt(TradingDaysPerYear), true
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

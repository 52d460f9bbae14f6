// Package models provides domain models for the pricing and ranking kernel.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionKind represents the right of an option contract.
type OptionKind string

const (
	OptionPut  OptionKind = "PUT"
	OptionCall OptionKind = "CALL"
)

// ParseOptionKind maps user input ("put", "CALL", "p") to an OptionKind.
func ParseOptionKind(s string) (OptionKind, bool) {
	switch s {
	case "put", "PUT", "p", "P":
		return OptionPut, true
	case "call", "CALL", "c", "C":
		return OptionCall, true
	default:
		return "", false
	}
}

// Strategy represents the momentum strategy a panel is ranked for.
type Strategy string

const (
	StrategyLong  Strategy = "long"
	StrategyShort Strategy = "short"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyLong || s == StrategyShort
}

// PricePoint is one adjusted close of a ticker.
type PricePoint struct {
	Date     time.Time `json:"date" yaml:"date"`
	AdjClose float64   `json:"adj_close" yaml:"adj_close"`
}

// Closes extracts the adjusted closes of a series in order.
func Closes(points []PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.AdjClose
	}
	return closes
}

// TickerError reports a per-ticker failure inside a batch.
type TickerError struct {
	Ticker string `json:"ticker" yaml:"ticker"`
	Error  string `json:"error" yaml:"error"`
}

// Round2 rounds a monetary or percentage value to cents.
func Round2(v float64) float64 {
	return RoundTo(v, 2)
}

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

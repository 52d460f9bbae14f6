package models

import "time"

// Signal is the action attached to a ranked momentum record.
type Signal string

const (
	SignalInvest Signal = "Invest"
	SignalExit   Signal = "Exit"
	SignalShort  Signal = "Short"
	SignalCover  Signal = "Cover"
)

// MomentumScore is the unranked score of one ticker.
// PerfLookback and PerfRecent are only set by the 63-5 scorer.
type MomentumScore struct {
	Ticker       string  `json:"ticker" yaml:"ticker"`
	Momentum     float64 `json:"momentum" yaml:"momentum"`
	PerfLookback float64 `json:"perf_lookback" yaml:"perf_lookback"`
	PerfRecent   float64 `json:"perf_recent" yaml:"perf_recent"`
}

// MomentumRecord is one ranked and allocated entry of a batch.
type MomentumRecord struct {
	Ticker       string  `json:"ticker" yaml:"ticker"`
	Momentum     float64 `json:"momentum" yaml:"momentum"`
	PerfLookback float64 `json:"perf_lookback,omitempty" yaml:"perf_lookback,omitempty"`
	PerfRecent   float64 `json:"perf_recent,omitempty" yaml:"perf_recent,omitempty"`
	Rank         int     `json:"rank" yaml:"rank"`
	Signal       Signal  `json:"signal" yaml:"signal"`
	Allocation   float64 `json:"allocation" yaml:"allocation"`
}

// Selected reports whether the record received capital.
func (r MomentumRecord) Selected() bool {
	return r.Signal == SignalInvest || r.Signal == SignalShort
}

// RankedBatch is the output of ranking one panel.
type RankedBatch struct {
	Strategy        Strategy         `json:"strategy" yaml:"strategy"`
	CalculationDate time.Time        `json:"calculation_date" yaml:"calculation_date"`
	NbTop           int              `json:"nb_top" yaml:"nb_top"`
	Selected        int              `json:"total_selected" yaml:"total_selected"`
	Records         []MomentumRecord `json:"records" yaml:"records"`
	Errors          []TickerError    `json:"errors" yaml:"errors"`
}

// Success reports whether at least one ticker was ranked.
func (b *RankedBatch) Success() bool {
	return len(b.Records) > 0
}

// TotalAllocation sums the allocations of the batch.
func (b *RankedBatch) TotalAllocation() float64 {
	var total float64
	for _, r := range b.Records {
		total += r.Allocation
	}
	return total
}

// Snapshot is a persisted ranked batch.
type Snapshot struct {
	ID              string           `json:"id" yaml:"id"`
	Strategy        Strategy         `json:"strategy" yaml:"strategy"`
	CalculationDate time.Time        `json:"calculation_date" yaml:"calculation_date"`
	CreatedAt       time.Time        `json:"created_at" yaml:"created_at"`
	NbTop           int              `json:"nb_top" yaml:"nb_top"`
	Records         []MomentumRecord `json:"records" yaml:"records"`
}

// SnapshotFromBatch converts a ranked batch into a snapshot ready to persist.
func SnapshotFromBatch(b *RankedBatch) *Snapshot {
	records := make([]MomentumRecord, len(b.Records))
	copy(records, b.Records)
	return &Snapshot{
		Strategy:        b.Strategy,
		CalculationDate: b.CalculationDate,
		NbTop:           b.NbTop,
		Records:         records,
	}
}

// Package recommend turns momentum sub-scores and volatility into an
// actionable put or put-spread recommendation.
package recommend

import (
	"fmt"
	"math"
	"time"

	"momentum-options/internal/analysis/indicators"
	"momentum-options/internal/analysis/spread"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Rules are the thresholds and static rules applied to every ticker.
type Rules struct {
	HardLookbackMax       float64
	RecentMax             float64
	IVRankMax             float64
	SpreadIVThreshold     float64
	SpreadRecentThreshold float64
	MinSoftScore          float64

	DeltaLong  float64
	DeltaShort float64
	NakedDelta float64

	Entry models.EntryRules
	Exit  models.ExitRules
}

// DefaultRules returns the standard short-momentum rule set.
func DefaultRules() Rules {
	return Rules{
		HardLookbackMax:       -15,
		RecentMax:             5,
		IVRankMax:             60,
		SpreadIVThreshold:     0.40,
		SpreadRecentThreshold: -2,
		MinSoftScore:          0.66,
		DeltaLong:             spread.DefaultDeltaLong,
		DeltaShort:            spread.DefaultDeltaShort,
		NakedDelta:            spread.DefaultNakedDelta,
		Entry: models.EntryRules{
			RSIRange:       [2]float64{40, 55},
			PullbackMaxPct: 50,
			NoGapAbovePct:  3,
		},
		Exit: models.ExitRules{
			TakeProfitPct: 80,
			StopLossPct:   -50,
			TimeStopDTE:   14,
		},
	}
}

// Input describes one ticker to evaluate.
type Input struct {
	Ticker       string
	Spot         float64
	IV           float64 // annualized, as a fraction
	PerfLookback float64 // percent
	PerfRecent   float64 // percent
	DTE          int
	Rate         float64
	IVRank       *float64
	// Closes is an optional daily close series used for the RSI check.
	Closes []float64
	// Now anchors the expiration date; zero means time.Now.
	Now time.Time
}

// Engine evaluates entry conditions and prices both structures.
type Engine struct {
	builder *spread.Builder
	rsi     *indicators.RSI
	rules   Rules
}

// NewEngine creates an engine. A nil builder uses the default strike solver.
func NewEngine(builder *spread.Builder, rules Rules) *Engine {
	if builder == nil {
		builder = spread.NewBuilder(nil)
	}
	return &Engine{
		builder: builder,
		rsi:     indicators.NewRSI(indicators.DefaultRSIPeriod),
		rules:   rules,
	}
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Recommend evaluates in. The result is not rounded.
func (e *Engine) Recommend(in Input) (models.Recommendation, error) {
	if in.DTE <= 0 {
		return models.Recommendation{}, apperrors.NewValidationError("dte", in.DTE, "must be a positive number of days")
	}
	if math.IsNaN(in.PerfLookback) || math.IsNaN(in.PerfRecent) {
		return models.Recommendation{}, apperrors.NewValidationError("perf", in.PerfLookback, "momentum sub-scores must be numbers")
	}

	pricingIn := models.PricingInput{Spot: in.Spot, T: models.DTEToYears(in.DTE), Rate: in.Rate, Sigma: in.IV}

	put, err := e.builder.NakedPut(pricingIn, e.rules.NakedDelta)
	if err != nil {
		return models.Recommendation{}, apperrors.Wrapf(err, "%s: naked put", in.Ticker)
	}
	putSpread, err := e.builder.PutSpread(pricingIn, e.rules.DeltaLong, e.rules.DeltaShort)
	if err != nil {
		return models.Recommendation{}, apperrors.Wrapf(err, "%s: put spread", in.Ticker)
	}

	conds := e.Evaluate(in.PerfLookback, in.PerfRecent, in.IVRank)
	entry := conds.Hard.MajorDowntrend && conds.SoftScore >= e.rules.MinSoftScore

	signal := models.SignalWatch
	if entry {
		signal = models.SignalShortMomentumOption
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	rec := models.Recommendation{
		Ticker:             in.Ticker,
		Signal:             signal,
		MomentumScore:      in.PerfLookback,
		PerfLookback:       in.PerfLookback,
		PerfRecent:         in.PerfRecent,
		Spot:               in.Spot,
		IV:                 in.IV,
		IVPct:              in.IV * 100,
		IVRank:             in.IVRank,
		DTE:                in.DTE,
		ExpirationDate:     ExpirationDate(now, in.DTE),
		Conditions:         conds,
		EntryConditionsMet: entry,
		Structure:          e.ChooseStructure(in.IV, in.PerfRecent),
		Put:                put,
		PutSpread:          putSpread,
		EntryRules:         e.rules.Entry,
		ExitRules:          e.rules.Exit,
	}

	if !put.Converged {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("put strike search did not reach delta %.2f", e.rules.NakedDelta))
	}
	if !putSpread.Converged {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("spread strike search did not reach deltas %.2f/%.2f", e.rules.DeltaLong, e.rules.DeltaShort))
	}

	if len(in.Closes) > 0 {
		if value, err := e.rsi.Last(in.Closes); err == nil {
			band := e.rules.Entry.RSIRange
			rec.RSI = &models.RSICheck{Value: value, InBand: value >= band[0] && value <= band[1]}
		} else {
			rec.Warnings = append(rec.Warnings, "rsi unavailable: "+err.Error())
		}
	}

	return rec, nil
}

// Evaluate scores the hard and soft entry conditions. A missing IV rank
// fails its soft condition.
func (e *Engine) Evaluate(perfLookback, perfRecent float64, ivRank *float64) models.Conditions {
	soft := models.SoftConditions{
		NoShortSqueeze: perfRecent <= e.rules.RecentMax,
		IVRankOK:       ivRank != nil && *ivRank <= e.rules.IVRankMax,
	}
	met, total := soft.Count()
	return models.Conditions{
		Hard:      models.HardConditions{MajorDowntrend: perfLookback <= e.rules.HardLookbackMax},
		Soft:      soft,
		SoftScore: float64(met) / float64(total),
	}
}

// ChooseStructure prefers the spread when volatility is elevated or the
// recent move is not clearly down.
func (e *Engine) ChooseStructure(iv, perfRecent float64) models.StructureType {
	if iv > e.rules.SpreadIVThreshold || perfRecent > e.rules.SpreadRecentThreshold {
		return models.StructurePutSpread
	}
	return models.StructurePut
}

// ExpirationDate returns now + dte days formatted as YYYY-MM-DD.
func ExpirationDate(now time.Time, dte int) string {
	return now.AddDate(0, 0, dte).Format("2006-01-02")
}

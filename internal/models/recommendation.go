package models

// RecommendationSignal is the headline verdict of a recommendation.
type RecommendationSignal string

const (
	SignalShortMomentumOption RecommendationSignal = "SHORT_MOMENTUM_OPTION"
	SignalWatch               RecommendationSignal = "WATCH"
)

// HardConditions must all hold before an entry is considered.
type HardConditions struct {
	MajorDowntrend bool `json:"major_downtrend" yaml:"major_downtrend"`
}

// SoftConditions degrade the quality of an entry without vetoing it.
type SoftConditions struct {
	NoShortSqueeze bool `json:"no_short_squeeze" yaml:"no_short_squeeze"`
	IVRankOK       bool `json:"iv_rank_ok" yaml:"iv_rank_ok"`
}

// Count returns satisfied and total soft conditions.
func (s SoftConditions) Count() (met, total int) {
	for _, ok := range []bool{s.NoShortSqueeze, s.IVRankOK} {
		if ok {
			met++
		}
		total++
	}
	return met, total
}

// Conditions groups the evaluated entry conditions.
type Conditions struct {
	Hard      HardConditions `json:"hard_conditions" yaml:"hard_conditions"`
	Soft      SoftConditions `json:"soft_conditions" yaml:"soft_conditions"`
	SoftScore float64        `json:"soft_score" yaml:"soft_score"`
}

// EntryRules are static entry filters attached to every recommendation.
type EntryRules struct {
	RSIRange       [2]float64 `json:"rsi_range" yaml:"rsi_range"`
	PullbackMaxPct float64    `json:"pullback_max_pct" yaml:"pullback_max_pct"`
	NoGapAbovePct  float64    `json:"no_gap_above_pct" yaml:"no_gap_above_pct"`
}

// ExitRules are static exit rules attached to every recommendation.
type ExitRules struct {
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct   float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TimeStopDTE   int     `json:"time_stop_dte" yaml:"time_stop_dte"`
}

// RSICheck reports the current RSI against the entry band.
type RSICheck struct {
	Value  float64 `json:"value" yaml:"value"`
	InBand bool    `json:"in_band" yaml:"in_band"`
}

// Recommendation is the actionable output for one ticker.
type Recommendation struct {
	Ticker             string               `json:"ticker" yaml:"ticker"`
	Signal             RecommendationSignal `json:"signal" yaml:"signal"`
	MomentumScore      float64              `json:"momentum_score" yaml:"momentum_score"`
	PerfLookback       float64              `json:"perf_lookback" yaml:"perf_lookback"`
	PerfRecent         float64              `json:"perf_recent" yaml:"perf_recent"`
	Spot               float64              `json:"spot_price" yaml:"spot_price"`
	IV                 float64              `json:"iv" yaml:"iv"`
	IVPct              float64              `json:"iv_pct" yaml:"iv_pct"`
	IVRank             *float64             `json:"iv_rank" yaml:"iv_rank"`
	DTE                int                  `json:"dte" yaml:"dte"`
	ExpirationDate     string               `json:"expiration_date" yaml:"expiration_date"`
	Conditions         Conditions           `json:"conditions" yaml:"conditions"`
	EntryConditionsMet bool                 `json:"entry_conditions_met" yaml:"entry_conditions_met"`
	Structure          StructureType        `json:"recommended_strategy" yaml:"recommended_strategy"`
	Put                NakedPut             `json:"put" yaml:"put"`
	PutSpread          Spread               `json:"put_spread" yaml:"put_spread"`
	EntryRules         EntryRules           `json:"entry_rules" yaml:"entry_rules"`
	ExitRules          ExitRules            `json:"exit_rules" yaml:"exit_rules"`
	RSI                *RSICheck            `json:"rsi,omitempty" yaml:"rsi,omitempty"`
	Warnings           []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Rounded returns the recommendation with output-boundary rounding applied.
func (r Recommendation) Rounded() Recommendation {
	r.MomentumScore = Round2(r.MomentumScore)
	r.PerfLookback = Round2(r.PerfLookback)
	r.PerfRecent = Round2(r.PerfRecent)
	r.Spot = Round2(r.Spot)
	r.IV = RoundTo(r.IV, 4)
	r.IVPct = RoundTo(r.IVPct, 1)
	r.Conditions.SoftScore = Round2(r.Conditions.SoftScore)
	r.Put = r.Put.Rounded()
	r.PutSpread = r.PutSpread.Rounded()
	if r.RSI != nil {
		rsi := *r.RSI
		rsi.Value = Round2(rsi.Value)
		r.RSI = &rsi
	}
	return r
}

// RecommendationBatch is the output of evaluating many tickers.
type RecommendationBatch struct {
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
	Errors          []TickerError    `json:"errors" yaml:"errors"`
}

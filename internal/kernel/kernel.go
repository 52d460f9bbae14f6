// Package kernel is the call boundary of the pricing and ranking engine.
// Inputs use days to expiry; outputs are rounded here and nowhere else.
package kernel

import (
	"time"

	"github.com/rs/zerolog"
	"momentum-options/internal/analysis/momentum"
	"momentum-options/internal/analysis/pricing"
	"momentum-options/internal/analysis/recommend"
	"momentum-options/internal/analysis/spread"
	"momentum-options/internal/analysis/volatility"
	"momentum-options/internal/config"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/logging"
	"momentum-options/internal/models"
	"momentum-options/internal/store"
)

// Kernel wires the solvers together with their configuration.
type Kernel struct {
	cfg     *config.Config
	strikes *pricing.StrikeSolver
	implied *volatility.ImpliedSolver
	builder *spread.Builder
	engine  *recommend.Engine
	prices  store.PriceHistory
	history store.HistoryStore
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a kernel. prices and history may be nil for callers that only
// price options; panel and batch operations then fail with ErrDataNotFound.
func New(cfg *config.Config, prices store.PriceHistory, history store.HistoryStore, logger zerolog.Logger) *Kernel {
	if cfg == nil {
		cfg = config.Default()
	}
	strikes := pricing.NewStrikeSolverWithParams(cfg.Strikes.MaxIterations, cfg.Strikes.Tolerance)
	builder := spread.NewBuilder(strikes)
	return &Kernel{
		cfg:     cfg,
		strikes: strikes,
		implied: volatility.NewImpliedSolverWithParams(cfg.Implied.InitialSigma, cfg.Implied.MaxIterations),
		builder: builder,
		engine:  recommend.NewEngine(builder, RulesFromConfig(cfg)),
		prices:  prices,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// RulesFromConfig maps configuration onto the recommendation rule set.
func RulesFromConfig(cfg *config.Config) recommend.Rules {
	return recommend.Rules{
		HardLookbackMax:       cfg.Recommendation.HardLookbackMax,
		RecentMax:             cfg.Recommendation.RecentMax,
		IVRankMax:             cfg.Recommendation.IVRankMax,
		SpreadIVThreshold:     cfg.Recommendation.SpreadIVThreshold,
		SpreadRecentThreshold: cfg.Recommendation.SpreadRecentThreshold,
		MinSoftScore:          cfg.Recommendation.MinSoftScore,
		DeltaLong:             cfg.Spread.DeltaLong,
		DeltaShort:            cfg.Spread.DeltaShort,
		NakedDelta:            cfg.Spread.NakedDelta,
		Entry: models.EntryRules{
			RSIRange:       [2]float64{cfg.Rules.Entry.RSIMin, cfg.Rules.Entry.RSIMax},
			PullbackMaxPct: cfg.Rules.Entry.PullbackMaxPct,
			NoGapAbovePct:  cfg.Rules.Entry.NoGapAbovePct,
		},
		Exit: models.ExitRules{
			TakeProfitPct: cfg.Rules.Exit.TakeProfitPct,
			StopLossPct:   cfg.Rules.Exit.StopLossPct,
			TimeStopDTE:   cfg.Rules.Exit.TimeStopDTE,
		},
	}
}

// Config returns the kernel configuration.
func (k *Kernel) Config() *config.Config {
	return k.cfg
}

func (k *Kernel) input(spot, strike float64, dteDays int, rate, iv float64) (models.PricingInput, error) {
	if dteDays <= 0 {
		return models.PricingInput{}, apperrors.NewValidationError("dte_days", dteDays, "must be a positive number of days")
	}
	in := models.PricingInput{Spot: spot, Strike: strike, T: models.DTEToYears(dteDays), Rate: rate, Sigma: iv}
	if err := pricing.Validate(in); err != nil {
		return models.PricingInput{}, err
	}
	return in, nil
}

// PricePut returns the Black-Scholes put price.
func (k *Kernel) PricePut(spot, strike float64, dteDays int, rate, iv float64) (float64, error) {
	return k.PriceOption(spot, strike, dteDays, rate, iv, models.OptionPut)
}

// PriceOption returns the Black-Scholes price of a put or call.
func (k *Kernel) PriceOption(spot, strike float64, dteDays int, rate, iv float64, kind models.OptionKind) (float64, error) {
	in, err := k.input(spot, strike, dteDays, rate, iv)
	if err != nil {
		return 0, err
	}
	return models.Round2(pricing.Price(in, kind)), nil
}

// GreeksPut returns the put Greeks.
func (k *Kernel) GreeksPut(spot, strike float64, dteDays int, rate, iv float64) (models.Greeks, error) {
	in, err := k.input(spot, strike, dteDays, rate, iv)
	if err != nil {
		return models.Greeks{}, err
	}
	return pricing.GreeksPut(in).Rounded(), nil
}

// FindStrikeByDelta returns the cent strike whose delta is closest to target.
func (k *Kernel) FindStrikeByDelta(spot float64, dteDays int, rate, iv, target float64, kind models.OptionKind) (models.StrikeResult, error) {
	in, err := k.input(spot, spot, dteDays, rate, iv)
	if err != nil {
		return models.StrikeResult{}, err
	}
	res, err := k.strikes.FindStrike(in, target, kind)
	if err != nil {
		return models.StrikeResult{}, err
	}
	if err := StrikeConvergence(res); err != nil {
		logging.LogNonConvergence(k.logger, err)
	}
	res.Delta = models.RoundTo(res.Delta, 3)
	return res, nil
}

// BuildPutSpread builds the debit spread at the given leg deltas.
func (k *Kernel) BuildPutSpread(spot float64, dteDays int, rate, iv, deltaLong, deltaShort float64) (models.Spread, error) {
	in, err := k.input(spot, spot, dteDays, rate, iv)
	if err != nil {
		return models.Spread{}, err
	}
	s, err := k.builder.PutSpread(in, deltaLong, deltaShort)
	if err != nil {
		return models.Spread{}, err
	}
	if !s.Converged {
		l := logging.WithOperation(k.logger, "put_spread")
		l.Warn().
			Float64("strike_long", s.StrikeLong).
			Float64("strike_short", s.StrikeShort).
			Msg("Spread legs did not reach their target deltas")
	}
	return s.Rounded(), nil
}

// BuildNakedPut builds the single long put at delta.
func (k *Kernel) BuildNakedPut(spot float64, dteDays int, rate, iv, delta float64) (models.NakedPut, error) {
	in, err := k.input(spot, spot, dteDays, rate, iv)
	if err != nil {
		return models.NakedPut{}, err
	}
	p, err := k.builder.NakedPut(in, delta)
	if err != nil {
		return models.NakedPut{}, err
	}
	return p.Rounded(), nil
}

// ImpliedVolatility backs sigma out of an observed option price.
func (k *Kernel) ImpliedVolatility(spot, strike float64, dteDays int, rate, marketPrice float64, kind models.OptionKind) (models.ImpliedVolResult, error) {
	in, err := k.input(spot, strike, dteDays, rate, 0)
	if err != nil {
		return models.ImpliedVolResult{}, err
	}
	res, err := k.implied.Solve(in, marketPrice, kind)
	if err != nil {
		return models.ImpliedVolResult{}, err
	}
	if err := ImpliedConvergence(res); err != nil {
		logging.LogNonConvergence(k.logger, err)
	}
	res.Sigma = models.RoundTo(res.Sigma, 4)
	res.Residual = models.RoundTo(res.Residual, 6)
	return res, nil
}

// StrikeConvergence returns a ConvergenceError when res missed its target
// delta, and nil otherwise. The residual is the delta error.
func StrikeConvergence(res models.StrikeResult) error {
	if res.Converged {
		return nil
	}
	return apperrors.NewConvergenceError("strike", res.Iterations, res.Delta-res.Target)
}

// ImpliedConvergence returns a ConvergenceError when the implied volatility
// search stopped before matching the market price, and nil otherwise.
func ImpliedConvergence(res models.ImpliedVolResult) error {
	if res.Converged {
		return nil
	}
	return apperrors.NewConvergenceError("implied_volatility", res.Iterations, res.Residual)
}

// HistoricalVolatility annualizes close-to-close volatility. ok is false
// when the configured default was substituted.
func (k *Kernel) HistoricalVolatility(closes []float64, window int) (vol float64, ok bool) {
	if window <= 0 {
		window = k.cfg.Volatility.Window
	}
	vol, ok = volatility.HistoricalWithStatus(closes, window)
	if !ok {
		vol = k.cfg.Volatility.Default
	}
	return models.RoundTo(vol, 4), ok
}

// RankMomentum scores and ranks the given series. Tickers with too little
// history are reported in the batch errors.
func (k *Kernel) RankMomentum(series []momentum.Series, topN int, strategy models.Strategy) (*models.RankedBatch, error) {
	if topN <= 0 {
		topN = k.cfg.Momentum.NbTop
	}
	ranker := momentum.NewRanker(topN)
	records, errs, err := ranker.RankSeries(series, strategy)
	if err != nil {
		return nil, err
	}
	for _, e := range errs {
		l := logging.WithSymbol(k.logger, e.Ticker)
		l.Warn().Str("operation", "rank").Msg(e.Error)
	}

	batch := &models.RankedBatch{
		Strategy:        strategy,
		CalculationDate: k.now(),
		NbTop:           ranker.NbTop(),
		Records:         roundRecords(records),
		Errors:          errs,
	}
	for _, r := range batch.Records {
		if r.Selected() {
			batch.Selected++
		}
	}
	return batch, nil
}

// RecommendRequest holds the inputs of a single recommendation.
type RecommendRequest struct {
	Ticker       string
	Spot         float64
	IV           float64
	PerfLookback float64
	PerfRecent   float64
	DTE          int // zero uses the configured target
	IVRank       *float64
	Closes       []float64
}

// Recommend evaluates one ticker.
func (k *Kernel) Recommend(req RecommendRequest) (models.Recommendation, error) {
	dte := req.DTE
	if dte == 0 {
		dte = k.cfg.Pricing.DTETarget
	}
	rec, err := k.engine.Recommend(recommend.Input{
		Ticker:       req.Ticker,
		Spot:         req.Spot,
		IV:           req.IV,
		PerfLookback: req.PerfLookback,
		PerfRecent:   req.PerfRecent,
		DTE:          dte,
		Rate:         k.cfg.Pricing.RiskFreeRate,
		IVRank:       req.IVRank,
		Closes:       req.Closes,
		Now:          k.now(),
	})
	if err != nil {
		return models.Recommendation{}, err
	}
	for _, w := range rec.Warnings {
		l := logging.WithSymbol(k.logger, req.Ticker)
		l.Warn().Str("operation", "recommend").Msg(w)
	}
	return rec.Rounded(), nil
}

func roundRecords(records []models.MomentumRecord) []models.MomentumRecord {
	out := make([]models.MomentumRecord, len(records))
	for i, r := range records {
		r.Momentum = models.Round2(r.Momentum)
		r.PerfLookback = models.Round2(r.PerfLookback)
		r.PerfRecent = models.Round2(r.PerfRecent)
		out[i] = r
	}
	return out
}

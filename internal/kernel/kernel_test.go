package kernel

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"momentum-options/internal/analysis/pricing"
	"momentum-options/internal/analysis/volatility"
	"momentum-options/internal/config"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
	"momentum-options/internal/store"
)

type memStore struct {
	mu        sync.Mutex
	prices    map[string][]models.PricePoint
	snapshots []models.Snapshot
}

func newMemStore() *memStore {
	return &memStore{prices: make(map[string][]models.PricePoint)}
}

func (m *memStore) SavePrices(_ context.Context, ticker string, points []models.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = append(m.prices[ticker], points...)
	return nil
}

func (m *memStore) GetPrices(_ context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PricePoint
	for _, p := range m.prices[ticker] {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) LatestPriceDate(_ context.Context, ticker string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := m.prices[ticker]
	if len(points) == 0 {
		return time.Time{}, nil
	}
	return points[len(points)-1].Date, nil
}

func (m *memStore) AppendSnapshot(_ context.Context, snap *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.ID = "snap-" + string(rune('a'+len(m.snapshots)))
	snap.CreatedAt = time.Now()
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *memStore) ListSnapshots(_ context.Context, _ store.SnapshotFilter) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Snapshot(nil), m.snapshots...), nil
}

func (m *memStore) GetSnapshot(_ context.Context, id string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snapshots {
		if m.snapshots[i].ID == id {
			s := m.snapshots[i]
			return &s, nil
		}
	}
	return nil, apperrors.ErrSnapshotNotFound
}

func (m *memStore) LatestSnapshot(_ context.Context, _ models.Strategy) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil, apperrors.ErrSnapshotNotFound
	}
	s := m.snapshots[len(m.snapshots)-1]
	return &s, nil
}

// weekdays generates one close per weekday ending at end, computed by f
// from the point's index.
func weekdays(end time.Time, days int, f func(i int) float64) []models.PricePoint {
	var dates []time.Time
	for d := end.AddDate(0, 0, -days); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
	}
	points := make([]models.PricePoint, len(dates))
	for i, d := range dates {
		points[i] = models.PricePoint{Date: d, AdjClose: f(i)}
	}
	return points
}

func newTestKernel(s *memStore) *Kernel {
	k := New(config.Default(), s, s, zerolog.Nop())
	k.now = func() time.Time { return time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC) }
	return k
}

func TestPricePut(t *testing.T) {
	k := newTestKernel(newMemStore())

	got, err := k.PricePut(100, 95, 45, 0.05, 0.30)
	if err != nil {
		t.Fatalf("PricePut: %v", err)
	}
	if got != 1.88 {
		t.Errorf("put = %v, want 1.88", got)
	}

	if _, err := k.PricePut(100, 95, 0, 0.05, 0.30); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("zero dte: expected ErrInvalidInput, got %v", err)
	}
	if _, err := k.PricePut(-1, 95, 45, 0.05, 0.30); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("negative spot: expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildPutSpread(t *testing.T) {
	k := newTestKernel(newMemStore())

	s, err := k.BuildPutSpread(100, 45, 0.05, 0.30, -0.30, -0.10)
	if err != nil {
		t.Fatalf("BuildPutSpread: %v", err)
	}
	if s.StrikeLong <= s.StrikeShort {
		t.Errorf("long strike %v not above short strike %v", s.StrikeLong, s.StrikeShort)
	}
	if math.Abs(s.StrikeLong-95.75) > 0.02 || math.Abs(s.StrikeShort-88.38) > 0.02 {
		t.Errorf("strikes = %v/%v, want about 95.75/88.38", s.StrikeLong, s.StrikeShort)
	}
	if s.NetDebit <= 0 || s.MaxLoss != s.NetDebit {
		t.Errorf("net debit %v max loss %v", s.NetDebit, s.MaxLoss)
	}
	if s.DTE != 45 || s.IVUsed != 30 {
		t.Errorf("dte %d iv_used %v", s.DTE, s.IVUsed)
	}
}

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	k := newTestKernel(newMemStore())
	in := models.PricingInput{Spot: 100, Strike: 95, T: models.DTEToYears(45), Rate: 0.05, Sigma: 0.42}
	price := pricing.PutPrice(in)

	res, err := k.ImpliedVolatility(100, 95, 45, 0.05, price, models.OptionPut)
	if err != nil {
		t.Fatalf("ImpliedVolatility: %v", err)
	}
	if !res.Converged || math.Abs(res.Sigma-0.42) > 1e-3 {
		t.Errorf("result %+v, want converged sigma 0.42", res)
	}
}

func TestHistoricalVolatility_DefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Volatility.Default = 0.25
	k := New(cfg, nil, nil, zerolog.Nop())

	vol, ok := k.HistoricalVolatility([]float64{100, 101}, 0)
	if ok || vol != 0.25 {
		t.Errorf("vol %v ok %v, want configured default", vol, ok)
	}
}

func TestRankPanel_LongSavesSnapshot(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = s.SavePrices(ctx, "UP", weekdays(asOf, 420, func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) }))
	_ = s.SavePrices(ctx, "DOWN", weekdays(asOf, 420, func(i int) float64 { return 100 * math.Pow(0.999, float64(i)) }))
	_ = s.SavePrices(ctx, "FLAT", weekdays(asOf, 420, func(int) float64 { return 50 }))

	k := newTestKernel(s)
	batch, err := k.RankPanel(ctx, []string{"DOWN", "MISSING", "FLAT", "UP"}, models.StrategyLong, 1, asOf, true)
	if err != nil {
		t.Fatalf("RankPanel: %v", err)
	}

	if len(batch.Records) != 3 {
		t.Fatalf("records = %+v", batch.Records)
	}
	want := []string{"UP", "FLAT", "DOWN"}
	for i, rec := range batch.Records {
		if rec.Ticker != want[i] {
			t.Errorf("rank %d = %s, want %s", i+1, rec.Ticker, want[i])
		}
	}
	if batch.Records[0].Signal != models.SignalInvest || batch.Records[0].Allocation != 100 {
		t.Errorf("top record %+v", batch.Records[0])
	}
	if batch.Selected != 1 || batch.NbTop != 1 {
		t.Errorf("selected %d nb_top %d", batch.Selected, batch.NbTop)
	}
	if len(batch.Errors) != 1 || batch.Errors[0].Ticker != "MISSING" {
		t.Errorf("errors = %+v", batch.Errors)
	}
	if !batch.CalculationDate.Equal(asOf) {
		t.Errorf("calculation date %v", batch.CalculationDate)
	}

	snaps, _ := s.ListSnapshots(ctx, store.SnapshotFilter{})
	if len(snaps) != 1 || len(snaps[0].Records) != 3 || snaps[0].Strategy != models.StrategyLong {
		t.Errorf("snapshots = %+v", snaps)
	}
}

func TestRankPanel_ShortNeedsDailyHistory(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = s.SavePrices(ctx, "OLD", weekdays(asOf, 200, func(i int) float64 { return 100 - 0.1*float64(i) }))
	_ = s.SavePrices(ctx, "NEW", weekdays(asOf, 14, func(int) float64 { return 10 }))

	batch, err := newTestKernel(s).RankPanel(ctx, []string{"NEW", "OLD"}, models.StrategyShort, 5, asOf, false)
	if err != nil {
		t.Fatalf("RankPanel: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Ticker != "OLD" || batch.Records[0].Signal != models.SignalShort {
		t.Fatalf("records = %+v", batch.Records)
	}
	if batch.Records[0].PerfLookback >= 0 {
		t.Errorf("declining series has lookback %v", batch.Records[0].PerfLookback)
	}
	if len(batch.Errors) != 1 || batch.Errors[0].Ticker != "NEW" {
		t.Errorf("errors = %+v", batch.Errors)
	}
	if snaps, _ := s.ListSnapshots(ctx, store.SnapshotFilter{}); len(snaps) != 0 {
		t.Errorf("unexpected snapshot saved")
	}
}

func TestRankPanel_Validation(t *testing.T) {
	k := newTestKernel(newMemStore())
	ctx := context.Background()

	if _, err := k.RankPanel(ctx, nil, models.StrategyLong, 5, time.Time{}, false); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("empty tickers: expected ErrInvalidInput, got %v", err)
	}
	if _, err := k.RankPanel(ctx, []string{"A"}, models.Strategy("flat"), 5, time.Time{}, false); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("bad strategy: expected ErrInvalidInput, got %v", err)
	}

	noStore := New(config.Default(), nil, nil, zerolog.Nop())
	if _, err := noStore.RankPanel(ctx, []string{"A"}, models.StrategyLong, 5, time.Time{}, false); !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("no store: expected ErrDataNotFound, got %v", err)
	}
}

func TestRecommendBatch(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	falling := func(i int) float64 {
		return 100 * math.Pow(0.995, float64(i)) * (1 + 0.01*float64(i%2))
	}
	_ = s.SavePrices(ctx, "DN", weekdays(asOf, 200, falling))
	_ = s.SavePrices(ctx, "WT", weekdays(asOf, 200, falling))
	_ = s.SavePrices(ctx, "NEW", weekdays(asOf, 20, func(int) float64 { return 30 }))

	k := newTestKernel(s)
	batch, err := k.RecommendBatch(ctx, BatchRequest{
		Tickers: []string{"DN", "NEW", "WT", "GONE"},
		AsOf:    asOf,
		IVRanks: map[string]float64{"DN": 30},
	})
	if err != nil {
		t.Fatalf("RecommendBatch: %v", err)
	}

	if len(batch.Recommendations) != 2 {
		t.Fatalf("recommendations = %+v", batch.Recommendations)
	}
	dn, wt := batch.Recommendations[0], batch.Recommendations[1]
	if dn.Ticker != "DN" || wt.Ticker != "WT" {
		t.Fatalf("order = %s, %s", dn.Ticker, wt.Ticker)
	}
	if dn.Signal != models.SignalShortMomentumOption || !dn.EntryConditionsMet {
		t.Errorf("DN signal %s conditions %+v", dn.Signal, dn.Conditions)
	}
	// Without an IV rank only one soft condition can pass.
	if wt.Signal != models.SignalWatch || wt.Conditions.SoftScore != 0.5 {
		t.Errorf("WT signal %s conditions %+v", wt.Signal, wt.Conditions)
	}
	if dn.DTE != 45 || dn.ExpirationDate != "2024-08-12" {
		t.Errorf("dte %d expiration %s", dn.DTE, dn.ExpirationDate)
	}
	if dn.IV <= 0 || dn.RSI == nil {
		t.Errorf("iv %v rsi %+v", dn.IV, dn.RSI)
	}
	if dn.PutSpread.StrikeLong <= dn.PutSpread.StrikeShort {
		t.Errorf("spread strikes %v/%v", dn.PutSpread.StrikeLong, dn.PutSpread.StrikeShort)
	}

	if len(batch.Errors) != 2 || batch.Errors[0].Ticker != "NEW" || batch.Errors[1].Ticker != "GONE" {
		t.Fatalf("errors = %+v", batch.Errors)
	}
	if !strings.Contains(batch.Errors[0].Error, "insufficient") {
		t.Errorf("NEW error = %q", batch.Errors[0].Error)
	}
}

func TestFindStrikeByDelta_ReportsNonConvergence(t *testing.T) {
	var buf bytes.Buffer
	k := New(config.Default(), nil, nil, zerolog.New(&buf))

	// One cent moves delta by several hundredths on a two-day option at $5.
	res, err := k.FindStrikeByDelta(5, 2, 0.05, 0.15, -0.30, models.OptionPut)
	if err != nil {
		t.Fatalf("FindStrikeByDelta: %v", err)
	}
	if res.Converged {
		t.Fatalf("strike %.2f with delta %.3f reported as converged", res.Strike, res.Delta)
	}

	cerr := StrikeConvergence(res)
	if !apperrors.Is(cerr, apperrors.ErrNonConvergence) {
		t.Errorf("expected ErrNonConvergence, got %v", cerr)
	}
	var ce *apperrors.ConvergenceError
	if !apperrors.As(cerr, &ce) || ce.Solver != "strike" || ce.Iterations != res.Iterations {
		t.Errorf("convergence error = %+v", ce)
	}
	for _, want := range []string{`"event":"non_convergence"`, `"solver":"strike"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %s: %s", want, buf.String())
		}
	}

	ok, err := k.FindStrikeByDelta(100, 45, 0.05, 0.30, -0.30, models.OptionPut)
	if err != nil {
		t.Fatalf("FindStrikeByDelta: %v", err)
	}
	if StrikeConvergence(ok) != nil {
		t.Errorf("converged result produced an error: %+v", ok)
	}
}

func TestRecommendBatch_KeepsInputOrder(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	var tickers []string
	for i := 0; i < 10; i++ {
		ticker := fmt.Sprintf("F%d", i)
		scale := 20 + 15*float64(i)
		_ = s.SavePrices(ctx, ticker, weekdays(asOf, 200, func(j int) float64 {
			return scale * math.Pow(0.996, float64(j)) * (1 + 0.01*float64(j%2))
		}))
		tickers = append(tickers, ticker)
		if i == 4 {
			tickers = append(tickers, "GONE")
		}
	}

	k := newTestKernel(s)
	k.cfg.Momentum.Workers = 3
	batch, err := k.RecommendBatch(ctx, BatchRequest{Tickers: tickers, AsOf: asOf})
	if err != nil {
		t.Fatalf("RecommendBatch: %v", err)
	}

	if len(batch.Recommendations) != 10 {
		t.Fatalf("recommendations = %d, want 10", len(batch.Recommendations))
	}
	for i, rec := range batch.Recommendations {
		if want := fmt.Sprintf("F%d", i); rec.Ticker != want {
			t.Errorf("position %d = %s, want %s", i, rec.Ticker, want)
		}
	}
	if len(batch.Errors) != 1 || batch.Errors[0].Ticker != "GONE" {
		t.Errorf("errors = %+v", batch.Errors)
	}
}

func TestRecommendBatch_PricesWithUnroundedVolatility(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = s.SavePrices(ctx, "DN", weekdays(asOf, 200, func(i int) float64 {
		return 100 * math.Pow(0.995, float64(i)) * (1 + 0.013*float64(i%3))
	}))

	k := newTestKernel(s)
	batch, err := k.RecommendBatch(ctx, BatchRequest{Tickers: []string{"DN"}, AsOf: asOf})
	if err != nil || len(batch.Recommendations) != 1 {
		t.Fatalf("RecommendBatch: %v %+v", err, batch)
	}
	rec := batch.Recommendations[0]

	points, _ := s.GetPrices(ctx, "DN", WindowStart(models.StrategyShort, asOf), asOf)
	closes := models.Closes(points)
	raw, ok := volatility.HistoricalWithStatus(closes, k.cfg.Volatility.Window)
	if !ok {
		t.Fatal("expected an estimated volatility")
	}
	if got, _ := k.batchVolatility(closes); got != raw {
		t.Errorf("batch volatility %v, want unrounded %v", got, raw)
	}

	want, err := k.BuildNakedPut(closes[len(closes)-1], k.cfg.Pricing.DTETarget, k.cfg.Pricing.RiskFreeRate, raw, k.cfg.Spread.NakedDelta)
	if err != nil {
		t.Fatalf("BuildNakedPut: %v", err)
	}
	if rec.Put != want {
		t.Errorf("put = %+v, want %+v", rec.Put, want)
	}
	if rec.IV != models.RoundTo(raw, 4) {
		t.Errorf("reported iv %v, want %v", rec.IV, models.RoundTo(raw, 4))
	}
}

func TestRankPanel_ErrorsFollowInputOrder(t *testing.T) {
	s := newMemStore()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = s.SavePrices(ctx, "OK", weekdays(asOf, 200, func(i int) float64 { return 100 - 0.1*float64(i) }))
	_ = s.SavePrices(ctx, "THIN", weekdays(asOf, 14, func(int) float64 { return 10 }))

	// THIN fails scoring, MISSING fails loading.
	batch, err := newTestKernel(s).RankPanel(ctx, []string{"THIN", "OK", "MISSING"}, models.StrategyShort, 5, asOf, false)
	if err != nil {
		t.Fatalf("RankPanel: %v", err)
	}
	if len(batch.Errors) != 2 || batch.Errors[0].Ticker != "THIN" || batch.Errors[1].Ticker != "MISSING" {
		t.Errorf("errors = %+v, want THIN then MISSING", batch.Errors)
	}
}

func TestSortErrors_KeepsUnknownTickers(t *testing.T) {
	errs := []models.TickerError{{Ticker: "X"}, {Ticker: "B"}, {Ticker: "A"}}
	got := sortErrors(errs, []string{"A", "B"})
	if len(got) != 3 || got[0].Ticker != "A" || got[1].Ticker != "B" || got[2].Ticker != "X" {
		t.Errorf("sorted = %+v", got)
	}
}

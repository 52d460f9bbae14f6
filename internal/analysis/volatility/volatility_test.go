package volatility

import (
	"math"
	"testing"

	"momentum-options/internal/analysis/pricing"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

func TestHistorical(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		window  int
		want    float64
		wantOK  bool
		epsilon float64
	}{
		{"insufficient", []float64{100, 101}, 30, DefaultVolatility, false, 0},
		{"empty", nil, 30, DefaultVolatility, false, 0},
		{"exactly window+1 short by one", make([]float64, 30), 30, DefaultVolatility, false, 0},
		{"alternating", []float64{100, 101, 99, 102, 98, 103, 97}, 5, 0.6600, true, 1e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HistoricalWithStatus(tt.prices, tt.window)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > tt.epsilon {
				t.Errorf("Historical = %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

func TestHistorical_ConstantSeriesIsZero(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 100
	}
	if got := Historical(prices, 30); got < 0 || got > 1e-9 {
		t.Errorf("constant series vol = %v, want ~0", got)
	}
}

func TestHistorical_UsesOnlyRecentWindow(t *testing.T) {
	// Wild early history followed by a flat tail: only the tail counts.
	prices := []float64{100, 150, 80, 160, 70}
	for i := 0; i < 10; i++ {
		prices = append(prices, 100)
	}
	if got := Historical(prices, 5); got > 1e-9 {
		t.Errorf("expected old volatility to be ignored, got %v", got)
	}
}

func TestImplied_RoundTrip(t *testing.T) {
	solver := NewImpliedSolver()
	tests := []struct {
		name   string
		strike float64
		sigma  float64
		kind   models.OptionKind
	}{
		{"atm put", 100, 0.42, models.OptionPut},
		{"otm put high vol", 95, 0.80, models.OptionPut},
		{"atm call", 100, 0.25, models.OptionCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := models.PricingInput{Spot: 100, Strike: tt.strike, T: models.DTEToYears(45), Rate: 0.05}
			market := pricing.Price(in.WithSigma(tt.sigma), tt.kind)

			res, err := solver.Solve(in, market, tt.kind)
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if !res.Converged {
				t.Fatalf("expected convergence, got %+v", res)
			}
			if math.Abs(res.Sigma-tt.sigma) > 1e-3 {
				t.Errorf("sigma = %.5f, want %.5f", res.Sigma, tt.sigma)
			}
			if got := pricing.Price(in.WithSigma(res.Sigma), tt.kind); math.Abs(got-market) > 0.01 {
				t.Errorf("repriced %.4f, market %.4f", got, market)
			}
		})
	}
}

func TestImplied_StaysInBounds(t *testing.T) {
	solver := NewImpliedSolver()
	in := models.PricingInput{Spot: 100, Strike: 100, T: models.DTEToYears(45), Rate: 0.05}

	res, err := solver.Solve(in, 5.0, models.OptionPut)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Sigma <= 0.01 || res.Sigma >= 5.0 {
		t.Errorf("sigma %v outside (0.01, 5.0)", res.Sigma)
	}
	if got := pricing.PutPrice(in.WithSigma(res.Sigma)); math.Abs(got-5.0) > 0.05 {
		t.Errorf("repriced %.4f, want 5.0", got)
	}
}

func TestImplied_ArbitragePriceDoesNotConverge(t *testing.T) {
	solver := NewImpliedSolver()
	// Deep ITM put quoted far below intrinsic: no sigma can match it.
	in := models.PricingInput{Spot: 100, Strike: 150, T: models.DTEToYears(45), Rate: 0.05}

	res, err := solver.Solve(in, 10.0, models.OptionPut)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Converged {
		t.Errorf("expected Converged=false, got %+v", res)
	}
	if res.Sigma < 0.01 || res.Sigma > 5.0 {
		t.Errorf("sigma %v escaped the clamp", res.Sigma)
	}
}

func TestImplied_InvalidInput(t *testing.T) {
	solver := NewImpliedSolver()
	in := models.PricingInput{Spot: 100, Strike: 100, T: models.DTEToYears(45), Rate: 0.05}

	if _, err := solver.Solve(in, 0, models.OptionPut); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("zero market price: got %v", err)
	}
	in.T = 0
	if _, err := solver.Solve(in, 1, models.OptionPut); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("zero T: got %v", err)
	}
}

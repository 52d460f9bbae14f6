package pricing

import (
	"math"
	"testing"

	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

func TestFindStrike_Put(t *testing.T) {
	solver := NewStrikeSolver()
	in := input(100, 0, 45, 0.05, 0.30)

	res, err := solver.FindStrike(in, -0.30, models.OptionPut)
	if err != nil {
		t.Fatalf("FindStrike: %v", err)
	}
	if !res.Converged {
		t.Errorf("expected convergence, got %+v", res)
	}
	if res.Strike >= 100 || res.Strike <= 50 {
		t.Errorf("OTM put strike %.2f should be below spot", res.Strike)
	}
	if math.Abs(res.Delta-(-0.30)) > 0.01 {
		t.Errorf("delta at strike %.2f is %.4f, want -0.30 +/- 0.01", res.Strike, res.Delta)
	}
	if res.Strike != math.Round(res.Strike*100)/100 {
		t.Errorf("strike %v not rounded to cents", res.Strike)
	}
}

func TestFindStrike_Call(t *testing.T) {
	solver := NewStrikeSolver()
	in := input(100, 0, 45, 0.05, 0.30)

	res, err := solver.FindStrike(in, 0.30, models.OptionCall)
	if err != nil {
		t.Fatalf("FindStrike: %v", err)
	}
	if res.Strike <= 100 {
		t.Errorf("OTM call strike %.2f should be above spot", res.Strike)
	}
	if math.Abs(res.Delta-0.30) > 0.01 {
		t.Errorf("call delta %.4f, want 0.30 +/- 0.01", res.Delta)
	}
}

func TestFindStrike_UnreachableTargetReportsNonConvergence(t *testing.T) {
	solver := NewStrikeSolver()
	// A 1e-9 tolerance cannot be met in five halvings.
	strict := NewStrikeSolverWithParams(5, 1e-9)
	in := input(100, 0, 7, 0.05, 0.05)

	res, err := strict.FindStrike(in, -0.30, models.OptionPut)
	if err != nil {
		t.Fatalf("FindStrike: %v", err)
	}
	if res.Converged {
		t.Errorf("expected non-convergence flag, got %+v", res)
	}
	if res.Iterations != 5 {
		t.Errorf("iterations = %d, want 5", res.Iterations)
	}

	if _, err := solver.FindStrike(in, -1.5, models.OptionPut); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for out-of-range target, got %v", err)
	}
	if _, err := solver.FindStrike(in, 0.3, models.OptionPut); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for positive put target, got %v", err)
	}
}

func TestFindStrikeInRange_StaysInside(t *testing.T) {
	solver := NewStrikeSolver()
	in := input(100, 0, 45, 0.05, 0.30)

	// Target sits at ~95.75, above the allowed ceiling.
	res, err := solver.FindStrikeInRange(in, -0.30, models.OptionPut, 50, 90)
	if err != nil {
		t.Fatalf("FindStrikeInRange: %v", err)
	}
	if res.Strike > 90 {
		t.Errorf("strike %.2f escaped the range ceiling", res.Strike)
	}
	if res.Converged {
		t.Errorf("target outside range should not converge")
	}

	if _, err := solver.FindStrikeInRange(in, -0.30, models.OptionPut, 90, 90); err == nil {
		t.Error("expected error for empty range")
	}
}

// On cheap, short-dated underlyings one cent moves delta by more than the
// tolerance, so the solver must report the miss instead of converging.
func TestFindStrike_CentRoundingMissesTarget(t *testing.T) {
	solver := NewStrikeSolver()

	tests := []struct {
		name  string
		spot  float64
		dte   int
		sigma float64
	}{
		{"spot 5 two days", 5, 2, 0.15},
		{"spot 2 three days", 2, 3, 0.20},
		{"spot 0.5 two weeks", 0.5, 14, 0.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(tt.spot, 0, tt.dte, 0.05, tt.sigma)
			res, err := solver.FindStrike(in, -0.30, models.OptionPut)
			if err != nil {
				t.Fatalf("FindStrike: %v", err)
			}
			if res.Converged {
				t.Errorf("strike %.2f has delta %.4f but reports convergence", res.Strike, res.Delta)
			}
			for _, k := range []float64{res.Strike - StrikeTick, res.Strike + StrikeTick} {
				if d := DeltaPut(in.WithStrike(k)); math.Abs(d+0.30) < math.Abs(res.Delta+0.30) {
					t.Errorf("neighbour %.2f (delta %.4f) is closer than %.2f (delta %.4f)", k, d, res.Strike, res.Delta)
				}
			}
		})
	}
}

func TestFindStrike_PicksCloserCentStrike(t *testing.T) {
	solver := NewStrikeSolver()
	in := input(5, 0, 2, 0.05, 0.15)

	res, err := solver.FindStrike(in, -0.30, models.OptionPut)
	if err != nil {
		t.Fatalf("FindStrike: %v", err)
	}
	// 4.97 has delta ~-0.284, 4.98 ~-0.348.
	if res.Strike != 4.97 {
		t.Errorf("strike = %.2f, want 4.97", res.Strike)
	}
}

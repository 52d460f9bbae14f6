package pricing

import (
	"math"

	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Default bisection parameters.
const (
	DefaultStrikeIterations = 50
	DefaultDeltaTolerance   = 0.001
	StrikeTick              = 0.01 // smallest strike increment

	// StrikeDeltaTolerance bounds the delta error of the returned cent strike.
	StrikeDeltaTolerance = 0.01
)

// StrikeSolver finds the strike whose delta matches a target by bisection.
type StrikeSolver struct {
	maxIterations int
	tolerance     float64
}

// NewStrikeSolver creates a solver with the default budget and tolerance.
func NewStrikeSolver() *StrikeSolver {
	return NewStrikeSolverWithParams(DefaultStrikeIterations, DefaultDeltaTolerance)
}

// NewStrikeSolverWithParams creates a solver with a custom budget and tolerance.
func NewStrikeSolverWithParams(maxIterations int, tolerance float64) *StrikeSolver {
	if maxIterations <= 0 {
		maxIterations = DefaultStrikeIterations
	}
	if tolerance <= 0 {
		tolerance = DefaultDeltaTolerance
	}
	return &StrikeSolver{maxIterations: maxIterations, tolerance: tolerance}
}

// FindStrike searches [0.5S, 1.5S] for the strike producing targetDelta.
// in.Strike is ignored.
func (s *StrikeSolver) FindStrike(in models.PricingInput, targetDelta float64, kind models.OptionKind) (models.StrikeResult, error) {
	return s.FindStrikeInRange(in, targetDelta, kind, 0.5*in.Spot, 1.5*in.Spot)
}

// FindStrikeInRange searches [lo, hi] for the strike producing targetDelta.
// The returned strike is the cent strike next to the bisection result whose
// delta is closest to target, and never leaves [lo, hi] rounded inward, so a
// caller can bound the search by an already known strike. Converged is only
// set when that cent strike is within StrikeDeltaTolerance of target.
func (s *StrikeSolver) FindStrikeInRange(in models.PricingInput, targetDelta float64, kind models.OptionKind, lo, hi float64) (models.StrikeResult, error) {
	if err := Validate(in.WithStrike(in.Spot)); err != nil {
		return models.StrikeResult{}, err
	}
	if err := validateTarget(targetDelta, kind); err != nil {
		return models.StrikeResult{}, err
	}
	if !(lo > 0) || !(hi > lo) {
		return models.StrikeResult{}, apperrors.NewValidationError("strike_range", [2]float64{lo, hi}, "must satisfy 0 < lo < hi")
	}

	result := models.StrikeResult{Target: targetDelta, Kind: kind}
	low, high := lo, hi
	var mid, current float64
	bisected := false

	for i := 1; i <= s.maxIterations; i++ {
		mid = (low + high) / 2
		current = Delta(in.WithStrike(mid), kind)
		result.Iterations = i

		// Put delta falls toward -1 as the strike rises; call delta falls
		// toward 0. For both, a delta below target means the strike is too
		// high.
		if current < targetDelta {
			high = mid
		} else {
			low = mid
		}

		if math.Abs(current-targetDelta) < s.tolerance {
			bisected = true
			break
		}
	}

	result.Strike, result.Delta = nearestTick(in, mid, targetDelta, kind, lo, hi)
	result.Converged = bisected && math.Abs(result.Delta-targetDelta) < StrikeDeltaTolerance
	return result, nil
}

// nearestTick compares the cent strikes on either side of k and returns the
// one whose delta is closer to target.
func nearestTick(in models.PricingInput, k, target float64, kind models.OptionKind, lo, hi float64) (float64, float64) {
	best := roundInward(k, lo, hi)
	bestDelta := Delta(in.WithStrike(best), kind)
	for _, c := range []float64{math.Floor(k*100) / 100, math.Ceil(k*100) / 100} {
		if c == best || roundInward(c, lo, hi) != c {
			continue
		}
		d := Delta(in.WithStrike(c), kind)
		if math.Abs(d-target) < math.Abs(bestDelta-target) {
			best, bestDelta = c, d
		}
	}
	return best, bestDelta
}

func validateTarget(target float64, kind models.OptionKind) error {
	switch kind {
	case models.OptionPut:
		if target <= -1 || target >= 0 {
			return apperrors.NewValidationError("target_delta", target, "put delta target must be in (-1, 0)")
		}
	case models.OptionCall:
		if target <= 0 || target >= 1 {
			return apperrors.NewValidationError("target_delta", target, "call delta target must be in (0, 1)")
		}
	default:
		return apperrors.NewValidationError("kind", kind, "must be PUT or CALL")
	}
	return nil
}

// roundInward rounds v to cents while keeping it inside [lo, hi].
func roundInward(v, lo, hi float64) float64 {
	r := math.Round(v*100) / 100
	if r > hi {
		r = math.Floor(hi*100) / 100
	}
	if r < lo {
		r = math.Ceil(lo*100) / 100
	}
	return r
}

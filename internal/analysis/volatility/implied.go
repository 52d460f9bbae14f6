package volatility

import (
	"math"

	"momentum-options/internal/analysis/pricing"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Newton-Raphson defaults.
const (
	DefaultInitialSigma      = 0.30
	DefaultImpliedIterations = 100
	priceTolerance           = 0.0001
	minVega                  = 0.0001
	minSigma                 = 0.01
	maxSigma                 = 5.0
)

// ImpliedSolver backs out volatility from an option price.
type ImpliedSolver struct {
	initialSigma  float64
	maxIterations int
}

// NewImpliedSolver creates a solver starting at 30% with 100 iterations.
func NewImpliedSolver() *ImpliedSolver {
	return NewImpliedSolverWithParams(DefaultInitialSigma, DefaultImpliedIterations)
}

// NewImpliedSolverWithParams creates a solver with a custom seed and budget.
func NewImpliedSolverWithParams(initialSigma float64, maxIterations int) *ImpliedSolver {
	if initialSigma <= 0 {
		initialSigma = DefaultInitialSigma
	}
	if maxIterations <= 0 {
		maxIterations = DefaultImpliedIterations
	}
	return &ImpliedSolver{initialSigma: initialSigma, maxIterations: maxIterations}
}

// Solve runs Newton-Raphson on sigma until the model price is within 1e-4 of
// marketPrice. in.Sigma is ignored. Sigma is clamped to [0.01, 5.0] after
// each step; a result that stops on a flat vega or the iteration budget has
// Converged == false.
func (s *ImpliedSolver) Solve(in models.PricingInput, marketPrice float64, kind models.OptionKind) (models.ImpliedVolResult, error) {
	if err := pricing.Validate(in.WithSigma(s.initialSigma)); err != nil {
		return models.ImpliedVolResult{}, err
	}
	if in.T <= 0 {
		return models.ImpliedVolResult{}, apperrors.NewValidationError("t", in.T, "implied volatility needs time to expiry")
	}
	if math.IsNaN(marketPrice) || marketPrice <= 0 {
		return models.ImpliedVolResult{}, apperrors.NewValidationError("market_price", marketPrice, "must be positive")
	}

	sigma := s.initialSigma
	result := models.ImpliedVolResult{}

	for i := 1; i <= s.maxIterations; i++ {
		trial := in.WithSigma(sigma)
		diff := marketPrice - pricing.Price(trial, kind)
		result.Iterations = i
		result.Residual = diff

		if math.Abs(diff) < priceTolerance {
			result.Converged = true
			break
		}

		// Vega per unit of sigma; the public Vega is per vol point.
		vega := pricing.RawVega(trial)
		if vega < minVega {
			break
		}

		sigma = math.Max(minSigma, math.Min(sigma+diff/vega, maxSigma))
	}

	result.Sigma = sigma
	return result, nil
}

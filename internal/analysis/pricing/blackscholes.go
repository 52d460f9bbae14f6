// Package pricing provides Black-Scholes pricing, Greeks and delta-targeted
// strike discovery for European options.
package pricing

import (
	"math"

	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Validate rejects inputs the closed-form model cannot price.
// T == 0 and Sigma == 0 are accepted and handled by the degenerate branches.
func Validate(in models.PricingInput) error {
	switch {
	case !isFinite(in.Spot) || in.Spot <= 0:
		return apperrors.NewValidationError("spot", in.Spot, "must be positive")
	case !isFinite(in.Strike) || in.Strike <= 0:
		return apperrors.NewValidationError("strike", in.Strike, "must be positive")
	case !isFinite(in.T) || in.T < 0:
		return apperrors.NewValidationError("t", in.T, "must be non-negative")
	case !isFinite(in.Sigma) || in.Sigma < 0:
		return apperrors.NewValidationError("sigma", in.Sigma, "must be non-negative")
	case !isFinite(in.Rate):
		return apperrors.NewValidationError("rate", in.Rate, "must be finite")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normCDF is the standard normal cumulative distribution.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// D1 returns d1, or 0 when T <= 0 or Sigma <= 0.
// The zero is a convention, not a price: callers special-case expiry first.
func D1(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	return (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*in.Sigma*in.Sigma)*in.T) / (in.Sigma * math.Sqrt(in.T))
}

// D2 returns d1 - sigma*sqrt(T), with the same degenerate convention as D1.
func D2(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	return D1(in) - in.Sigma*math.Sqrt(in.T)
}

// PutPrice prices a European put, floored at zero.
// At expiry it returns the intrinsic value max(K-S, 0).
func PutPrice(in models.PricingInput) float64 {
	if in.T <= 0 {
		return math.Max(in.Strike-in.Spot, 0)
	}
	if in.Sigma <= 0 {
		return math.Max(forwardStrike(in)-in.Spot, 0)
	}
	d1, d2 := D1(in), D2(in)
	put := in.Strike*math.Exp(-in.Rate*in.T)*normCDF(-d2) - in.Spot*normCDF(-d1)
	return math.Max(put, 0)
}

// CallPrice prices a European call, floored at zero.
func CallPrice(in models.PricingInput) float64 {
	if in.T <= 0 {
		return math.Max(in.Spot-in.Strike, 0)
	}
	if in.Sigma <= 0 {
		return math.Max(in.Spot-forwardStrike(in), 0)
	}
	d1, d2 := D1(in), D2(in)
	call := in.Spot*normCDF(d1) - in.Strike*math.Exp(-in.Rate*in.T)*normCDF(d2)
	return math.Max(call, 0)
}

// Price dispatches on the option kind.
func Price(in models.PricingInput, kind models.OptionKind) float64 {
	if kind == models.OptionCall {
		return CallPrice(in)
	}
	return PutPrice(in)
}

// DeltaPut returns the put delta in [-1, 0].
func DeltaPut(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		if in.Spot < forwardStrike(in) {
			return -1
		}
		return 0
	}
	return normCDF(D1(in)) - 1
}

// DeltaCall returns the call delta in [0, 1].
func DeltaCall(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		if in.Spot > forwardStrike(in) {
			return 1
		}
		return 0
	}
	return normCDF(D1(in))
}

// forwardStrike is the strike discounted to today; equal to K at expiry.
func forwardStrike(in models.PricingInput) float64 {
	if in.T <= 0 {
		return in.Strike
	}
	return in.Strike * math.Exp(-in.Rate*in.T)
}

// Delta dispatches on the option kind.
func Delta(in models.PricingInput, kind models.OptionKind) float64 {
	if kind == models.OptionCall {
		return DeltaCall(in)
	}
	return DeltaPut(in)
}

// Gamma is identical for puts and calls.
func Gamma(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	return normPDF(D1(in)) / (in.Spot * in.Sigma * math.Sqrt(in.T))
}

// ThetaPut returns the put time decay per calendar day.
func ThetaPut(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	d1, d2 := D1(in), D2(in)
	theta := -(in.Spot*normPDF(d1)*in.Sigma)/(2*math.Sqrt(in.T)) +
		in.Rate*in.Strike*math.Exp(-in.Rate*in.T)*normCDF(-d2)
	return theta / models.DaysPerYear
}

// Vega returns the value change for a one point move in volatility.
func Vega(in models.PricingInput) float64 {
	return RawVega(in) / 100
}

// RawVega is dPrice/dSigma per unit of volatility, used by the implied
// volatility solver which steps sigma in units rather than points.
func RawVega(in models.PricingInput) float64 {
	if in.T <= 0 || in.Sigma <= 0 {
		return 0
	}
	return in.Spot * math.Sqrt(in.T) * normPDF(D1(in))
}

// GreeksPut returns all put Greeks for the input.
func GreeksPut(in models.PricingInput) models.Greeks {
	return models.Greeks{
		Delta: DeltaPut(in),
		Gamma: Gamma(in),
		Theta: ThetaPut(in),
		Vega:  Vega(in),
	}
}

// Package spread builds delta-targeted put structures: the vertical debit
// spread and the single long put.
package spread

import (
	"math"

	"momentum-options/internal/analysis/pricing"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Default leg deltas.
const (
	DefaultDeltaLong  = -0.30
	DefaultDeltaShort = -0.10
	DefaultNakedDelta = -0.30
)

// Builder assembles option structures from a strike solver.
type Builder struct {
	solver *pricing.StrikeSolver
}

// NewBuilder creates a builder. A nil solver uses the default bisection.
func NewBuilder(solver *pricing.StrikeSolver) *Builder {
	if solver == nil {
		solver = pricing.NewStrikeSolver()
	}
	return &Builder{solver: solver}
}

// PutSpread builds a long put at deltaLong financed by a short put at
// deltaShort. in.Strike is ignored.
//
// The short strike is searched strictly below the long strike, so
// StrikeLong > StrikeShort always holds. When the short target cannot be
// reached inside that range the result has Converged == false.
func (b *Builder) PutSpread(in models.PricingInput, deltaLong, deltaShort float64) (models.Spread, error) {
	if deltaLong >= deltaShort {
		return models.Spread{}, apperrors.NewValidationError("delta_long", deltaLong, "must be below delta_short")
	}

	long, err := b.solver.FindStrike(in, deltaLong, models.OptionPut)
	if err != nil {
		return models.Spread{}, apperrors.Wrap(err, "long leg")
	}

	lo, hi := 0.5*in.Spot, long.Strike-pricing.StrikeTick
	if hi <= lo {
		lo = hi * 0.5
	}
	short, err := b.solver.FindStrikeInRange(in, deltaShort, models.OptionPut, lo, hi)
	if err != nil {
		return models.Spread{}, apperrors.Wrap(err, "short leg")
	}

	longIn := in.WithStrike(long.Strike)
	shortIn := in.WithStrike(short.Strike)
	priceLong := pricing.PutPrice(longIn)
	priceShort := pricing.PutPrice(shortIn)

	netDebit := priceLong - priceShort
	maxProfit := (long.Strike - short.Strike) - netDebit
	maxLoss := netDebit

	var riskReward float64
	if maxLoss > 0 {
		riskReward = maxProfit / maxLoss
	}

	return models.Spread{
		Type:             models.StructurePutSpread,
		Spot:             in.Spot,
		StrikeLong:       long.Strike,
		StrikeShort:      short.Strike,
		PriceLong:        priceLong,
		PriceShort:       priceShort,
		NetDebit:         netDebit,
		MaxProfit:        maxProfit,
		MaxLoss:          maxLoss,
		Breakeven:        long.Strike - netDebit,
		RiskReward:       riskReward,
		DeltaLongActual:  long.Delta,
		DeltaShortActual: short.Delta,
		Greeks:           pricing.GreeksPut(longIn).Sub(pricing.GreeksPut(shortIn)),
		DTE:              dteOf(in),
		IVUsed:           in.Sigma * 100,
		Converged:        long.Converged && short.Converged,
	}, nil
}

// NakedPut builds a single long put at delta. in.Strike is ignored.
func (b *Builder) NakedPut(in models.PricingInput, delta float64) (models.NakedPut, error) {
	res, err := b.solver.FindStrike(in, delta, models.OptionPut)
	if err != nil {
		return models.NakedPut{}, err
	}

	legIn := in.WithStrike(res.Strike)
	price := pricing.PutPrice(legIn)
	breakeven := res.Strike - price

	return models.NakedPut{
		Type:      models.StructurePut,
		Spot:      in.Spot,
		Strike:    res.Strike,
		Price:     price,
		Breakeven: breakeven,
		MaxProfit: breakeven,
		MaxLoss:   price,
		Greeks:    pricing.GreeksPut(legIn),
		DTE:       dteOf(in),
		IVUsed:    in.Sigma * 100,
		Converged: res.Converged,
	}, nil
}

func dteOf(in models.PricingInput) int {
	return int(math.Round(in.T * models.DaysPerYear))
}

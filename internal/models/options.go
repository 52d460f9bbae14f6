package models

// DaysPerYear converts calendar days to year fractions.
const DaysPerYear = 365.0

// DTEToYears converts days to expiry into a year fraction.
func DTEToYears(dte int) float64 {
	return float64(dte) / DaysPerYear
}

// PricingInput holds the Black-Scholes inputs for a single contract.
type PricingInput struct {
	Spot   float64 `json:"spot" yaml:"spot"`
	Strike float64 `json:"strike" yaml:"strike"`
	T      float64 `json:"t" yaml:"t"` // years
	Rate   float64 `json:"rate" yaml:"rate"`
	Sigma  float64 `json:"sigma" yaml:"sigma"`
}

// WithStrike returns a copy of the input struck at k.
func (p PricingInput) WithStrike(k float64) PricingInput {
	p.Strike = k
	return p
}

// WithSigma returns a copy of the input with volatility sigma.
func (p PricingInput) WithSigma(sigma float64) PricingInput {
	p.Sigma = sigma
	return p
}

// Greeks represents option sensitivities.
// Theta is per calendar day and Vega per one volatility point.
type Greeks struct {
	Delta float64 `json:"delta" yaml:"delta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Theta float64 `json:"theta" yaml:"theta"`
	Vega  float64 `json:"vega" yaml:"vega"`
}

// Sub returns the leg-wise difference g - o.
func (g Greeks) Sub(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta - o.Delta,
		Gamma: g.Gamma - o.Gamma,
		Theta: g.Theta - o.Theta,
		Vega:  g.Vega - o.Vega,
	}
}

// Rounded rounds delta to 3 places and the rest to 4.
func (g Greeks) Rounded() Greeks {
	return Greeks{
		Delta: RoundTo(g.Delta, 3),
		Gamma: RoundTo(g.Gamma, 4),
		Theta: RoundTo(g.Theta, 4),
		Vega:  RoundTo(g.Vega, 4),
	}
}

// StructureType identifies a recommended option structure.
type StructureType string

const (
	StructurePut       StructureType = "PUT"
	StructurePutSpread StructureType = "PUT_SPREAD"
)

// Spread represents a vertical put debit spread.
// StrikeLong is always above StrikeShort.
type Spread struct {
	Type             StructureType `json:"type" yaml:"type"`
	Spot             float64       `json:"spot_price" yaml:"spot_price"`
	StrikeLong       float64       `json:"strike_long" yaml:"strike_long"`
	StrikeShort      float64       `json:"strike_short" yaml:"strike_short"`
	PriceLong        float64       `json:"price_long" yaml:"price_long"`
	PriceShort       float64       `json:"price_short" yaml:"price_short"`
	NetDebit         float64       `json:"net_debit" yaml:"net_debit"`
	MaxProfit        float64       `json:"max_profit" yaml:"max_profit"`
	MaxLoss          float64       `json:"max_loss" yaml:"max_loss"`
	Breakeven        float64       `json:"breakeven" yaml:"breakeven"`
	RiskReward       float64       `json:"risk_reward_ratio" yaml:"risk_reward_ratio"`
	DeltaLongActual  float64       `json:"delta_long_actual" yaml:"delta_long_actual"`
	DeltaShortActual float64       `json:"delta_short_actual" yaml:"delta_short_actual"`
	Greeks           Greeks        `json:"greeks" yaml:"greeks"`
	DTE              int           `json:"dte" yaml:"dte"`
	IVUsed           float64       `json:"iv_used" yaml:"iv_used"` // percent
	Converged        bool          `json:"converged" yaml:"converged"`
}

// Rounded returns the spread with output-boundary rounding applied.
func (s Spread) Rounded() Spread {
	s.Spot = Round2(s.Spot)
	s.StrikeLong = Round2(s.StrikeLong)
	s.StrikeShort = Round2(s.StrikeShort)
	s.PriceLong = Round2(s.PriceLong)
	s.PriceShort = Round2(s.PriceShort)
	s.NetDebit = Round2(s.NetDebit)
	s.MaxProfit = Round2(s.MaxProfit)
	s.MaxLoss = Round2(s.MaxLoss)
	s.Breakeven = Round2(s.Breakeven)
	s.RiskReward = Round2(s.RiskReward)
	s.DeltaLongActual = RoundTo(s.DeltaLongActual, 3)
	s.DeltaShortActual = RoundTo(s.DeltaShortActual, 3)
	s.Greeks = s.Greeks.Rounded()
	s.IVUsed = RoundTo(s.IVUsed, 1)
	return s
}

// NakedPut represents a single long put.
type NakedPut struct {
	Type      StructureType `json:"type" yaml:"type"`
	Spot      float64       `json:"spot_price" yaml:"spot_price"`
	Strike    float64       `json:"strike" yaml:"strike"`
	Price     float64       `json:"price" yaml:"price"`
	Breakeven float64       `json:"breakeven" yaml:"breakeven"`
	MaxProfit float64       `json:"max_profit" yaml:"max_profit"`
	MaxLoss   float64       `json:"max_loss" yaml:"max_loss"`
	Greeks    Greeks        `json:"greeks" yaml:"greeks"`
	DTE       int           `json:"dte" yaml:"dte"`
	IVUsed    float64       `json:"iv_used" yaml:"iv_used"` // percent
	Converged bool          `json:"converged" yaml:"converged"`
}

// Rounded returns the put with output-boundary rounding applied.
func (p NakedPut) Rounded() NakedPut {
	p.Spot = Round2(p.Spot)
	p.Strike = Round2(p.Strike)
	p.Price = Round2(p.Price)
	p.Breakeven = Round2(p.Breakeven)
	p.MaxProfit = Round2(p.MaxProfit)
	p.MaxLoss = Round2(p.MaxLoss)
	p.Greeks = p.Greeks.Rounded()
	p.IVUsed = RoundTo(p.IVUsed, 1)
	return p
}

// StrikeResult is the outcome of a delta-targeted strike search.
type StrikeResult struct {
	Strike     float64    `json:"strike" yaml:"strike"`
	Delta      float64    `json:"delta" yaml:"delta"`
	Target     float64    `json:"target_delta" yaml:"target_delta"`
	Kind       OptionKind `json:"kind" yaml:"kind"`
	Iterations int        `json:"iterations" yaml:"iterations"`
	Converged  bool       `json:"converged" yaml:"converged"`
}

// ImpliedVolResult is the outcome of an implied-volatility solve.
type ImpliedVolResult struct {
	Sigma      float64 `json:"sigma" yaml:"sigma"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	Residual   float64 `json:"residual" yaml:"residual"`
	Converged  bool    `json:"converged" yaml:"converged"`
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"momentum-options/internal/kernel"
	"momentum-options/internal/models"
)

// contractFlags are the Black-Scholes inputs shared by the option commands.
type contractFlags struct {
	spot   float64
	strike float64
	dte    int
	rate   float64
	iv     float64
	kind   string
}

func (f *contractFlags) register(cmd *cobra.Command, withStrike, withIV bool) {
	cmd.Flags().Float64Var(&f.spot, "spot", 0, "underlying spot price")
	cmd.Flags().IntVar(&f.dte, "dte", 0, "days to expiry (default: config dte_target)")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "risk-free rate (default: config risk_free_rate)")
	_ = cmd.MarkFlagRequired("spot")
	if withStrike {
		cmd.Flags().Float64Var(&f.strike, "strike", 0, "strike price")
		_ = cmd.MarkFlagRequired("strike")
	}
	if withIV {
		cmd.Flags().Float64Var(&f.iv, "iv", 0, "annualized volatility as a fraction (0.30 = 30%)")
		_ = cmd.MarkFlagRequired("iv")
	}
}

// resolve fills unset values from configuration.
func (f *contractFlags) resolve(cmd *cobra.Command, app *App) {
	if f.dte == 0 {
		f.dte = app.Config.Pricing.DTETarget
	}
	if !cmd.Flags().Changed("rate") {
		f.rate = app.Config.Pricing.RiskFreeRate
	}
}

func addOptionCommands(rootCmd *cobra.Command, app *App) {
	optionCmd := &cobra.Command{
		Use:   "option",
		Short: "Price options and build put structures",
	}
	optionCmd.AddCommand(newOptionPriceCmd(app))
	optionCmd.AddCommand(newOptionGreeksCmd(app))
	optionCmd.AddCommand(newOptionStrikeCmd(app))
	optionCmd.AddCommand(newOptionSpreadCmd(app))
	optionCmd.AddCommand(newOptionNakedCmd(app))
	rootCmd.AddCommand(optionCmd)

	volCmd := &cobra.Command{
		Use:   "vol",
		Short: "Historical and implied volatility",
	}
	volCmd.AddCommand(newVolHistoricalCmd(app))
	volCmd.AddCommand(newVolImpliedCmd(app))
	rootCmd.AddCommand(volCmd)
}

func newOptionPriceCmd(app *App) *cobra.Command {
	var f contractFlags
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Black-Scholes option price",
		Example: `  momentum option price --spot 100 --strike 95 --dte 45 --iv 0.30
  momentum option price --spot 100 --strike 105 --iv 0.25 --kind call`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			kind, err := parseKind(f.kind)
			if err != nil {
				return err
			}
			price, err := app.Kernel.PriceOption(f.spot, f.strike, f.dte, f.rate, f.iv, kind)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(map[string]interface{}{
					"kind":   kind,
					"spot":   f.spot,
					"strike": f.strike,
					"dte":    f.dte,
					"rate":   f.rate,
					"iv":     f.iv,
					"price":  price,
				})
			}
			output.Bold("%s %s  %dd  IV %s", kind, FormatPrice(f.strike), f.dte, FormatIV(f.iv))
			output.Printf("  Price: %s\n", FormatPrice(price))
			return nil
		},
	}
	f.register(cmd, true, true)
	cmd.Flags().StringVar(&f.kind, "kind", "put", "option kind: put or call")
	return cmd
}

func newOptionGreeksCmd(app *App) *cobra.Command {
	var f contractFlags
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Put delta, gamma, theta (per day) and vega (per vol point)",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			greeks, err := app.Kernel.GreeksPut(f.spot, f.strike, f.dte, f.rate, f.iv)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(greeks)
			}
			output.Bold("PUT %s  %dd  IV %s", FormatPrice(f.strike), f.dte, FormatIV(f.iv))
			output.Printf("  Delta: %8.3f\n", greeks.Delta)
			output.Printf("  Gamma: %8.4f\n", greeks.Gamma)
			output.Printf("  Theta: %8.4f /day\n", greeks.Theta)
			output.Printf("  Vega:  %8.4f /vol pt\n", greeks.Vega)
			return nil
		},
	}
	f.register(cmd, true, true)
	return cmd
}

func newOptionStrikeCmd(app *App) *cobra.Command {
	var (
		f     contractFlags
		delta float64
	)
	cmd := &cobra.Command{
		Use:   "strike",
		Short: "Find the strike whose delta matches a target",
		Example: `  momentum option strike --spot 100 --iv 0.30 --delta -0.30
  momentum option strike --spot 100 --iv 0.30 --delta 0.25 --kind call`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			kind, err := parseKind(f.kind)
			if err != nil {
				return err
			}
			res, err := app.Kernel.FindStrikeByDelta(f.spot, f.dte, f.rate, f.iv, delta, kind)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(res)
			}
			output.Bold("%s strike for delta %.2f", kind, delta)
			output.Printf("  Strike: %s\n", FormatPrice(res.Strike))
			output.Printf("  Delta:  %.3f\n", res.Delta)
			if err := kernel.StrikeConvergence(res); err != nil {
				output.Warning("⚠ %v", err)
			}
			return nil
		},
	}
	f.register(cmd, false, true)
	cmd.Flags().Float64Var(&delta, "delta", 0, "target delta (negative for puts)")
	cmd.Flags().StringVar(&f.kind, "kind", "put", "option kind: put or call")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func newOptionSpreadCmd(app *App) *cobra.Command {
	var (
		f                     contractFlags
		deltaLong, deltaShort float64
	)
	cmd := &cobra.Command{
		Use:   "spread",
		Short: "Build a put debit spread at two target deltas",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			if !cmd.Flags().Changed("delta-long") {
				deltaLong = app.Config.Spread.DeltaLong
			}
			if !cmd.Flags().Changed("delta-short") {
				deltaShort = app.Config.Spread.DeltaShort
			}
			s, err := app.Kernel.BuildPutSpread(f.spot, f.dte, f.rate, f.iv, deltaLong, deltaShort)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(s)
			}
			printSpread(output, s)
			return nil
		},
	}
	f.register(cmd, false, true)
	cmd.Flags().Float64Var(&deltaLong, "delta-long", 0, "long leg delta (default: config spread.delta_long)")
	cmd.Flags().Float64Var(&deltaShort, "delta-short", 0, "short leg delta (default: config spread.delta_short)")
	return cmd
}

func newOptionNakedCmd(app *App) *cobra.Command {
	var (
		f     contractFlags
		delta float64
	)
	cmd := &cobra.Command{
		Use:   "naked",
		Short: "Price a single long put at a target delta",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			if !cmd.Flags().Changed("delta") {
				delta = app.Config.Spread.NakedDelta
			}
			p, err := app.Kernel.BuildNakedPut(f.spot, f.dte, f.rate, f.iv, delta)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(p)
			}
			printNakedPut(output, p)
			return nil
		},
	}
	f.register(cmd, false, true)
	cmd.Flags().Float64Var(&delta, "delta", 0, "target delta (default: config spread.naked_delta)")
	return cmd
}

func printSpread(output *Output, s models.Spread) {
	output.Bold("PUT SPREAD %s/%s  %dd  IV %.1f%%", FormatPrice(s.StrikeLong), FormatPrice(s.StrikeShort), s.DTE, s.IVUsed)
	output.Printf("  Long:        %s @ %s (Δ %.3f)\n", FormatPrice(s.StrikeLong), FormatPrice(s.PriceLong), s.DeltaLongActual)
	output.Printf("  Short:       %s @ %s (Δ %.3f)\n", FormatPrice(s.StrikeShort), FormatPrice(s.PriceShort), s.DeltaShortActual)
	output.Printf("  Net debit:   %s\n", FormatCurrency(s.NetDebit))
	output.Printf("  Max profit:  %s\n", FormatCurrency(s.MaxProfit))
	output.Printf("  Max loss:    %s\n", FormatCurrency(s.MaxLoss))
	output.Printf("  Breakeven:   %s\n", FormatPrice(s.Breakeven))
	output.Printf("  Reward/risk: %.2f\n", s.RiskReward)
	output.Printf("  Greeks:      %s\n", FormatGreeks(s.Greeks))
	if !s.Converged {
		output.Warning("⚠ strike search did not reach the target deltas")
	}
}

func printNakedPut(output *Output, p models.NakedPut) {
	output.Bold("PUT %s  %dd  IV %.1f%%", FormatPrice(p.Strike), p.DTE, p.IVUsed)
	output.Printf("  Price:       %s\n", FormatCurrency(p.Price))
	output.Printf("  Max profit:  %s\n", FormatCurrency(p.MaxProfit))
	output.Printf("  Max loss:    %s\n", FormatCurrency(p.MaxLoss))
	output.Printf("  Breakeven:   %s\n", FormatPrice(p.Breakeven))
	output.Printf("  Greeks:      %s\n", FormatGreeks(p.Greeks))
	if !p.Converged {
		output.Warning("⚠ strike search did not reach the target delta")
	}
}

func newVolHistoricalCmd(app *App) *cobra.Command {
	var (
		window int
		days   int
	)
	cmd := &cobra.Command{
		Use:         "historical <ticker>",
		Short:       "Annualized close-to-close volatility from stored prices",
		Args:        cobra.ExactArgs(1),
		Annotations: storeAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ticker := strings.ToUpper(args[0])
			if window <= 0 {
				window = app.Config.Volatility.Window
			}

			to := time.Now()
			points, err := s.GetPrices(commandContext(cmd), ticker, to.AddDate(0, 0, -days), to)
			if err != nil {
				return err
			}
			vol, estimated := app.Kernel.HistoricalVolatility(models.Closes(points), window)

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(map[string]interface{}{
					"ticker":     ticker,
					"window":     window,
					"closes":     len(points),
					"volatility": vol,
					"estimated":  estimated,
				})
			}
			output.Bold("%s historical volatility (%d returns)", ticker, window)
			output.Printf("  Volatility: %s\n", FormatIV(vol))
			if !estimated {
				output.Warning("⚠ only %d closes available, using default", len(points))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "number of daily returns (default: config volatility.window)")
	cmd.Flags().IntVar(&days, "days", 120, "calendar days of history to load")
	return cmd
}

func newVolImpliedCmd(app *App) *cobra.Command {
	var (
		f     contractFlags
		price float64
	)
	cmd := &cobra.Command{
		Use:   "implied",
		Short: "Implied volatility from an observed option price",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, app)
			kind, err := parseKind(f.kind)
			if err != nil {
				return err
			}
			res, err := app.Kernel.ImpliedVolatility(f.spot, f.strike, f.dte, f.rate, price, kind)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(res)
			}
			output.Bold("%s %s @ %s  %dd", kind, FormatPrice(f.strike), FormatPrice(price), f.dte)
			output.Printf("  Implied vol: %s\n", FormatIV(res.Sigma))
			output.Printf("  Iterations:  %d\n", res.Iterations)
			if err := kernel.ImpliedConvergence(res); err != nil {
				output.Warning("⚠ %v", err)
			}
			return nil
		},
	}
	f.register(cmd, true, false)
	cmd.Flags().Float64Var(&price, "price", 0, "observed option price")
	cmd.Flags().StringVar(&f.kind, "kind", "put", "option kind: put or call")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

// commandContext returns cmd's context or a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

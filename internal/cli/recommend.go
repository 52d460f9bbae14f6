package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"momentum-options/internal/kernel"
	"momentum-options/internal/models"
)

func addRecommendCommands(rootCmd *cobra.Command, app *App) {
	cmd := newRecommendCmd(app)
	cmd.AddCommand(newRecommendBatchCmd(app))
	rootCmd.AddCommand(cmd)
}

func newRecommendCmd(app *App) *cobra.Command {
	var (
		spot, iv, lookback, recent, ivRank float64
		dte                                int
	)
	cmd := &cobra.Command{
		Use:   "recommend <ticker>",
		Short: "Evaluate a short-momentum put entry for one ticker",
		Long: `Evaluate the short-momentum entry conditions for one ticker and price
both a naked put and a put debit spread.

Hard condition: 63-day lookback performance at or below the threshold.
Soft conditions: recent 5-day move small, IV rank low. A missing IV rank
counts as not met.`,
		Example: `  momentum recommend XYZ --spot 100 --iv 0.35 --lookback -22 --recent 1.5 --iv-rank 40`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := kernel.RecommendRequest{
				Ticker:       strings.ToUpper(args[0]),
				Spot:         spot,
				IV:           iv,
				PerfLookback: lookback,
				PerfRecent:   recent,
				DTE:          dte,
			}
			if cmd.Flags().Changed("iv-rank") {
				req.IVRank = &ivRank
			}

			rec, err := app.Kernel.Recommend(req)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(rec)
			}
			printRecommendation(output, rec)
			return nil
		},
	}
	cmd.Flags().Float64Var(&spot, "spot", 0, "underlying spot price")
	cmd.Flags().Float64Var(&iv, "iv", 0, "annualized volatility as a fraction")
	cmd.Flags().Float64Var(&lookback, "lookback", 0, "63-day lookback performance in percent")
	cmd.Flags().Float64Var(&recent, "recent", 0, "5-day recent performance in percent")
	cmd.Flags().Float64Var(&ivRank, "iv-rank", 0, "IV rank 0-100 (optional)")
	cmd.Flags().IntVar(&dte, "dte", 0, "days to expiry (default: config dte_target)")
	for _, name := range []string{"spot", "iv", "lookback", "recent"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newRecommendBatchCmd(app *App) *cobra.Command {
	var (
		date    string
		dte     int
		ivRanks []string
	)
	cmd := &cobra.Command{
		Use:   "batch [tickers...]",
		Short: "Recommend from stored closes for many tickers",
		Long: `Recommend for many tickers using stored daily closes. Spot is the last
close, volatility is the historical estimate and the momentum sub-scores
come from the 63-5 score. Without tickers the stored panel is used.`,
		Example:     `  momentum recommend batch AAPL MSFT NVDA --iv-rank AAPL=35 --iv-rank NVDA=72`,
		Annotations: storeAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireStore(); err != nil {
				return err
			}
			asOf, err := parseDate(date)
			if err != nil {
				return err
			}
			ranks, err := parseIVRanks(ivRanks)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			tickers, err := tickersOrPanel(ctx, app, args)
			if err != nil {
				return err
			}

			batch, err := app.Kernel.RecommendBatch(ctx, kernel.BatchRequest{
				Tickers: tickers,
				AsOf:    asOf,
				DTE:     dte,
				IVRanks: ranks,
			})
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(batch)
			}
			table := NewTable(output, "TICKER", "SIGNAL", "LOOKBACK", "RECENT", "IV", "STRUCTURE", "STRIKES", "COST")
			for _, rec := range batch.Recommendations {
				signal := string(rec.Signal)
				if rec.EntryConditionsMet {
					signal = output.Green(signal)
				}
				strikes, cost := fmt.Sprintf("%s/%s", FormatPrice(rec.PutSpread.StrikeLong), FormatPrice(rec.PutSpread.StrikeShort)), rec.PutSpread.NetDebit
				if rec.Structure == models.StructurePut {
					strikes, cost = FormatPrice(rec.Put.Strike), rec.Put.Price
				}
				table.AddRow(rec.Ticker, signal, FormatPercent(rec.PerfLookback), FormatPercent(rec.PerfRecent),
					fmt.Sprintf("%.1f%%", rec.IVPct), string(rec.Structure), strikes, FormatCurrency(cost))
			}
			table.Render()
			printTickerErrors(output, batch.Errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "evaluation date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&dte, "dte", 0, "days to expiry (default: config dte_target)")
	cmd.Flags().StringArrayVar(&ivRanks, "iv-rank", nil, "IV rank per ticker as TICKER=VALUE (repeatable)")
	return cmd
}

func parseIVRanks(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ranks := make(map[string]float64, len(values))
	for _, v := range values {
		ticker, raw, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --iv-rank %q (want TICKER=VALUE)", v)
		}
		rank, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --iv-rank %q: %w", v, err)
		}
		ranks[strings.ToUpper(strings.TrimSpace(ticker))] = rank
	}
	return ranks, nil
}

func printRecommendation(output *Output, rec models.Recommendation) {
	signal := string(rec.Signal)
	if rec.EntryConditionsMet {
		signal = output.Green(signal)
	} else {
		signal = output.Yellow(signal)
	}
	output.Bold("%s  %s", rec.Ticker, signal)
	output.Printf("  Spot %s  IV %.1f%%  DTE %d  expires %s\n", FormatPrice(rec.Spot), rec.IVPct, rec.DTE, rec.ExpirationDate)
	output.Println()

	c := rec.Conditions
	output.Bold("Conditions (soft score %.2f)", c.SoftScore)
	output.Printf("  Major downtrend:   %-3s  lookback %s\n", FormatBool(c.Hard.MajorDowntrend), FormatPercent(rec.PerfLookback))
	output.Printf("  No short squeeze:  %-3s  recent %s\n", FormatBool(c.Soft.NoShortSqueeze), FormatPercent(rec.PerfRecent))
	ivRank := "n/a"
	if rec.IVRank != nil {
		ivRank = fmt.Sprintf("%.1f", *rec.IVRank)
	}
	output.Printf("  IV rank OK:        %-3s  rank %s\n", FormatBool(c.Soft.IVRankOK), ivRank)
	if rec.RSI != nil {
		output.Printf("  RSI(14) in band:   %-3s  %.2f\n", FormatBool(rec.RSI.InBand), rec.RSI.Value)
	}
	output.Println()

	output.Info("Recommended structure: %s", rec.Structure)
	output.Println()
	printNakedPut(output, rec.Put)
	output.Println()
	printSpread(output, rec.PutSpread)
	output.Println()

	e, x := rec.EntryRules, rec.ExitRules
	output.Dim("Entry: RSI %.0f-%.0f, pullback <= %.0f%%, no gap above %.0f%%", e.RSIRange[0], e.RSIRange[1], e.PullbackMaxPct, e.NoGapAbovePct)
	output.Dim("Exit:  take profit %.0f%%, stop loss %.0f%%, time stop %d DTE", x.TakeProfitPct, x.StopLossPct, x.TimeStopDTE)
	for _, w := range rec.Warnings {
		output.Warning("⚠ %s", w)
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"momentum-options/internal/models"
	"momentum-options/internal/store"
)

func addRankCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRankCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newRankCmd(app *App) *cobra.Command {
	var (
		strategy string
		top      int
		date     string
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "rank [tickers...]",
		Short: "Rank a panel by momentum and allocate the top N",
		Long: `Rank a panel of tickers from stored closes.

  long   12-1 momentum on month-end closes, top N get Invest
  short  63-5 momentum on daily closes, lowest N get Short

Without tickers the stored panel is ranked.`,
		Example: `  momentum rank AAPL MSFT NVDA AMZN META --top 2
  momentum rank AAPL MSFT NVDA --strategy short --date 2024-06-28 --save`,
		Annotations: storeAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strategy") {
				strategy = app.Config.Momentum.Strategy
			}
			st, err := parseStrategy(strategy)
			if err != nil {
				return err
			}
			asOf, err := parseDate(date)
			if err != nil {
				return err
			}
			if _, err := app.requireStore(); err != nil {
				return err
			}

			ctx := commandContext(cmd)
			tickers, err := tickersOrPanel(ctx, app, args)
			if err != nil {
				return err
			}

			batch, err := app.Kernel.RankPanel(ctx, tickers, st, top, asOf, save)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(batch)
			}
			printBatch(output, batch.Strategy, batch.Records)
			printTickerErrors(output, batch.Errors)
			if !batch.Success() {
				return fmt.Errorf("no ticker could be ranked")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "long", "strategy: long or short (default: config momentum.strategy)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "number of tickers to select (default: config momentum.nb_top)")
	cmd.Flags().StringVar(&date, "date", "", "calculation date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&save, "save", false, "append the ranking to snapshot history")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "Browse saved ranking snapshots",
		Annotations: storeAnnotation,
	}

	var (
		strategy string
		limit    int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			filter := store.SnapshotFilter{Limit: limit}
			if strategy != "" {
				if filter.Strategy, err = parseStrategy(strategy); err != nil {
					return err
				}
			}
			snaps, err := s.ListSnapshots(commandContext(cmd), filter)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(snaps)
			}
			if len(snaps) == 0 {
				output.Dim("No snapshots saved. Use 'momentum rank --save'.")
				return nil
			}
			table := NewTable(output, "ID", "STRATEGY", "DATE", "SAVED", "TOP", "TICKERS")
			for _, snap := range snaps {
				table.AddRow(snap.ID, string(snap.Strategy), FormatDate(snap.CalculationDate),
					FormatDateTime(snap.CreatedAt), fmt.Sprint(snap.NbTop), fmt.Sprint(len(snap.Records)))
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "only this strategy")
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum snapshots to list (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			snap, err := s.GetSnapshot(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printSnapshot(NewOutput(cmd), snap)
		},
	}

	var latestStrategy string
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the newest snapshot of a strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strategy") {
				latestStrategy = app.Config.Momentum.Strategy
			}
			st, err := parseStrategy(latestStrategy)
			if err != nil {
				return err
			}
			snap, err := s.LatestSnapshot(commandContext(cmd), st)
			if err != nil {
				return err
			}
			return printSnapshot(NewOutput(cmd), snap)
		},
	}
	latestCmd.Flags().StringVarP(&latestStrategy, "strategy", "s", "long", "strategy: long or short (default: config momentum.strategy)")

	cmd.AddCommand(listCmd, showCmd, latestCmd)
	return cmd
}

func printSnapshot(output *Output, snap *models.Snapshot) error {
	if output.IsStructured() {
		return output.Data(snap)
	}
	output.Dim("Snapshot %s  saved %s", snap.ID, FormatDateTime(snap.CreatedAt))
	output.Println()
	output.Bold("%s momentum as of %s (top %d)", snap.Strategy, FormatDate(snap.CalculationDate), snap.NbTop)
	printBatch(output, snap.Strategy, snap.Records)
	return nil
}

func printBatch(output *Output, strategy models.Strategy, records []models.MomentumRecord) {
	headers := []string{"RANK", "TICKER", "MOMENTUM"}
	if strategy == models.StrategyShort {
		headers = append(headers, "LOOKBACK", "RECENT")
	}
	headers = append(headers, "SIGNAL", "ALLOC")

	table := NewTable(output, headers...)
	for _, r := range records {
		row := []string{fmt.Sprint(r.Rank), r.Ticker, output.Signed(r.Momentum, FormatPercent(r.Momentum))}
		if strategy == models.StrategyShort {
			row = append(row, FormatPercent(r.PerfLookback), FormatPercent(r.PerfRecent))
		}
		signal := string(r.Signal)
		if r.Selected() {
			signal = output.Green(signal)
		}
		row = append(row, signal, fmt.Sprintf("%.2f%%", r.Allocation))
		table.AddRow(row...)
	}
	table.Render()
}

func printTickerErrors(output *Output, errs []models.TickerError) {
	if len(errs) == 0 {
		return
	}
	output.Println()
	output.Warning("⚠ %d ticker(s) skipped:", len(errs))
	for _, e := range errs {
		output.Printf("  %s: %s\n", e.Ticker, e.Error)
	}
}

func upperAll(tickers []string) []string {
	out := make([]string, len(tickers))
	for i, t := range tickers {
		out[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return out
}

package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"momentum-options/internal/logging"
	"momentum-options/internal/store"
)

func addPriceCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:         "prices",
		Short:       "Manage stored adjusted closes",
		Annotations: storeAnnotation,
	}
	cmd.AddCommand(newPricesImportCmd(app))
	cmd.AddCommand(newPricesExportCmd(app))
	cmd.AddCommand(newPricesListCmd(app))
	rootCmd.AddCommand(cmd)
}

func newPricesImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "import <ticker> <file.csv>",
		Short:   "Import a date,adj_close CSV for one ticker",
		Example: "  momentum prices import AAPL aapl.csv",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ticker := strings.ToUpper(args[0])

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			points, err := store.ReadPriceCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[1], err)
			}
			ctx := commandContext(cmd)
			if err := s.SavePrices(ctx, ticker, points); err != nil {
				return err
			}
			latest, err := s.LatestPriceDate(ctx, ticker)
			if err != nil {
				return err
			}
			l := logging.WithSymbol(logging.FromContext(ctx), ticker)
			l.Info().Int("rows", len(points)).Msg("Prices imported")

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(map[string]interface{}{
					"ticker":   ticker,
					"imported": len(points),
					"latest":   FormatDate(latest),
				})
			}
			output.Success("✓ Imported %d closes for %s (latest %s)", len(points), ticker, FormatDate(latest))
			return nil
		},
	}
}

func newPricesExportCmd(app *App) *cobra.Command {
	var (
		from, to string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "export <ticker>",
		Short: "Export stored closes as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			start := time.Time{}
			if from != "" {
				if start, err = parseDate(from); err != nil {
					return err
				}
			}
			end, err := parseDate(to)
			if err != nil {
				return err
			}

			points, err := s.GetPrices(commandContext(cmd), strings.ToUpper(args[0]), start, end)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return store.WritePriceCSV(w, points)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newPricesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tickers with stored closes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			tickers, err := s.Tickers(ctx)
			if err != nil {
				return err
			}

			type row struct {
				Ticker string `json:"ticker" yaml:"ticker"`
				Latest string `json:"latest" yaml:"latest"`
			}
			rows := make([]row, 0, len(tickers))
			for _, t := range tickers {
				latest, err := s.LatestPriceDate(ctx, t)
				if err != nil {
					return err
				}
				rows = append(rows, row{Ticker: t, Latest: FormatDate(latest)})
			}

			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(rows)
			}
			if len(rows) == 0 {
				output.Dim("No prices stored. Use 'momentum prices import'.")
				return nil
			}
			table := NewTable(output, "TICKER", "LATEST")
			for _, r := range rows {
				table.AddRow(r.Ticker, r.Latest)
			}
			table.Render()
			return nil
		},
	}
}

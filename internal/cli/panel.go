package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"momentum-options/internal/store"
)

func addPanelCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Manage the default ticker panel",
		Long: `The panel is the ticker list 'rank' and 'recommend batch' use when
no tickers are given on the command line.`,
		Annotations: storeAnnotation,
	}
	cmd.AddCommand(newPanelAddCmd(app))
	cmd.AddCommand(newPanelRemoveCmd(app))
	cmd.AddCommand(newPanelListCmd(app))
	rootCmd.AddCommand(cmd)
}

func newPanelAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "add <tickers...>",
		Short:   "Add tickers to the panel",
		Example: "  momentum panel add AAPL MSFT NVDA",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			if err := s.AddToPanel(commandContext(cmd), args); err != nil {
				return err
			}
			return printPanel(cmd, s)
		},
	}
}

func newPanelRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <tickers...>",
		Aliases: []string{"rm"},
		Short:   "Remove tickers from the panel",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			removed, err := s.RemoveFromPanel(commandContext(cmd), args)
			if err != nil {
				return err
			}
			if output := NewOutput(cmd); removed < len(args) && !output.IsStructured() {
				output.Warning("⚠ %d of %d ticker(s) were not in the panel", len(args)-removed, len(args))
			}
			return printPanel(cmd, s)
		},
	}
}

func newPanelListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			return printPanel(cmd, s)
		},
	}
}

func printPanel(cmd *cobra.Command, s store.PanelStore) error {
	tickers, err := s.PanelTickers(commandContext(cmd))
	if err != nil {
		return err
	}
	if tickers == nil {
		tickers = []string{}
	}

	output := NewOutput(cmd)
	if output.IsStructured() {
		return output.Data(map[string]interface{}{"panel": tickers})
	}
	if len(tickers) == 0 {
		output.Dim("Panel is empty. Use 'momentum panel add'.")
		return nil
	}
	output.Bold("Panel (%d)", len(tickers))
	output.Println("  " + strings.Join(tickers, " "))
	return nil
}

// tickersOrPanel returns args upper-cased, or the stored panel when args is
// empty.
func tickersOrPanel(ctx context.Context, app *App, args []string) ([]string, error) {
	if len(args) > 0 {
		return upperAll(args), nil
	}
	s, err := app.requireStore()
	if err != nil {
		return nil, err
	}
	tickers, err := s.PanelTickers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers given and the panel is empty (see 'momentum panel add')")
	}
	return tickers, nil
}

package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"momentum-options/internal/config"
	"momentum-options/internal/kernel"
	"momentum-options/internal/logging"
	"momentum-options/internal/models"
	"momentum-options/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-07-01"
)

// App holds the application dependencies.
type App struct {
	ConfigDir string
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.Store
	Kernel    *kernel.Kernel
}

// requireStore fails commands that need persisted data when the database
// could not be opened.
func (a *App) requireStore() (store.Store, error) {
	if a.Store == nil {
		return nil, fmt.Errorf("price store unavailable at %s", a.Config.Store.Path)
	}
	return a.Store, nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "momentum",
		Short: "Momentum ranking and put-option structuring",
		Long: `momentum ranks equity panels by 12-1 and 63-5 momentum and turns
downtrends into priced put or put-spread recommendations.

Pricing uses Black-Scholes with delta-targeted strikes. Price history and
ranking snapshots live in a local SQLite database; load closes with
'momentum prices import'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.Store != nil {
				return app.Store.Close()
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&app.ConfigDir, "config", "", "config directory (default: ~/.config/momentum-options)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addOptionCommands(rootCmd, app)
	addPriceCommands(rootCmd, app)
	addRankCommands(rootCmd, app)
	addRecommendCommands(rootCmd, app)
	addPanelCommands(rootCmd, app)

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.ConfigDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	logCfg := logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogConfig().FilePath
	}
	a.Logger = logging.NewLoggerWithConfig(logCfg)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}

	if needsStore(cmd) {
		dataStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			a.Logger.Warn().Err(err).Str("path", cfg.Store.Path).Msg("Failed to initialize store, some features may be unavailable")
		} else {
			a.Store = dataStore
			a.Logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
		}
	}

	if a.Store != nil {
		a.Kernel = kernel.New(cfg, a.Store, a.Store, a.Logger)
	} else {
		a.Kernel = kernel.New(cfg, nil, nil, a.Logger)
	}
	cmd.SetContext(logging.WithLogger(commandContext(cmd), a.Logger))
	return nil
}

// needsStore reports whether cmd or one of its parents is annotated as
// reading the database.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["store"] == "true" {
			return true
		}
	}
	return false
}

var storeAnnotation = map[string]string{"store": "true"}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("momentum v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.Path(app.ConfigDir)
			if output.IsStructured() {
				return output.Data(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Data(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Pricing")
	output.Printf("  Risk-free rate:   %.4f\n", cfg.Pricing.RiskFreeRate)
	output.Printf("  Target DTE:       %d\n", cfg.Pricing.DTETarget)
	output.Printf("  Strike search:    %d iterations, tolerance %g\n", cfg.Strikes.MaxIterations, cfg.Strikes.Tolerance)
	output.Printf("  Implied vol:      seed %.2f, %d iterations\n", cfg.Implied.InitialSigma, cfg.Implied.MaxIterations)
	output.Printf("  Historical vol:   %d-day window, default %s\n", cfg.Volatility.Window, FormatIV(cfg.Volatility.Default))
	output.Println()

	output.Bold("Structures")
	output.Printf("  Spread deltas:    %.2f / %.2f\n", cfg.Spread.DeltaLong, cfg.Spread.DeltaShort)
	output.Printf("  Naked put delta:  %.2f\n", cfg.Spread.NakedDelta)
	output.Println()

	output.Bold("Momentum")
	output.Printf("  Strategy:         %s\n", cfg.Momentum.Strategy)
	output.Printf("  Top N:            %d\n", cfg.Momentum.NbTop)
	output.Printf("  Workers:          %d\n", cfg.Momentum.Workers)
	output.Println()

	output.Bold("Recommendation")
	output.Printf("  Lookback <=       %.1f%%\n", cfg.Recommendation.HardLookbackMax)
	output.Printf("  Recent <=         %.1f%%\n", cfg.Recommendation.RecentMax)
	output.Printf("  IV rank <=        %.1f\n", cfg.Recommendation.IVRankMax)
	output.Printf("  Min soft score:   %.2f\n", cfg.Recommendation.MinSoftScore)
	output.Printf("  RSI band:         %.0f-%.0f\n", cfg.Rules.Entry.RSIMin, cfg.Rules.Entry.RSIMax)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:         %s\n", cfg.Store.Path)
	output.Printf("  Log level:        %s\n", cfg.Logging.Level)
}

func parseStrategy(s string) (models.Strategy, error) {
	strategy := models.Strategy(s)
	if !strategy.Valid() {
		return "", fmt.Errorf("invalid strategy %q (must be 'long' or 'short')", s)
	}
	return strategy, nil
}

func parseKind(s string) (models.OptionKind, error) {
	kind, ok := models.ParseOptionKind(s)
	if !ok {
		return "", fmt.Errorf("invalid option kind %q (must be 'put' or 'call')", s)
	}
	return kind, nil
}

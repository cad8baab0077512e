package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/umair24171/scalp-agent/internal/config"
	"github.com/umair24171/scalp-agent/internal/logging"
	"github.com/umair24171/scalp-agent/internal/store"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	store  *store.SQLiteStore
}

// Store opens the SQLite store on first use.
func (a *App) Store() (store.DataStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite store initialized")
	a.store = s
	return s, nil
}

// Close releases resources opened by commands.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "scalp-agent",
		Short: "Sell-only intraday signal engine",
		Long: `scalp-agent watches 1-hour, 5-minute and 1-minute bars and emits short
signals when a bearish higher-timeframe trend meets a pullback-rejection
setup inside the trading session.

Bars are read from the local store (see 'scalp-agent import'); signals are
written to the execution bridge directory for the venue to pick up.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(cfg.Logging)

			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/scalp-agent)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newSignalCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("scalp-agent v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Strategy")
	output.Printf("  Min confidence:   %.0f\n", cfg.Strategy.MinConfidence)
	output.Printf("  Reward:risk:      %.2f\n", cfg.Strategy.RewardRisk)
	output.Printf("  Stop (x ATR):     %.2f\n", cfg.Strategy.StopATRMultiplier)
	output.Printf("  Max hold:         %s\n", cfg.Strategy.MaxHold)
	output.Printf("  Expired R:        %.2f\n", cfg.Strategy.ExpiredR)
	output.Println()

	output.Bold("Session (UTC)")
	output.Printf("  Window:           %02d:00-%02d:00\n", cfg.Session.StartHour, cfg.Session.EndHour)
	output.Printf("  Monday from:      %02d:00\n", cfg.Session.MondayStartHour)
	output.Printf("  Friday until:     %02d:00\n", cfg.Session.FridayEndHour)
	output.Printf("  Cooldown:         %s\n", cfg.Session.Cooldown)
	output.Println()

	output.Bold("Runner")
	output.Printf("  Symbols:          %v\n", cfg.Runner.Symbols)
	output.Printf("  Schedule:         %s\n", cfg.Runner.Schedule)
	output.Printf("  Fetch timeout:    %s\n", cfg.Runner.FetchTimeout)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:         %s\n", cfg.Store.Path)
	output.Printf("  Bridge:           %s (%d digits)\n", cfg.Bridge.Dir, cfg.Bridge.Digits)
}

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/umair24171/scalp-agent/internal/bridge"
	"github.com/umair24171/scalp-agent/internal/engine"
	"github.com/umair24171/scalp-agent/internal/feed"
	"github.com/umair24171/scalp-agent/internal/runner"
)

func newRunCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the signal loop until interrupted",
		Long: `Run evaluates every configured symbol on the runner schedule. Open trades
are resolved bar by bar, sells are persisted and written to the bridge outbox,
and venue reports are collected from the bridge inbox.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config

			st, err := app.Store()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg.Engine(), app.Logger)
			if err != nil {
				return err
			}
			fb, err := bridge.NewFileBridge(bridge.Config{
				Dir:     cfg.Bridge.Dir,
				Digits:  cfg.Bridge.Digits,
				MaxHold: cfg.Strategy.MaxHold,
			}, app.Logger)
			if err != nil {
				return err
			}

			b := bridge.NewGuarded(fb, bridge.DefaultBreakerConfig(), app.Logger)

			r := runner.New(runner.Config{
				Symbols:      cfg.Runner.Symbols,
				Schedule:     cfg.Runner.Schedule,
				FetchTimeout: cfg.Runner.FetchTimeout,
			}, eng, feed.NewStoreFeed(st), b, st, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := r.Restore(ctx); err != nil {
				return err
			}
			if once {
				return r.Tick(ctx, nowUTC())
			}
			return r.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single tick and exit")
	return cmd
}

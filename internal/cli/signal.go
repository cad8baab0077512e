package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/umair24171/scalp-agent/internal/engine"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/feed"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/store"
	"github.com/umair24171/scalp-agent/pkg/utils"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

func newSignalCmd(app *App) *cobra.Command {
	var atFlag string

	cmd := &cobra.Command{
		Use:   "signal <symbol>",
		Short: "Evaluate one symbol from stored bars without trading",
		Long: `Signal runs a single evaluation for symbol at --at (default now) using the
bars in the local store that had closed by then. Nothing is persisted or sent
to the bridge. Stored open trades are taken into account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := cmd.Context()

			at := nowUTC()
			if atFlag != "" {
				t, err := time.Parse(time.RFC3339, atFlag)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", atFlag, err)
				}
				at = t.UTC()
			}

			st, err := app.Store()
			if err != nil {
				return err
			}
			eng, err := engine.New(app.Config.Engine(), app.Logger)
			if err != nil {
				return err
			}

			f := feed.NewStoreFeed(st)
			for _, res := range models.AllResolutions() {
				candles, err := f.Candles(ctx, symbol, res, at, eng.Config().Capacities[res])
				if err != nil {
					if errors.Is(err, errors.ErrDataNotFound) {
						continue
					}
					return err
				}
				eng.Load(symbol, res, candles)
			}

			open, err := st.GetTrades(ctx, store.TradeFilter{Symbol: symbol, Status: store.TradeStatusOpen})
			if err != nil {
				return err
			}
			for _, t := range open {
				if err := eng.RestoreTrade(t); err != nil {
					app.Logger.Warn().Err(err).Str("trade_id", t.ID).Msg("Ignoring stored open trade")
				}
			}

			var price float64
			if minute := eng.Candles(symbol, models.Resolution1Min); len(minute) > 0 {
				price = minute[len(minute)-1].Close
			} else if !output.IsJSON() {
				output.Error("No closed 1-minute bars stored for %s", symbol)
			}

			d := eng.GenerateSignal(symbol, price, at)
			if output.IsJSON() {
				return output.JSON(d)
			}
			var held *models.Trade
			if t, ok := eng.OpenTrade(symbol); ok && d.Code == engine.HoldTradeOpen {
				held = &t
			}
			printDecision(output, symbol, at, d, held, app.Config.Bridge.Digits)
			return nil
		},
	}

	cmd.Flags().StringVar(&atFlag, "at", "", "evaluation time (RFC3339, default now)")
	return cmd
}

// printDecision renders d. open is the trade blocking a new signal, if any.
func printDecision(output *Output, symbol string, at time.Time, d engine.Decision, open *models.Trade, digits int32) {
	output.Dim("%s @ %s", symbol, at.Format(time.RFC3339))

	if !d.IsSell() {
		output.Warning("HOLD (%s)", d.Code)
		output.Printf("  %s\n", d.Reason)
		if open != nil {
			output.Printf("  Open trade:  %s short at %s, held %s\n",
				open.ID, utils.FormatPrice(open.EntryPrice, digits), utils.FormatHold(at.Sub(open.OpenedAt)))
		}
		printTrend(output, d.Trend)
		return
	}

	t := d.Trade
	output.Success("SELL %s", t.Symbol)
	output.Printf("  Entry:       %s\n", utils.FormatPrice(t.EntryPrice, digits))
	output.Printf("  Stop loss:   %s\n", output.Red(utils.FormatPrice(t.StopLoss, digits)))
	output.Printf("  Take profit: %s\n", output.Green(utils.FormatPrice(t.TakeProfit, digits)))
	output.Printf("  Risk:        %s (%.2fR target)\n", utils.FormatPrice(t.RiskDistance, digits), t.RewardRiskRatio)
	output.Printf("  Confidence:  %.0f\n", t.Confidence)
	printTrend(output, d.Trend)
	if len(t.Rationale) > 0 {
		output.Println("  Rationale:")
		for _, r := range t.Rationale {
			output.Printf("    - %s\n", r)
		}
	}
}

func printTrend(output *Output, tc models.TrendContext) {
	if tc.Macro == "" {
		return
	}
	intraday := string(tc.Intraday)
	if intraday == "" {
		intraday = "-"
	}
	output.Printf("  Trend:       macro %s, intraday %s\n", tc.Macro, intraday)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/umair24171/scalp-agent/internal/store"
	"github.com/umair24171/scalp-agent/internal/trading"
	"github.com/umair24171/scalp-agent/pkg/utils"
)

func newStatsCmd(app *App) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show performance of resolved trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Store()
			if err != nil {
				return err
			}
			outcomes, err := st.GetOutcomes(cmd.Context(), store.TradeFilter{Symbol: strings.ToUpper(symbol)})
			if err != nil {
				return err
			}

			rr := app.Config.Strategy.RewardRisk
			stats := trading.NewStats(rr)
			for _, o := range outcomes {
				stats.Record(o)
			}
			report := stats.Report()

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(report)
			}
			if len(outcomes) == 0 {
				output.Info("No resolved trades yet")
				return nil
			}
			printStats(output, report, rr)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only include this symbol")
	return cmd
}

func printStats(output *Output, report trading.StatsReport, rr float64) {
	table := NewTable(output, "SYMBOL", "WINS", "LOSSES", "EXPIRED", "WIN RATE", "TOTAL R", "PF")
	row := func(name string, c trading.Counters) {
		expired := fmt.Sprint(c.Expired)
		if c.Expired > 0 {
			expired = output.Yellow(expired)
		}
		table.AddRow(
			name,
			fmt.Sprint(c.Wins),
			fmt.Sprint(c.Losses),
			expired,
			utils.FormatPercent(c.WinRate()),
			output.RColor(c.TotalR, utils.FormatR(c.TotalR)),
			c.ProfitFactor(rr).String(),
		)
	}
	for _, s := range report.Symbols() {
		row(s, report.PerSymbol[s])
	}
	row("ALL", report.Global)
	table.Render()
}

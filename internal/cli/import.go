package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/umair24171/scalp-agent/internal/feed"
	"github.com/umair24171/scalp-agent/internal/models"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <symbol> <resolution> <file.csv>",
		Short: "Import candles from a CSV file",
		Long: `Import loads a CSV with the header timestamp,open,high,low,close,volume
into the local store. Resolution is one of 1m, 5m, 1h. Timestamps are bar open
times in RFC3339, "2006-01-02 15:04:05" (UTC) or Unix seconds. Existing bars
with the same timestamp are replaced.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			res, ok := models.ParseResolution(args[1])
			if !ok {
				return fmt.Errorf("unknown resolution %q (want 1m, 5m or 1h)", args[1])
			}

			st, err := app.Store()
			if err != nil {
				return err
			}
			n, err := feed.NewCSVImporter(st, app.Logger).ImportFile(cmd.Context(), symbol, res, args[2])
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":     symbol,
					"resolution": res,
					"imported":   n,
				})
			}
			output.Success("Imported %d %s candles for %s", n, res, symbol)
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vincentpoireau/Rika-firenet/internal/app"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
)

var (
	exportKind      string
	exportFrom      string
	exportTo        string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export aggregate history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := period.ParseKind(exportKind)
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			Kind:      kind,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, parseErr := time.Parse(time.RFC3339, exportFrom)
			if parseErr != nil {
				return fmt.Errorf("parse --from: %w", parseErr)
			}
			opts.From = &from
		}
		if exportTo != "" {
			to, parseErr := time.Parse(time.RFC3339, exportTo)
			if parseErr != nil {
				return fmt.Errorf("parse --to: %w", parseErr)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportKind, "kind", "day", "Aggregate kind to export (day, week, month)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Range start (RFC3339)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Range end (RFC3339)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write aggregates to a CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render aggregates to a PNG chart")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum number of aggregates to export (default from config)")
}

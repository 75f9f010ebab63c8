package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vincentpoireau/Rika-firenet/internal/app"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
)

var (
	showLimit      int
	showAggregates bool
	showKind       string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent samples or aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:      showLimit,
			Aggregates: showAggregates,
		}
		if showAggregates {
			kind, err := period.ParseKind(showKind)
			if err != nil {
				return err
			}
			opts.Kind = kind
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showAggregates, "aggregates", false, "Show period aggregates instead of raw samples")
	showCmd.Flags().StringVar(&showKind, "kind", "day", "Aggregate kind to show (day, week, month)")
}

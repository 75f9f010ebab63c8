package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vincentpoireau/Rika-firenet/internal/app"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
)

var aggregateAt string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <day|week|month>",
	Short: "Roll the previous period's samples into a summary record",
	Long: `Aggregate computes consumption and temperature figures for the period
immediately preceding the current one and stores them keyed by the period's
canonical identity. Re-running the same period overwrites rather than
duplicates, so scheduled retries are safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := period.ParseKind(args[0])
		if err != nil {
			return err
		}

		opts := app.AggregateOptions{Kind: kind}
		if aggregateAt != "" {
			at, parseErr := time.Parse(time.RFC3339, aggregateAt)
			if parseErr != nil {
				return fmt.Errorf("parse --at: %w", parseErr)
			}
			opts.Now = &at
		}

		return getApp().Aggregate(cmd.Context(), opts)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateAt, "at", "", "Reference instant (RFC3339) instead of the current time, e.g. to re-run a past rollup")
}

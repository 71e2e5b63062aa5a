package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the attendance summary for a date",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().String("date", "", "date in YYYY-MM-DD format (default: active date)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := buildApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	date := mustGetString(cmd, "date")
	if date == "" {
		date, err = application.ledger.ActiveDate(ctx)
		if err != nil {
			return fmt.Errorf("resolving active date: %w", err)
		}
	}

	summary, err := application.ledger.Summarize(ctx, date)
	if err != nil {
		return fmt.Errorf("summarizing %s: %w", date, err)
	}

	fmt.Printf("Summary for %s\n", summary.Date)
	fmt.Printf("  entries: %d\n", summary.TotalEntries)
	fmt.Printf("  exits:   %d\n", summary.TotalExits)
	fmt.Printf("  present: %d\n", summary.PresentCount)
	for _, name := range summary.Present {
		fmt.Printf("    - %s\n", name)
	}
	return nil
}

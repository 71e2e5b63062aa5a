package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var setDateCmd = &cobra.Command{
	Use:   "set-date <YYYY-MM-DD>",
	Short: "Set the active attendance date",
	Long: `Set the date new scans are recorded under. Attendance for other
dates is untouched; switching back restores the earlier state.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetDate,
}

func init() {
	rootCmd.AddCommand(setDateCmd)
}

func runSetDate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := buildApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.ledger.SetActiveDate(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Active date set to %s\n", args[0])
	return nil
}

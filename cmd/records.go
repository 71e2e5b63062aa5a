package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Print attendance records for a date",
	RunE:  runRecords,
}

func init() {
	recordsCmd.Flags().String("date", "", "date in YYYY-MM-DD format (default: active date)")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, args []string) error {
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

	records, err := application.ledger.RecordsFor(ctx, date)
	if err != nil {
		return fmt.Errorf("loading records for %s: %w", date, err)
	}
	if len(records) == 0 {
		fmt.Printf("No records for %s\n", date)
		return nil
	}

	fmt.Printf("Attendance for %s\n\n", date)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROLL\tENTRY\tEXIT\tCONFIDENCE")
	for _, rec := range records {
		exit := "-"
		if !rec.Open() {
			exit = rec.ExitTime.Format("15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\n",
			rec.Name, rec.RollNumber, rec.EntryTime.Format("15:04:05"), exit, rec.Confidence)
	}
	return w.Flush()
}

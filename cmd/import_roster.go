package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var importRosterCmd = &cobra.Command{
	Use:   "import-roster",
	Short: "Import students from the school roster database",
	Long: `Import students from the MariaDB roster configured via
ROSTER_DATABASE_URL. Students are enrolled without face embeddings;
their faces are captured later through the register flow. Roll numbers
already in the registry are skipped, so the import is safe to re-run.`,
	RunE: runImportRoster,
}

func init() {
	importRosterCmd.Flags().String("dsn", "", "MariaDB DSN (default: ROSTER_DATABASE_URL)")
	rootCmd.AddCommand(importRosterCmd)
}

func runImportRoster(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	dsn := mustGetString(cmd, "dsn")
	if dsn == "" {
		dsn = cfg.Roster.DatabaseURL
	}
	if dsn == "" {
		return fmt.Errorf("no roster database configured, set ROSTER_DATABASE_URL or pass --dsn")
	}

	ctx := context.Background()

	pool, err := roster.NewPool(dsn)
	if err != nil {
		return fmt.Errorf("connecting to roster database: %w", err)
	}
	defer pool.Close()

	students, err := pool.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("listing roster students: %w", err)
	}
	if len(students) == 0 {
		fmt.Println("Roster is empty, nothing to import")
		return nil
	}

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	bar := progressbar.NewOptions(len(students),
		progressbar.OptionSetDescription("Importing students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	result, err := roster.NewImporter(application.registry).Import(ctx, students, func() {
		_ = bar.Add(1)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("import failed after %d students: %w", result.Imported, err)
	}

	fmt.Printf("Imported %d students, skipped %d\n", result.Imported, result.Skipped)
	return nil
}

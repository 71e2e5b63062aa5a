package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	RunE:  runStudents,
}

var studentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a student from the registry",
	Long: `Remove a student from the recognition registry.
Attendance history keeps its snapshots of the student's name and roll
number; only future scans stop matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentsDelete,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsDeleteCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := buildApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	students := application.registry.List()
	if len(students) == 0 {
		fmt.Println("No students enrolled")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLL\tDEPARTMENT\tFACE")
	for _, student := range students {
		face := "-"
		if len(student.Vectors) > 0 {
			face = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			student.ID, student.Name, student.RollNumber, student.Department, face)
	}
	return w.Flush()
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid student ID %q", args[0])
	}

	ctx := context.Background()
	application, err := buildApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.engine.DeleteIdentity(ctx, id); err != nil {
		return fmt.Errorf("deleting student %d: %w", id, err)
	}

	fmt.Printf("Deleted student %d\n", id)
	return nil
}

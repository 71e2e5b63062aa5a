package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

var registerCmd = &cobra.Command{
	Use:   "register <photo.jpg>",
	Short: "Enroll a student from a face photo",
	Long: `Enroll a student in the recognition registry from a face photo.
The photo is sent to the embedding service and the resulting face
vector is stored with the student profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Student name (required)")
	registerCmd.Flags().String("roll", "", "Roll number (required)")
	registerCmd.Flags().String("department", "", "Department")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("roll")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	frame, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	encoderClient, err := encoder.New(cfg.Embedding.URL, cfg.Embedding.Dim)
	if err != nil {
		return fmt.Errorf("configuring embedding client: %w", err)
	}

	vector, err := encoderClient.Encode(ctx, frame)
	if errors.Is(err, encoder.ErrNoFace) {
		return errors.New("no face detected in the photo")
	}
	if err != nil {
		return fmt.Errorf("encoding photo: %w", err)
	}

	student, err := application.engine.Register(ctx, registry.Identity{
		Name:       mustGetString(cmd, "name"),
		RollNumber: mustGetString(cmd, "roll"),
		Department: mustGetString(cmd, "department"),
	}, vector)
	if errors.Is(err, registry.ErrDuplicateRoll) {
		return fmt.Errorf("roll number %s is already registered", mustGetString(cmd, "roll"))
	}
	if err != nil {
		return fmt.Errorf("enrolling student: %w", err)
	}

	fmt.Printf("Enrolled %s (%s) with ID %d\n", student.Name, student.RollNumber, student.ID)
	return nil
}

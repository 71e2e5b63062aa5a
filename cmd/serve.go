package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/faculty"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance server",
	Long: `Start the attendance web server.
The server handles camera scans, faculty administration and the device
mode endpoints polled by the ESP32 firmware.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides SERVER_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides SERVER_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
	sessionSecret := mustGetString(cmd, "session-secret")
	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}

	ctx := context.Background()
	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	encoderClient, err := encoder.New(cfg.Embedding.URL, cfg.Embedding.Dim)
	if err != nil {
		return fmt.Errorf("configuring embedding client: %w", err)
	}

	facultyStore, err := faculty.Open(cfg.Attendance.DataDir, cfg.Faculty.ResetKey)
	if err != nil {
		return fmt.Errorf("opening faculty store: %w", err)
	}
	if err := facultyStore.EnsureDefaultUser(ctx, cfg.Faculty.Username, cfg.Faculty.Password); err != nil {
		return fmt.Errorf("seeding faculty user: %w", err)
	}

	deps := web.Dependencies{
		Engine:   application.engine,
		Encoder:  encoderClient,
		Registry: application.registry,
		Ledger:   application.ledger,
		Faculty:  facultyStore,
	}
	if application.buzzer != nil {
		deps.Buzzer = handlers.BuzzerTrigger(application.buzzer)
	}

	server := web.NewServer(cfg, sessionSecret, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Enrolled students: %d\n", application.registry.Count())
	fmt.Printf("Starting attendance server on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

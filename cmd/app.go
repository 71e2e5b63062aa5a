package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/buzzer"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/store/jsonfile"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

// app bundles the wired core services shared by the CLI commands.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	ledger   *ledger.Ledger
	engine   *attendance.Engine
	buzzer   *buzzer.Client
	pool     *postgres.Pool
}

// buildApp wires the stores, registry, ledger and decision engine.
// DATABASE_URL selects the PostgreSQL backend; without it the JSON
// file stores under DATA_DIR are used.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var (
		identityStore   registry.Store
		attendanceStore ledger.Store
		pool            *postgres.Pool
	)

	if cfg.Database.URL != "" {
		var err error
		pool, err = postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		identityStore = postgres.NewIdentityStore(pool)
		attendanceStore = postgres.NewAttendanceStore(pool)
	} else {
		var err error
		identityStore, err = jsonfile.OpenIdentityStore(cfg.Attendance.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening identity store: %w", err)
		}
		attendanceStore, err = jsonfile.OpenAttendanceStore(cfg.Attendance.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening attendance store: %w", err)
		}
	}

	reg := registry.New(identityStore)
	if err := reg.Load(ctx); err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	led := ledger.New(attendanceStore)
	matcher := facematch.NewMatcher(cfg.Recognition.Tolerance)

	var notifier attendance.Notifier
	buzzerClient, err := buzzer.New(cfg)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("configuring buzzer: %w", err)
	}
	if buzzerClient != nil {
		notifier = buzzerClient
	}

	engine := attendance.New(
		reg, led, matcher,
		time.Duration(cfg.Attendance.CooldownSeconds)*time.Second,
		cfg.Embedding.Dim,
		notifier,
	)

	return &app{
		cfg:      cfg,
		registry: reg,
		ledger:   led,
		engine:   engine,
		buzzer:   buzzerClient,
		pool:     pool,
	}, nil
}

// Close releases backend resources.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/ledger"

	_ "github.com/lib/pq"  // Postgres Driver
	_ "modernc.org/sqlite" // SQLite Driver (lite mode)
)

// openLedger wires the configured ledger backend. The returned closer must
// be called when the command is done with the ledger.
func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.LedgerBackend {
	case "file":
		l, err := ledger.NewFileLedger(cfg.LedgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open file ledger: %w", err)
		}
		return l, func() error { return nil }, nil

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		l := ledger.NewSQLLedger(db)
		if err := l.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init sqlite ledger: %w", err)
		}
		return l, db.Close, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		l := ledger.NewSQLLedger(db)
		if err := l.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres ledger: %w", err)
		}
		return l, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

// newEvidenceSource selects where observed metrics come from: a JSON file
// or a Redis hash at the configured address.
func newEvidenceSource(cfg *config.Config, evidencePath, redisKey string) (evidence.Source, error) {
	switch {
	case evidencePath != "" && redisKey != "":
		return nil, fmt.Errorf("use either -evidence or -redis-key, not both")
	case evidencePath != "":
		return evidence.NewFileSource(evidencePath)
	case redisKey != "":
		return evidence.NewRedisSource(cfg.RedisAddr, cfg.RedisPassword, 0, redisKey), nil
	default:
		return nil, fmt.Errorf("-evidence or -redis-key is required")
	}
}

// loadProfile resolves the named gate profile and applies any command-line
// budget override. An empty name selects the built-in default.
func loadProfile(cfg *config.Config, name string, maxVP float64) (*config.GateProfile, error) {
	profile := config.DefaultGateProfile()
	if name != "" && name != "default" {
		dir := cfg.ProfilesDir
		if dir == "" {
			dir = "profiles"
		}
		loaded, err := config.LoadGateProfile(dir, name)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	if maxVP >= 0 {
		profile.MaxViolationProbability = maxVP
	}
	return profile, nil
}

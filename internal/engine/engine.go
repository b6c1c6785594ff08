// Package engine orchestrates the session pipeline: it ingests raw
// session CSVs into DuckDB, runs preprocessing and feature engineering,
// materializes processed tables and CSVs, and records run state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mixsense-labs/mixsense/internal/adapter"
	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/features"
	"github.com/mixsense-labs/mixsense/internal/prep"
	"github.com/mixsense-labs/mixsense/internal/state"
)

// DefaultWorkers is the default number of sessions processed concurrently.
const DefaultWorkers = 4

// Config holds engine configuration.
type Config struct {
	// DataDir is the root of the raw session tree
	DataDir string
	// ProcessedDir receives the processed CSV mirror of the session tree
	ProcessedDir string
	// DatabasePath is the DuckDB database path (empty for in-memory)
	DatabasePath string
	// StatePath is the path to the SQLite state database
	StatePath string
	// Environment is the current environment (dev, staging, prod)
	Environment string
	// Workers bounds concurrent session processing
	Workers int
	// Prep selects preprocessing stages
	Prep prep.Options
	// Features selects feature families
	Features features.Options
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine coordinates ingestion, preprocessing and feature engineering.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger

	store        state.Store
	dataDir      string
	processedDir string
	environment  string
	workers      int
	prepOpts     prep.Options
	featureOpts  features.Options

	sessions []dataset.Session
}

// New creates a new engine with a lazy database connection.
// The DuckDB adapter is only connected when Run is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "data_dir", cfg.DataDir, "environment", cfg.Environment)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state schema: %w", err)
	}

	env := cfg.Environment
	if env == "" {
		env = "dev"
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Engine{
		db:           nil, // Lazy
		dbConfig:     adapter.Config{Path: cfg.DatabasePath},
		logger:       logger,
		store:        store,
		dataDir:      cfg.DataDir,
		processedDir: cfg.ProcessedDir,
		environment:  env,
		workers:      workers,
		prepOpts:     cfg.Prep,
		featureOpts:  cfg.Features,
	}, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "path", e.dbConfig.Path)

	db := adapter.NewDuckDBAdapter()
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Discover scans the data directory and caches the session list.
func (e *Engine) Discover() ([]dataset.Session, error) {
	sessions, err := dataset.Discover(e.dataDir)
	if err != nil {
		return nil, err
	}
	e.sessions = sessions
	e.logger.Debug("sessions discovered", "count", len(sessions))
	return sessions, nil
}

// GetSessions returns the cached session list from the last Discover.
func (e *Engine) GetSessions() []dataset.Session {
	return e.sessions
}

// GetStateStore returns the state store.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

package engine

// run.go - execution orchestration for processing sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/features"
	"github.com/mixsense-labs/mixsense/internal/frame"
	"github.com/mixsense-labs/mixsense/internal/prep"
	"github.com/mixsense-labs/mixsense/internal/state"
)

// ProcessedFileName is the processed CSV written per session.
const ProcessedFileName = "processed.csv"

// Run processes all sessions matching the selectors (all sessions when
// empty). Sessions run concurrently up to the worker bound; one failing
// session does not abort the others, but any failure marks the run failed.
func (e *Engine) Run(ctx context.Context, selectors []string) (*state.Run, error) {
	e.logger.Info("starting run", "environment", e.environment, "selectors", selectors)

	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	if e.sessions == nil {
		if _, err := e.Discover(); err != nil {
			return nil, fmt.Errorf("failed to discover sessions: %w", err)
		}
	}
	selected := dataset.Filter(e.sessions, selectors)

	run, err := e.store.CreateRun(e.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.Debug("created run", "run_id", run.ID, "sessions", len(selected))

	var mu sync.Mutex
	var sessionErrors []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, s := range selected {
		g.Go(func() error {
			if err := e.processSession(gctx, run.ID, s); err != nil {
				e.logger.Error("session failed", "session", s.Key(), "error", err)
				mu.Lock()
				sessionErrors = append(sessionErrors, fmt.Errorf("%s: %w", s.Key(), err))
				mu.Unlock()
			}
			// Errors are collected, not returned, so one failed
			// session does not cancel the rest of the group.
			return nil
		})
	}
	_ = g.Wait()

	runErr := errors.Join(sessionErrors...)
	if runErr != nil {
		e.logger.Info("run failed", "run_id", run.ID, "failed_sessions", len(sessionErrors))
		_ = e.store.CompleteRun(run.ID, state.RunStatusFailed,
			fmt.Sprintf("%d session(s) failed", len(sessionErrors)))
	} else {
		e.logger.Info("run completed", "run_id", run.ID)
		_ = e.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	}

	run, _ = e.store.GetRun(run.ID)
	return run, runErr
}

// processSession runs the full pipeline for one session and records its
// state transitions.
func (e *Engine) processSession(ctx context.Context, runID string, s dataset.Session) error {
	sr := &state.SessionRun{
		RunID:   runID,
		Session: s.Key(),
		Status:  state.SessionRunStatusPending,
	}
	if err := e.store.RecordSessionRun(sr); err != nil {
		return fmt.Errorf("failed to record session run: %w", err)
	}
	_ = e.store.UpdateSessionRun(sr.ID, state.SessionRunStatusRunning, 0, "", 0, 0)

	fail := func(ingestMS, processMS int64, err error) error {
		_ = e.store.UpdateSessionRun(sr.ID, state.SessionRunStatusFailed, 0, err.Error(), ingestMS, processMS)
		return err
	}

	// Ingest the raw CSV
	ingestStart := time.Now()
	rawTable := "raw_" + s.TableName()
	if err := e.db.LoadCSV(ctx, rawTable, s.DataPath); err != nil {
		return fail(0, 0, fmt.Errorf("failed to ingest session data: %w", err))
	}
	f, err := e.frameFromTable(ctx, rawTable)
	if err != nil {
		return fail(0, 0, err)
	}
	ingestMS := time.Since(ingestStart).Milliseconds()

	e.logger.Debug("session ingested", "session", s.Key(), "rows", f.NumRows(), "ingest_ms", ingestMS)

	// Preprocess and engineer features
	processStart := time.Now()

	var spans []dataset.LabelSpan
	if s.HasLabels {
		spans, err = dataset.LoadLabels(s.LabelsPath)
		if err != nil {
			return fail(ingestMS, 0, err)
		}
	}

	prep.Preprocess(f, spans, e.prepOpts)
	if err := features.Engineer(f, e.featureOpts); err != nil {
		return fail(ingestMS, 0, fmt.Errorf("feature engineering failed: %w", err))
	}

	// Materialize the processed table, then export the session's CSV
	// mirror from it so the two cannot diverge.
	processedTable := "processed_" + s.TableName()
	outPath, err := e.materializeProcessed(ctx, f, s, processedTable)
	if err != nil {
		return fail(ingestMS, 0, err)
	}
	meta, err := e.db.GetTableMetadata(ctx, processedTable)
	if err != nil {
		return fail(ingestMS, 0, fmt.Errorf("failed to read processed table metadata: %w", err))
	}
	processMS := time.Since(processStart).Milliseconds()

	e.logger.Debug("session processed", "session", s.Key(),
		"columns", len(meta.Columns), "rows", meta.RowCount,
		"process_ms", processMS, "output", outPath)

	return e.store.UpdateSessionRun(sr.ID, state.SessionRunStatusSuccess,
		meta.RowCount, "", ingestMS, processMS)
}

// frameFromTable reads an ingested table back into a frame.
func (e *Engine) frameFromTable(ctx context.Context, table string) (*frame.Frame, error) {
	rows, err := e.db.Query(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	data := make([][]float64, len(cols))
	count := 0
	scan := make([]any, len(cols))
	vals := make([]sql.NullFloat64, len(cols))
	for i := range vals {
		scan[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		for i, v := range vals {
			if v.Valid {
				data[i] = append(data[i], v.Float64)
			} else {
				data[i] = append(data[i], math.NaN())
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table %s: %w", table, err)
	}

	f := frame.New(count)
	for i, name := range cols {
		if err := f.AddColumn(name, data[i]); err != nil {
			return nil, err
		}
	}
	if !f.HasColumn(frame.TimeColumn) {
		return nil, fmt.Errorf("table %s has no %s column", table, frame.TimeColumn)
	}
	return f, nil
}

// materializeProcessed loads the frame into the given table through a
// staging CSV, then exports the processed mirror of the session tree
// from that table. Returns the mirror path.
func (e *Engine) materializeProcessed(ctx context.Context, f *frame.Frame, s dataset.Session, table string) (string, error) {
	outDir := filepath.Join(e.processedDir, filepath.FromSlash(s.Key()))
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	staging := filepath.Join(outDir, ProcessedFileName+".staging")
	if err := writeFrameCSV(f, staging); err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(staging) }()

	if err := e.db.LoadCSV(ctx, table, staging); err != nil {
		return "", fmt.Errorf("failed to materialize processed table: %w", err)
	}

	outPath := filepath.Join(outDir, ProcessedFileName)
	if err := e.db.WriteCSV(ctx, table, outPath); err != nil {
		return "", fmt.Errorf("failed to export processed CSV: %w", err)
	}
	return outPath, nil
}

func writeFrameCSV(f *frame.Frame, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	if err := f.WriteCSV(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write staging CSV: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close staging file: %w", err)
	}
	return nil
}

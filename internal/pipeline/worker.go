package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/orgmark/internal/directory"
)

// Recorder receives one call per processed import row.
type Recorder interface {
	RecordImportRow(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordImportRow(string) {}

// Worker processes a single import job.
type Worker struct {
	store    directory.Store
	jobs     *JobStore
	log      *slog.Logger
	recorder Recorder
	backoff  func(int) time.Duration
}

func NewWorker(store directory.Store, jobs *JobStore, log *slog.Logger, rec Recorder) *Worker {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Worker{
		store:    store,
		jobs:     jobs,
		log:      log,
		recorder: rec,
		backoff:  Backoff,
	}
}

// Process runs the import for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer job.releasePayload()

	// Phase 1: Dedup check
	if prev := w.jobs.FindImported(job.ContentHash, job.ID); prev != nil {
		log.Info("duplicate import, skipping", "existing_job_id", prev.ID)
		job.markDuplicate(prev.ID)
		return
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	rows, err := ParsePayload(job.Filename, job.Payload())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalRows(len(rows))
	log.Info("parsed import", "rows", len(rows))

	// Phase 3: Import rows in order; managers are resolved once each.
	job.SetStatus(StatusImporting, "importing")
	managers := make(map[string]*directory.Manager)
	added := 0
	hadErrors := false

	for i, row := range rows {
		if ctx.Err() != nil {
			job.AddError(fmt.Sprintf("row %d: %s", i+1, ctx.Err()))
			hadErrors = true
			break
		}
		err := w.importRow(ctx, row, managers, job)
		job.IncrRowsProcessed()
		if err != nil {
			log.Warn("row failed", "row", i+1, "name", row.Name, "error", err)
			job.AddError(fmt.Sprintf("row %d (%s): %s", i+1, row.Name, err))
			w.recorder.RecordImportRow(rowResult(err))
			hadErrors = true
			continue
		}
		added++
		w.recorder.RecordImportRow("created")
	}

	log.Info("import complete", "added", added, "total", len(rows), "errors", hadErrors)

	switch {
	case hadErrors && added > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "importing")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) importRow(ctx context.Context, row directory.ImportRow, managers map[string]*directory.Manager, job *Job) error {
	var managerID *int64
	if name := row.ManagerName(); name != "" {
		mgr, ok := managers[name]
		if !ok {
			var err error
			mgr, err = withRetry(ctx, w.log, "ensure_manager", w.backoff, func() (*directory.Manager, error) {
				return w.store.EnsureManager(ctx, name)
			})
			if err != nil {
				return fmt.Errorf("manager %q: %w", name, err)
			}
			managers[name] = mgr
			job.AddImported(0, 1)
		}
		managerID = &mgr.ID
	}

	in, err := row.Input(managerID)
	if err != nil {
		return err
	}
	_, err = withRetry(ctx, w.log, "create_employee", w.backoff, func() (*directory.Employee, error) {
		return w.store.CreateEmployee(ctx, in)
	})
	if err != nil {
		return err
	}
	job.AddImported(1, 0)
	return nil
}

func rowResult(err error) string {
	switch {
	case errors.Is(err, directory.ErrInvalid):
		return "invalid"
	case errors.Is(err, directory.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

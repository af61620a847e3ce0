package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/orgmark/internal/config"
	"github.com/dgallion1/orgmark/internal/directory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) RecordImportRow(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string]int)
	}
	r.results[result]++
}

// flakyStore fails the first n CreateEmployee calls as unavailable.
type flakyStore struct {
	directory.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) CreateEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, directory.ErrUnavailable
	}
	s.mu.Unlock()
	return s.Store.CreateEmployee(ctx, in)
}

func newTestWorker(store directory.Store, rec Recorder) (*Worker, *JobStore) {
	jobs := NewJobStore(time.Hour)
	w := NewWorker(store, jobs, discardLogger(), rec)
	w.backoff = func(int) time.Duration { return 0 }
	return w, jobs
}

const staffCSV = `name,email,role,manager,country
Bob,bob@example.com,Dev,Ann Lee,
Cy,cy@example.com,QA,Ann Lee,Canada
Dee,dee@example.com,Dev,,
`

func TestWorker_ImportCSV(t *testing.T) {
	store := directory.NewMemoryStore()
	rec := &countingRecorder{}
	w, jobs := newTestWorker(store, rec)

	job := NewJob("staff.csv", []byte(staffCSV))
	jobs.Put(job)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.EmployeesAdded != 3 || snap.Progress.ManagersResolved != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if job.Payload() != nil {
		t.Error("expected payload released after processing")
	}

	emps, _ := store.Search(context.Background(), "ann lee")
	if len(emps) != 2 {
		t.Fatalf("expected 2 employees under Ann Lee, got %d", len(emps))
	}
	if emps[0].Country != directory.DefaultCountry || emps[1].Country != "Canada" {
		t.Errorf("unexpected countries %q, %q", emps[0].Country, emps[1].Country)
	}
	mgrs, _ := store.ListManagers(context.Background())
	if len(mgrs) != 1 || mgrs[0].Email != "ann.lee@example.com" || mgrs[0].Role != "Manager" {
		t.Errorf("unexpected managers %+v", mgrs)
	}
	if rec.results["created"] != 3 {
		t.Errorf("expected 3 created rows recorded, got %v", rec.results)
	}
}

func TestWorker_PathFallbackJSON(t *testing.T) {
	store := directory.NewMemoryStore()
	w, jobs := newTestWorker(store, nil)

	payload := `[{"name":"Kim","email":"kim@example.com","role":"Dev","path":["Zed","Top"]}]`
	job := NewJob("staff.json", []byte(payload))
	jobs.Put(job)
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s %v", snap.Status, snap.Progress.Errors)
	}
	emps, _ := store.Search(context.Background(), "kim")
	if len(emps) != 1 || emps[0].ManagerName != "Zed" {
		t.Errorf("expected Kim under Zed, got %+v", emps)
	}
}

func TestWorker_PartialOnRowErrors(t *testing.T) {
	store := directory.NewMemoryStore()
	rec := &countingRecorder{}
	w, jobs := newTestWorker(store, rec)

	payload := `name,email,role
Bob,bob@example.com,Dev
Bob Two,bob@example.com,Dev
NoRole,norole@example.com,
`
	job := NewJob("staff.csv", []byte(payload))
	jobs.Put(job)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if len(snap.Progress.Errors) != 2 || snap.Progress.RowsProcessed != 3 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if !strings.Contains(snap.Progress.Errors[0], "row 2") {
		t.Errorf("expected row number in error, got %q", snap.Progress.Errors[0])
	}
	if rec.results["conflict"] != 1 || rec.results["invalid"] != 1 {
		t.Errorf("unexpected recorded results %v", rec.results)
	}
}

func TestWorker_ParseFailure(t *testing.T) {
	w, jobs := newTestWorker(directory.NewMemoryStore(), nil)
	job := NewJob("staff.csv", []byte("role,country\nDev,India\n"))
	jobs.Put(job)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed parsing, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestWorker_RetriesUnavailable(t *testing.T) {
	store := &flakyStore{Store: directory.NewMemoryStore(), failures: MaxRetries - 1}
	w, jobs := newTestWorker(store, nil)

	job := NewJob("one.csv", []byte("name,email,role\nBob,bob@example.com,Dev\n"))
	jobs.Put(job)
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Errorf("expected retry to succeed, got %s %v", snap.Status, snap.Progress.Errors)
	}
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	store := &flakyStore{Store: directory.NewMemoryStore(), failures: MaxRetries}
	w, jobs := newTestWorker(store, nil)

	job := NewJob("one.csv", []byte("name,email,role\nBob,bob@example.com,Dev\n"))
	jobs.Put(job)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected failed, got %s", snap.Status)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], directory.ErrUnavailable.Error()) {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	store := directory.NewMemoryStore()
	w, jobs := newTestWorker(store, nil)

	first := NewJob("staff.csv", []byte(staffCSV))
	jobs.Put(first)
	w.Process(context.Background(), first)

	second := NewJob("again.csv", []byte(staffCSV))
	jobs.Put(second)
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped || snap.DuplicateOf != first.ID {
		t.Errorf("expected duplicate of %s, got %+v", first.ID, snap)
	}
	emps, _ := store.Search(context.Background(), "")
	if len(emps) != 3 {
		t.Errorf("expected no extra employees, got %d", len(emps))
	}
}

func TestWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), discardLogger(), "op", func(int) time.Duration { return 0 }, func() (int, error) {
		calls++
		return 0, directory.ErrConflict
	})
	if !errors.Is(err, directory.ErrConflict) || calls != 1 {
		t.Errorf("expected one call with conflict, got %d calls, %v", calls, err)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}

func TestOrchestrator_SubmitAndProcess(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	store := directory.NewMemoryStore()
	o := NewOrchestrator(cfg, store, discardLogger(), nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("staff.csv", []byte(staffCSV))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be tracked")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !job.Snapshot().Status.Terminal() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %s", s)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, directory.NewMemoryStore(), discardLogger(), nil)
	// Workers not started, so the queue fills.
	if err := o.Submit(NewJob("a.csv", []byte("a"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob("b.csv", []byte("b"))
	if err := o.Submit(job); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Error("expected rejected job to be marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an import job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusImporting  JobStatus = "importing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single bulk import.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	payload []byte
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalRows        int      `json:"total_rows"`
	RowsProcessed    int      `json:"rows_processed"`
	EmployeesAdded   int      `json:"employees_added"`
	ManagersResolved int      `json:"managers_resolved"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded payload.
func NewJob(filename string, payload []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          generateULID(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(payload),
		CreatedAt:   now,
		UpdatedAt:   now,
		payload:     payload,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindImported returns a job other than excludeID that already imported
// content with the given hash, or nil.
func (s *JobStore) FindImported(hash, excludeID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if id == excludeID {
			continue
		}
		snap := job.Snapshot()
		if job.ContentHash == hash && (snap.Status == StatusCompleted || snap.Status == StatusPartial) {
			return job
		}
	}
	return nil
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrRowsProcessed atomically increments rows processed.
func (j *Job) IncrRowsProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RowsProcessed++
	j.UpdatedAt = time.Now()
}

// AddImported records created employees and newly resolved managers.
func (j *Job) AddImported(employees, managers int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.EmployeesAdded += employees
	j.Progress.ManagersResolved += managers
	j.UpdatedAt = time.Now()
}

// SetTotalRows records total row count.
func (j *Job) SetTotalRows(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalRows = n
	j.UpdatedAt = time.Now()
}

// SetPayload sets the raw upload bytes for processing.
func (j *Job) SetPayload(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.payload = data
}

// Payload returns the raw upload bytes.
func (j *Job) Payload() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.payload
}

// releasePayload drops the upload bytes once the job has finished.
func (j *Job) releasePayload() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.payload = nil
}

// markDuplicate marks the job skipped in favor of an earlier import.
func (j *Job) markDuplicate(of string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusDupSkipped
	j.Phase = "dedup"
	j.DuplicateOf = of
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		DuplicateOf: j.DuplicateOf,
		Progress: Progress{
			TotalRows:        j.Progress.TotalRows,
			RowsProcessed:    j.Progress.RowsProcessed,
			EmployeesAdded:   j.Progress.EmployeesAdded,
			ManagersResolved: j.Progress.ManagersResolved,
			Errors:           errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/format"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/server"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is an asynchronous search. Partial matches are broadcast to WebSocket
// clients while it runs; Matched counts them.
type Job struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	Matched     int             `json:"matched"`
	Result      *SearchResponse `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Request     SearchRequest   `json:"request"`

	ctx    context.Context
	cancel context.CancelFunc
}

// JobStore manages search jobs in memory. Accessors return copies so a job
// can be encoded while its search is still running.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobStore creates a new job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Create registers a pending job for req.
func (s *JobStore) Create(req SearchRequest) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := timestamp()

	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.jobs[job.ID] = job
	return *job
}

// Get retrieves a job by ID.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// update applies fn to a job that has not finished yet.
func (s *JobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists || job.Status.Finished() {
		return
	}
	fn(job)
	job.UpdatedAt = timestamp()
	if job.Status.Finished() {
		job.CompletedAt = job.UpdatedAt
		job.cancel()
	}
}

// Start marks a job as running.
func (s *JobStore) Start(id string) {
	s.update(id, func(j *Job) { j.Status = JobStatusRunning })
}

// AddMatched counts streamed matches.
func (s *JobStore) AddMatched(id string, n int) {
	s.update(id, func(j *Job) { j.Matched += n })
}

// Finish records a job's final state.
func (s *JobStore) Finish(id string, status JobStatus, result *SearchResponse, errMsg string) {
	s.update(id, func(j *Job) {
		j.Status = status
		j.Result = result
		j.Error = errMsg
		if result != nil {
			j.Matched = result.Total
		}
	})
}

// Cancel cancels a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return errors.NewNotFound("job", id)
	}
	if job.Status.Finished() {
		return errors.NewValidation("status", fmt.Sprintf("job cannot be cancelled (status: %s)", job.Status))
	}

	job.cancel()
	job.Status = JobStatusCancelled
	job.UpdatedAt = timestamp()
	job.CompletedAt = job.UpdatedAt
	return nil
}

// Delete removes a finished job.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return errors.NewNotFound("job", id)
	}
	job.cancel()
	delete(s.jobs, id)
	return nil
}

// CancelAll cancels every unfinished job.
func (s *JobStore) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if !job.Status.Finished() {
			job.cancel()
		}
	}
}

// List returns all jobs, oldest first.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	slices.SortFunc(jobs, func(a, b Job) int {
		if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return jobs
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// jobContext returns the cancellation context of a job.
func (s *JobStore) jobContext(id string) context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job, ok := s.jobs[id]; ok {
		return job.ctx
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// runJob executes a search job in a goroutine. Batches of matches are
// broadcast as they are found; the ranked result follows on completion.
func (s *Server) runJob(job Job, settings search.Settings) {
	ctx := s.jobs.jobContext(job.ID)
	display := format.OptionsFrom(settings)

	activeJobs.Inc()
	go func() {
		defer activeJobs.Dec()
		s.jobs.Start(job.ID)

		opts := search.Options{
			OnBatch: func(seq uint64, batch []search.MatchResult) {
				s.jobs.AddMatched(job.ID, len(batch))
				s.hub.Broadcast(Event{
					Type:    EventBatch,
					JobID:   job.ID,
					Records: format.Records(batch, display),
				})
			},
		}

		out, cached, err := s.runSearch(ctx, job.Request.Query, settings, opts)
		if err != nil {
			_, apiErr := errorResponse(err)
			s.jobs.Finish(job.ID, JobStatusFailed, nil, apiErr.Message)
			s.hub.Broadcast(Event{Type: EventError, JobID: job.ID, Code: apiErr.Code, Message: apiErr.Message})
			return
		}

		resp := newSearchResponse(job.Request.Query, out, settings, cached)
		status := JobStatusCompleted
		if out.Cancelled {
			status = JobStatusCancelled
		}
		s.jobs.Finish(job.ID, status, &resp, "")
		s.hub.Broadcast(Event{
			Type:      EventComplete,
			JobID:     job.ID,
			Kind:      out.Kind,
			Total:     out.Total(),
			Unique:    out.Unique,
			Cancelled: out.Cancelled,
			Message:   resp.Summary,
		})
	}()
}

// handleJobs handles GET /jobs (list) and POST /jobs (create).
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs := s.jobs.List()
		respondWithTotal(w, http.StatusOK, jobs, len(jobs))
	case http.MethodPost:
		s.createJob(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

const maxJobBody = 64 << 10

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if !server.ValidateContentType(r.Header.Get("Content-Type"), []string{"application/json"}) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if err := s.checkQuery(&req); err != nil {
		respondErr(w, err)
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "query is required")
		return
	}

	settings, err := s.settings(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	job := s.jobs.Create(req)
	logging.AddRequestFields(r.Context(), "job_id", job.ID)
	s.runJob(job, settings)

	respond(w, http.StatusCreated, job)
}

// handleJobByID handles GET /jobs/{id} (status) and DELETE /jobs/{id}, which
// cancels a running job and removes a finished one.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, exists := s.jobs.Get(id)
		if !exists {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		respond(w, http.StatusOK, job)

	case http.MethodDelete:
		job, exists := s.jobs.Get(id)
		if !exists {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		if job.Status.Finished() {
			if err := s.jobs.Delete(id); err != nil {
				respondErr(w, err)
				return
			}
			respond(w, http.StatusOK, map[string]string{"message": "Job deleted"})
			return
		}
		if err := s.jobs.Cancel(id); err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Job cancelled"})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

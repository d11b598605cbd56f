package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// Job states.
const (
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

// JobStatus represents the current state of a fetch job.
type JobStatus struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"-"`
	Status      string    `json:"status"` // running, complete, error
	Progress    int       `json:"progress"`
	Failed      int       `json:"failed"`
	Total       int       `json:"total"`
	Current     string    `json:"current_keyword"`
	SessionID   string    `json:"session_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

func (j JobStatus) done() bool {
	return j.Status == JobComplete || j.Status == JobError
}

// JobTracker manages fetch jobs in memory.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
	subs map[string][]chan JobStatus // subscribers per job
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*JobStatus),
		subs: make(map[string][]chan JobStatus),
	}
}

// CreateJob creates a new job entry.
func (t *JobTracker) CreateJob(id, projectID, userID string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &JobStatus{
		ID:        id,
		ProjectID: projectID,
		UserID:    userID,
		Status:    JobRunning,
		Total:     total,
		StartedAt: time.Now(),
	}
}

// update applies fn to a job and notifies subscribers.
func (t *JobTracker) update(id string, fn func(*JobStatus)) {
	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(job)
	snapshot := *job
	subs := t.subs[id]
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Reporter returns the progress sink of a job.
func (t *JobTracker) Reporter(id string) port.JobReporter {
	return &jobReporter{tracker: t, id: id}
}

// GetJob returns a job status.
func (t *JobTracker) GetJob(id string) (*JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// Subscribe returns a channel that receives job updates.
func (t *JobTracker) Subscribe(id string) chan JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan JobStatus, 10)
	t.subs[id] = append(t.subs[id], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers.
func (t *JobTracker) Unsubscribe(id string, ch chan JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[id]
	for i, s := range subs {
		if s == ch {
			t.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(ch)
}

type jobReporter struct {
	tracker *JobTracker
	id      string
}

func (r *jobReporter) Step(item string, failed bool) {
	r.tracker.update(r.id, func(j *JobStatus) {
		j.Progress++
		if failed {
			j.Failed++
		}
		j.Current = item
	})
}

func (r *jobReporter) Finish(resultID string, err error) {
	r.tracker.update(r.id, func(j *JobStatus) {
		j.CompletedAt = time.Now()
		j.Current = ""
		if err != nil {
			j.Status = JobError
			j.Error = err.Error()
			return
		}
		j.Status = JobComplete
		j.SessionID = resultID
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	tracker *JobTracker
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(tracker *JobTracker) *JobsHandler {
	return &JobsHandler{tracker: tracker}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.GetStatus)
	jobs.Get("/:id/stream", h.StreamSSE)
}

// job returns the job if it belongs to the current user.
func (h *JobsHandler) job(c fiber.Ctx) (*JobStatus, bool) {
	uc := middleware.GetUserContext(c)
	job, ok := h.tracker.GetJob(c.Params("id"))
	if !ok || uc == nil || job.UserID != uc.UserID {
		return nil, false
	}
	return job, true
}

// GetStatus returns the current job status.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	job, ok := h.job(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}

// StreamSSE streams job updates via Server-Sent Events.
func (h *JobsHandler) StreamSSE(c fiber.Ctx) error {
	job, ok := h.job(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	id := job.ID

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// If already finished, just return the final status
	if job.done() {
		data, _ := json.Marshal(job)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", job.Status, string(data)))
	}

	ch := h.tracker.Subscribe(id)
	// The job may have finished before the subscription.
	if latest, ok := h.tracker.GetJob(id); ok {
		job = latest
	}

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(id, ch)

		data, _ := json.Marshal(job)
		eventType := "progress"
		if job.done() {
			eventType = job.Status
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
		if err := w.Flush(); err != nil || job.done() {
			return
		}

		timeout := time.After(10 * time.Minute)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(update)
				eventType := "progress"
				if update.done() {
					eventType = update.Status
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
				if err := w.Flush(); err != nil {
					slog.Debug("SSE client disconnected", "job_id", id)
					return
				}
				if update.done() {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "job_id", id)
				return
			}
		}
	})
}

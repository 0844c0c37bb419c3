package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/sibyl/core/document"
)

// JobState is the lifecycle state of an ingestion job.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is a snapshot of an ingestion job's progress.
type JobStatus struct {
	ID        string    `json:"id"`
	State     JobState  `json:"state"`
	Progress  float64   `json:"progress"`
	Docs      int       `json:"docs"`
	Ingested  int       `json:"ingested_chunks"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type job struct {
	id   string
	docs []document.Document
}

// Queue runs document ingestion on a background worker. Enqueue is
// idempotent per document batch: submitting the same batch while its job is
// still live returns the existing job ID.
type Queue struct {
	svc    *Service
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*JobStatus
	byBatch map[string]string

	work    chan job
	done    chan struct{}
	sending sync.WaitGroup
	closed  bool
}

// NewQueue creates a Queue and starts its worker.
func NewQueue(svc *Service, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		svc:     svc,
		logger:  logger,
		jobs:    make(map[string]*JobStatus),
		byBatch: make(map[string]string),
		work:    make(chan job, 16),
		done:    make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue submits a batch of documents for ingestion and returns the job ID.
func (q *Queue) Enqueue(docs []document.Document) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("enqueue: empty batch")
	}

	batchKey := batchHash(docs)

	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return "", fmt.Errorf("enqueue: queue is closed")
	}

	if existing, ok := q.byBatch[batchKey]; ok {
		if status := q.jobs[existing]; status != nil && status.State != JobFailed {
			q.mu.Unlock()
			return existing, nil
		}
	}

	id := uuid.NewString()
	q.jobs[id] = &JobStatus{
		ID:        id,
		State:     JobPending,
		Docs:      len(docs),
		UpdatedAt: time.Now().UTC(),
	}
	q.byBatch[batchKey] = id
	q.sending.Add(1)
	q.mu.Unlock()

	// The send happens outside the lock: the worker needs the same lock to
	// record progress, so a full channel must never block a lock holder.
	defer q.sending.Done()
	q.work <- job{id: id, docs: docs}
	return id, nil
}

// Status returns a copy of the job's current status.
func (q *Queue) Status(jobID string) (JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	status, ok := q.jobs[jobID]
	if !ok {
		return JobStatus{}, false
	}
	return *status, true
}

// Close stops accepting work and waits for the worker to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	// No new sends can start once closed is set; wait for in-flight
	// Enqueue calls to finish before closing the channel.
	q.sending.Wait()
	close(q.work)

	<-q.done
}

func (q *Queue) worker() {
	defer close(q.done)

	for j := range q.work {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	q.update(j.id, func(s *JobStatus) {
		s.State = JobRunning
	})

	ctx := context.Background()
	ingested := 0

	for i, doc := range j.docs {
		n, err := q.svc.Ingest(ctx, doc)
		if err != nil {
			q.logger.Error("ingestion job failed",
				"job_id", j.id, "document_id", doc.ID, "error", err)
			q.update(j.id, func(s *JobStatus) {
				s.State = JobFailed
				s.Error = err.Error()
				s.Ingested = ingested
			})
			return
		}
		ingested += n
		processed := i + 1
		q.update(j.id, func(s *JobStatus) {
			s.Progress = float64(processed) / float64(len(j.docs))
			s.Ingested = ingested
		})
	}

	q.update(j.id, func(s *JobStatus) {
		s.State = JobDone
		s.Progress = 1
	})
	q.logger.Info("ingestion job done", "job_id", j.id, "chunks", ingested)
}

func (q *Queue) update(jobID string, fn func(*JobStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if status, ok := q.jobs[jobID]; ok {
		fn(status)
		status.UpdatedAt = time.Now().UTC()
	}
}

func batchHash(docs []document.Document) string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:])
}

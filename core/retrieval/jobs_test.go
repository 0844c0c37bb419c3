package retrieval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/sibyl/core/document"
)

func waitForJob(t *testing.T, q *Queue, jobID string, want JobState) JobStatus {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			status, _ := q.Status(jobID)
			t.Fatalf("job %s stuck in %q, wanted %q", jobID, status.State, want)
			return status
		default:
		}

		if status, ok := q.Status(jobID); ok && status.State == want {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueue_Lifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	docs := []document.Document{
		document.New("First document about deployment pipelines.", "a"),
		document.New("Second document about incident response playbooks.", "b"),
	}

	id, err := q.Enqueue(docs)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	status := waitForJob(t, q, id, JobDone)
	assert.Equal(t, 1.0, status.Progress)
	assert.Equal(t, 2, status.Docs)
	assert.Positive(t, status.Ingested)
	assert.Empty(t, status.Error)
}

func TestQueue_IdempotentEnqueue(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	docs := []document.Document{
		document.New("The same batch submitted twice.", "a"),
	}

	first, err := q.Enqueue(docs)
	require.NoError(t, err)
	second, err := q.Enqueue(docs)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-submitting a live batch should reuse the job")
}

func TestQueue_FailedJobCarriesError(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	id, err := q.Enqueue([]document.Document{
		document.WithID("blank", "   ", "bad"),
	})
	require.NoError(t, err)

	status := waitForJob(t, q, id, JobFailed)
	assert.NotEmpty(t, status.Error)
}

func TestQueue_FailedBatchCanBeResubmitted(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	docs := []document.Document{document.WithID("blank", "  ", "bad")}

	first, err := q.Enqueue(docs)
	require.NoError(t, err)
	waitForJob(t, q, first, JobFailed)

	second, err := q.Enqueue(docs)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "a failed batch should get a fresh job on retry")
}

func TestQueue_BurstBeyondBufferDoesNotStall(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	// More distinct batches than the work channel buffers. Enqueue must not
	// hold the status lock across the channel send, or the worker's own
	// progress updates deadlock against the blocked producer.
	ids := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		id, err := q.Enqueue([]document.Document{
			document.New(fmt.Sprintf("Burst document number %d with enough words to chunk.", i), "burst"),
		})
		require.NoError(t, err)

		// Status must stay responsive while the buffer is saturated.
		_, ok := q.Status(id)
		require.True(t, ok)
		ids = append(ids, id)
	}

	for _, id := range ids {
		waitForJob(t, q, id, JobDone)
	}
}

func TestQueue_EmptyBatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	t.Cleanup(q.Close)

	_, err := q.Enqueue(nil)
	require.Error(t, err)
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	svc, _ := newTestService(t)
	q := NewQueue(svc, nil)
	q.Close()

	_, err := q.Enqueue([]document.Document{document.New("late arrival", "a")})
	require.Error(t, err)
}

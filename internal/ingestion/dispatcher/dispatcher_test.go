package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/docuflow/ai-doc-ingestion/internal/ingestion"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []ingestion.Job
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, body.(ingestion.Job))
	return nil
}

func (f *fakePublisher) jobs() []ingestion.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingestion.Job(nil), f.published...)
}

func testJob(id string) ingestion.Job {
	return ingestion.Job{
		JobID:            id,
		ProblemStatement: "p",
		UserIdeas:        "i",
		UserTechstack:    "t",
		FilePath:         "/shared_data/" + id + ".pdf",
		Status:           ingestion.StatusQueued,
	}
}

func stop(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestDispatchPublishesJob(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Options{Workers: 2, QueueSize: 8}, nil)
	d.Start()

	d.Enqueue(testJob("job-1"))
	stop(t, d)

	jobs := pub.jobs()
	if len(jobs) != 1 {
		t.Fatalf("published %d jobs, want 1", len(jobs))
	}
	if jobs[0].JobID != "job-1" || jobs[0].Status != "queued" {
		t.Errorf("published job = %+v", jobs[0])
	}
}

func TestDispatchFailureWritesDeadLetter(t *testing.T) {
	dir := t.TempDir()
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	d := New(pub, Options{Workers: 1, QueueSize: 8, DeadLetterDir: dir}, nil)
	d.Start()

	d.Enqueue(testJob("job-2"))
	stop(t, d)

	data, err := os.ReadFile(filepath.Join(dir, "job-2.json"))
	if err != nil {
		t.Fatalf("dead letter not written: %v", err)
	}
	var job ingestion.Job
	if err := json.Unmarshal(data, &job); err != nil {
		t.Fatalf("dead letter is not valid JSON: %v", err)
	}
	if job.JobID != "job-2" || job.FilePath != "/shared_data/job-2.pdf" {
		t.Errorf("dead-lettered job = %+v", job)
	}
}

func TestDispatchFailureWithoutDeadLetterDir(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	d := New(pub, Options{Workers: 1, QueueSize: 8}, nil)
	d.Start()

	// Must not panic or block; the loss is only logged.
	d.Enqueue(testJob("job-3"))
	stop(t, d)
}

func TestEnqueueFullQueueDeadLetters(t *testing.T) {
	dir := t.TempDir()
	pub := &fakePublisher{}
	d := New(pub, Options{Workers: 1, QueueSize: 1, DeadLetterDir: dir}, nil)
	// Not started: the queue can only hold one job.

	d.Enqueue(testJob("job-4"))
	d.Enqueue(testJob("job-5"))

	if _, err := os.Stat(filepath.Join(dir, "job-5.json")); err != nil {
		t.Errorf("overflow job was not dead-lettered: %v", err)
	}

	d.Start()
	stop(t, d)
	if got := len(pub.jobs()); got != 1 {
		t.Errorf("published %d jobs, want 1 (the queued one)", got)
	}
}

// A request that outlives its deadline can finish the storage write and hand
// its job over after shutdown has drained the pool; that job must be
// dead-lettered, not panic the process.
func TestEnqueueAfterStopDeadLetters(t *testing.T) {
	dir := t.TempDir()
	pub := &fakePublisher{}
	d := New(pub, Options{Workers: 1, QueueSize: 4, DeadLetterDir: dir}, nil)
	d.Start()
	stop(t, d)

	d.Enqueue(testJob("late-1"))

	data, err := os.ReadFile(filepath.Join(dir, "late-1.json"))
	if err != nil {
		t.Fatalf("late job was not dead-lettered: %v", err)
	}
	var job ingestion.Job
	if err := json.Unmarshal(data, &job); err != nil {
		t.Fatalf("dead letter is not valid JSON: %v", err)
	}
	if job.JobID != "late-1" {
		t.Errorf("dead-lettered job = %+v", job)
	}
	if got := len(pub.jobs()); got != 0 {
		t.Errorf("published %d jobs after Stop, want 0", got)
	}
}

func TestEnqueueAfterStopWithoutDeadLetterDir(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Options{Workers: 1, QueueSize: 4}, nil)
	d.Start()
	stop(t, d)

	// Must not panic; the loss is only logged.
	d.Enqueue(testJob("late-2"))
}

func TestStopDrainsQueue(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Options{Workers: 4, QueueSize: 64}, nil)
	d.Start()

	for i := 0; i < 20; i++ {
		d.Enqueue(testJob("job-" + string(rune('a'+i))))
	}
	stop(t, d)

	if got := len(pub.jobs()); got != 20 {
		t.Errorf("published %d jobs after Stop, want 20", got)
	}
}

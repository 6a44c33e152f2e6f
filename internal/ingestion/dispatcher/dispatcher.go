// Package dispatcher runs deferred broker publishes on a worker pool that is
// detached from the HTTP request lifecycle. The ingest handler hands a job
// over after the response is sent; whatever happens to the publish afterwards
// is never surfaced to the original caller. Failed publishes are logged and
// written to a dead-letter directory so lost jobs can be replayed by an
// operator.
package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docuflow/ai-doc-ingestion/internal/ingestion"
	"github.com/docuflow/ai-doc-ingestion/pkg/metrics"
)

// Publisher sends a serialized job to the broker.
type Publisher interface {
	Publish(ctx context.Context, body any) error
}

// Options controls pool sizing and the dead-letter location.
type Options struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
	DeadLetterDir  string
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 30 * time.Second
	}
}

// Dispatcher owns the deferred publish queue.
type Dispatcher struct {
	publisher Publisher
	opts      Options
	jobs      chan ingestion.Job
	metrics   *metrics.Metrics
	logger    *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a Dispatcher. m may be nil, in which case no metrics are
// recorded.
func New(pub Publisher, opts Options, m *metrics.Metrics) *Dispatcher {
	opts.applyDefaults()
	return &Dispatcher{
		publisher: pub,
		opts:      opts,
		jobs:      make(chan ingestion.Job, opts.QueueSize),
		metrics:   m,
		logger:    slog.Default().With("component", "dispatcher"),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.opts.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Enqueue hands a job to the pool without blocking. A saturated queue is
// treated like a failed publish: the job goes straight to the dead-letter
// directory instead of stalling the caller. The same applies to a job that
// arrives after Stop, which can happen when a timed-out request finishes its
// storage write during shutdown.
func (d *Dispatcher) Enqueue(job ingestion.Job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Error("dispatcher stopped, dead-lettering job", "job_id", job.JobID)
		d.recordFailure(job)
		return
	}
	select {
	case d.jobs <- job:
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.DispatchQueueDepth.Set(float64(len(d.jobs)))
		}
	default:
		d.mu.Unlock()
		d.logger.Error("publish queue full, dead-lettering job", "job_id", job.JobID)
		d.recordFailure(job)
	}
}

// Stop closes the queue and waits for in-flight publishes to drain, bounded
// by ctx. The closed flag is set under the same mutex Enqueue holds while
// sending, so no send can hit the channel after it is closed.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.jobs)
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.publish(job)
		if d.metrics != nil {
			d.metrics.DispatchQueueDepth.Set(float64(len(d.jobs)))
		}
	}
}

// publish runs one deferred publish with its own timeout, deliberately
// decoupled from the originating request's context.
func (d *Dispatcher) publish(job ingestion.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.PublishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, job); err != nil {
		d.logger.Error("failed to publish job",
			"job_id", job.JobID,
			"file_path", job.FilePath,
			"error", err,
		)
		d.recordFailure(job)
		return
	}
	if d.metrics != nil {
		d.metrics.PublishesTotal.WithLabelValues("ok").Inc()
	}
	d.logger.Info("job published", "job_id", job.JobID)
}

// recordFailure counts the loss and writes the serialized job to the
// dead-letter directory so the message can be replayed later. The stored
// document itself stays on the shared volume either way.
func (d *Dispatcher) recordFailure(job ingestion.Job) {
	if d.metrics != nil {
		d.metrics.PublishesTotal.WithLabelValues("error").Inc()
	}
	if d.opts.DeadLetterDir == "" {
		return
	}
	if err := d.writeDeadLetter(job); err != nil {
		d.logger.Error("failed to write dead letter", "job_id", job.JobID, "error", err)
		return
	}
	if d.metrics != nil {
		d.metrics.DeadLettersTotal.Inc()
	}
}

func (d *Dispatcher) writeDeadLetter(job ingestion.Job) error {
	if err := os.MkdirAll(d.opts.DeadLetterDir, 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	path := filepath.Join(d.opts.DeadLetterDir, job.JobID+".json")
	return os.WriteFile(path, payload, 0o644)
}

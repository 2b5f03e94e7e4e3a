package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker polls one Queue and dispatches claimed jobs to a Handler. Multiple
// Workers across multiple processes can poll the same queue concurrently;
// FOR UPDATE SKIP LOCKED in Queue.Claim guarantees each job goes to exactly
// one worker.
type Worker struct {
	id       string
	queue    *Queue
	handler  Handler
	backoff  time.Duration
	poll     time.Duration
	jitter   time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  int64
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a worker bound to queue, dispatching claimed jobs to handler.
func NewWorker(id string, queue *Queue, handler Handler, pollInterval, pollJitter, retryBackoff time.Duration) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		handler:      handler,
		backoff:      retryBackoff,
		poll:         pollInterval,
		jitter:       pollJitter,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "queue", w.queue.name)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error claiming job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.queue.Claim(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "queue", w.queue.name, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, 0)

	if err := w.handler.Handle(ctx, job); err != nil {
		log.Error("job handler failed", "error", err, "attempts", job.Attempts, "max_attempts", job.MaxAttempts)
		if failErr := w.queue.Fail(context.Background(), job, err, w.backoff); failErr != nil {
			return fmt.Errorf("recording job failure: %w", failErr)
		}
	} else {
		if completeErr := w.queue.Complete(context.Background(), job.ID); completeErr != nil {
			return fmt.Errorf("completing job: %w", completeErr)
		}
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	return nil
}

func (w *Worker) pollInterval() time.Duration {
	if w.jitter <= 0 {
		return w.poll
	}
	offset := time.Duration(rand.Int64N(int64(2 * w.jitter)))
	return w.poll - w.jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

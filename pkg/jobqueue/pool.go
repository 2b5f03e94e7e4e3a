package jobqueue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PoolConfig controls how a Pool's workers behave.
type PoolConfig struct {
	WorkerCount         int
	PollInterval        time.Duration
	PollIntervalJitter  time.Duration
	RetryBackoff        time.Duration
	OrphanCheckInterval time.Duration
	OrphanThreshold     time.Duration
	RetentionInterval   time.Duration
	RetentionPeriod     time.Duration
	ShutdownTimeout     time.Duration
}

// Pool runs a fixed number of Workers against one named queue, plus
// background goroutines for orphan recovery and retention cleanup.
// Generalizes the teacher's AlertSession-specific WorkerPool into a
// queue-agnostic one driven entirely by a Handler.
type Pool struct {
	db      *sql.DB
	queue   *Queue
	cfg     PoolConfig
	workers []*Worker

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool builds a Pool of cfg.WorkerCount workers polling queueName,
// dispatching claimed jobs to handler. claimedBy identifies this process in
// the jobs table (pod name, hostname, etc).
func NewPool(db *sql.DB, queueName, claimedBy string, handler Handler, cfg PoolConfig) *Pool {
	q := New(db, queueName, claimedBy)

	workers := make([]*Worker, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		id := fmt.Sprintf("%s-%s-%d", queueName, claimedBy, i)
		workers[i] = NewWorker(id, q, handler, cfg.PollInterval, cfg.PollIntervalJitter, cfg.RetryBackoff)
	}

	return &Pool{
		db:      db,
		queue:   q,
		cfg:     cfg,
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches all workers and the background orphan-recovery/retention
// goroutines.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.Start(ctx)
	}

	if p.cfg.OrphanCheckInterval > 0 {
		p.wg.Add(1)
		go p.runOrphanRecovery(ctx)
	}

	if p.cfg.RetentionInterval > 0 && p.cfg.RetentionPeriod > 0 {
		p.wg.Add(1)
		go p.runRetention(ctx)
	}

	slog.Info("worker pool started", "queue", p.queue.name, "worker_count", len(p.workers))
}

// Stop gracefully stops all workers, waiting up to cfg.ShutdownTimeout for
// in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		for _, w := range p.workers {
			w.Stop()
		}
		p.wg.Wait()
		close(done)
	}()

	timeout := p.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done:
		slog.Info("worker pool stopped cleanly", "queue", p.queue.name)
	case <-time.After(timeout):
		slog.Warn("worker pool shutdown timed out", "queue", p.queue.name, "timeout", timeout)
	}
}

// Health aggregates per-worker health plus DB reachability and pending depth.
func (p *Pool) Health(ctx context.Context) PoolHealth {
	health := PoolHealth{
		QueueName:    p.queue.name,
		TotalWorkers: len(p.workers),
		WorkerStats:  make([]WorkerHealth, 0, len(p.workers)),
	}

	if err := p.db.PingContext(ctx); err != nil {
		health.DBReachable = false
		health.DBError = err.Error()
		return health
	}
	health.DBReachable = true

	pending, err := p.queue.PendingCount(ctx)
	if err == nil {
		health.PendingDepth = pending
	}

	active := 0
	for _, w := range p.workers {
		wh := w.Health()
		health.WorkerStats = append(health.WorkerStats, wh)
		if wh.Status == string(WorkerStatusWorking) {
			active++
		}
	}
	health.ActiveWorkers = active
	health.IsHealthy = true

	return health
}

func (p *Pool) runOrphanRecovery(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.OrphanCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.RecoverOrphans(ctx, p.cfg.OrphanThreshold)
			if err != nil {
				slog.Error("orphan recovery failed", "queue", p.queue.name, "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("recovered orphaned jobs", "queue", p.queue.name, "count", n)
			}
		}
	}
}

func (p *Pool) runRetention(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.Retain(ctx, p.cfg.RetentionPeriod)
			if err != nil {
				slog.Error("job retention cleanup failed", "queue", p.queue.name, "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned up terminal jobs", "queue", p.queue.name, "count", n)
			}
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
)

// ErrStopped is returned by Submit once the orchestrator is shutting down.
var ErrStopped = errors.New("pipeline is stopped")

// Orchestrator feeds queued documents to a fixed pool of goroutines that
// share one Worker.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	stats  *LatencyStats
	log    *slog.Logger
	cfg    config.Config

	mu      sync.RWMutex // guards stopped and sends on queue
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(cfg config.Config, worker *Worker, stats *LatencyStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: worker,
		stats:  stats,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches cfg.WorkerCount document goroutines and the job sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	n := max(o.cfg.WorkerCount, 1)
	o.wg.Add(n)
	for range n {
		go o.run(runCtx)
	}

	o.wg.Add(1)
	go o.sweep(runCtx, sweepInterval(o.cfg.JobTTL))

	o.log.Info("pipeline started", "workers", n, "queue_size", cap(o.queue), "job_ttl", o.cfg.JobTTL)
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			o.worker.Process(ctx, job)
		}
	}
}

// sweep evicts finished jobs older than the TTL.
func (o *Orchestrator) sweep(ctx context.Context, every time.Duration) {
	defer o.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := o.jobs.Len()
			o.jobs.Cleanup()
			if evicted := before - o.jobs.Len(); evicted > 0 {
				o.log.Debug("evicted finished jobs", "count", evicted)
			}
		}
	}
}

// sweepInterval checks four times per TTL, capped at five minutes.
func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every <= 0 || every > 5*time.Minute {
		every = 5 * time.Minute
	}
	return every
}

// Stop cancels in-flight work and waits for the goroutines to exit. Jobs
// still waiting in the queue are marked failed.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	abandoned := 0
	for job := range o.queue {
		job.AddError("pipeline stopped before processing")
		job.SetStatus(StatusFailed, "shutdown")
		job.releaseFileData()
		abandoned++
	}
	o.log.Info("pipeline stopped", "abandoned_jobs", abandoned)
}

// Submit registers the job and queues it. A full queue fails the job
// immediately rather than blocking the caller.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		job.releaseFileData()
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth is the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the latency window, empty when none is configured.
func (o *Orchestrator) Stats() LatencySnapshot {
	if o.stats == nil {
		return LatencySnapshot{ByFormat: map[string]StatsSnapshot{}}
	}
	return o.stats.Snapshot()
}

// Worker returns the shared worker for synchronous requests.
func (o *Orchestrator) Worker() *Worker {
	return o.worker
}

// Package worker runs highlight jobs on a fixed-size pool so a burst of
// uploads cannot start an unbounded number of ffmpeg processes.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is one queued unit of work.
type Job interface {
	ID() string
	Execute(ctx context.Context) error
}

// worker pulls jobs off its own channel after registering it with the
// shared pool.
type worker struct {
	id      int
	pool    chan chan Job
	jobs    chan Job
	quit    chan struct{}
	wg      *sync.WaitGroup
	baseCtx context.Context
	log     *logrus.Entry
}

func (w *worker) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			w.pool <- w.jobs

			select {
			case job := <-w.jobs:
				log := w.log.WithField("job_id", job.ID())
				log.Info("Worker picked up job")
				if err := job.Execute(w.baseCtx); err != nil {
					log.WithError(err).Error("Job failed")
				} else {
					log.Info("Job finished")
				}
			case <-w.quit:
				return
			}
		}
	}()
}

// Dispatcher owns the job queue and the worker pool.
type Dispatcher struct {
	maxWorkers int
	pool       chan chan Job
	queue      chan Job
	workers    []*worker
	quit       chan struct{}
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	log        *logrus.Entry
}

// NewDispatcher builds a dispatcher with maxWorkers workers and a queue
// holding up to queueSize pending jobs.
func NewDispatcher(maxWorkers, queueSize int, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		maxWorkers: maxWorkers,
		pool:       make(chan chan Job, maxWorkers),
		queue:      make(chan Job, queueSize),
		quit:       make(chan struct{}),
		log:        log.WithField("component", "dispatcher"),
	}
}

// Run starts the workers and the dispatch loop. The context is passed to
// every job; cancelling it (or calling Stop) aborts in-flight work.
func (d *Dispatcher) Run(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	for i := 1; i <= d.maxWorkers; i++ {
		w := &worker{
			id:      i,
			pool:    d.pool,
			jobs:    make(chan Job),
			quit:    make(chan struct{}),
			wg:      &d.wg,
			baseCtx: ctx,
			log:     d.log.WithField("worker", i),
		}
		d.workers = append(d.workers, w)
		w.start()
	}

	go d.dispatch()
	d.log.WithField("workers", d.maxWorkers).Info("Dispatcher running")
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.queue:
			// Hand the job to whichever worker frees up first.
			go func(job Job) {
				jobs := <-d.pool
				jobs <- job
			}(job)
		case <-d.quit:
			return
		}
	}
}

// Submit enqueues a job. Returns an error instead of blocking when the
// queue is full so the API can answer 503.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.queue <- job:
		d.log.WithField("job_id", job.ID()).Info("Job queued")
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	close(d.quit)
	if d.cancel != nil {
		d.cancel()
	}
	for _, w := range d.workers {
		close(w.quit)
	}
	d.wg.Wait()
	d.log.Info("Dispatcher stopped")
}

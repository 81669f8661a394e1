// Package tasks runs deferred work (quality scoring, bulk translation jobs)
// on a fixed pool of goroutines fed by a bounded queue.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Func is one unit of background work.
type Func func(ctx context.Context) error

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("task dispatcher closed")
	// ErrQueueFull is returned when the queue has no free slot.
	ErrQueueFull = errors.New("task queue full")
)

var inflight = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "translator_tasks_inflight",
	Help: "Background tasks queued or running.",
})

func init() {
	prometheus.MustRegister(inflight)
}

type task struct {
	name string
	fn   Func
}

// Dispatcher executes submitted tasks. Tasks receive a context that is
// cancelled when Close gives up waiting.
type Dispatcher struct {
	queue chan task
	wg    sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup // delayed submissions not yet queued
	timers  map[*time.Timer]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a dispatcher with the given number of workers and queue size.
func New(workers, queue int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:  make(chan task, queue),
		timers: make(map[*time.Timer]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	defer inflight.Dec()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", t.name).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := t.fn(d.ctx); err != nil {
		log.Error().Err(err).Str("task", t.name).Msg("task failed")
	}
}

// Submit queues fn without blocking.
func (d *Dispatcher) Submit(name string, fn Func) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- task{name: name, fn: fn}:
		inflight.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitAfter queues fn once delay has elapsed. Delayed tasks that have not
// fired when Close is called are dropped.
func (d *Dispatcher) SubmitAfter(name string, delay time.Duration, fn Func) error {
	if delay <= 0 {
		return d.Submit(name, fn)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.pending.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, t)
		d.mu.Unlock()
		d.fire(name, fn)
	})
	d.timers[t] = struct{}{}
	return nil
}

func (d *Dispatcher) fire(name string, fn Func) {
	defer d.pending.Done()
	select {
	case d.queue <- task{name: name, fn: fn}:
		inflight.Inc()
	case <-d.ctx.Done():
		log.Warn().Str("task", name).Msg("dropping delayed task on shutdown")
	}
}

// Close stops accepting work, drops unfired delayed tasks and waits for the
// workers to drain the queue. When ctx expires first, running tasks are
// cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for t := range d.timers {
		if t.Stop() {
			delete(d.timers, t)
			d.pending.Done()
			log.Debug().Msg("delayed task cancelled on shutdown")
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(d.queue)
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

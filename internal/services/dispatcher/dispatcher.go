package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NordCoder/tifi/internal/domain/delivery"
	"github.com/NordCoder/tifi/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	mScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tifi_dispatch_tasks_scheduled_total", Help: "Detached tasks accepted for execution.",
	}, []string{"task"})
	mFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tifi_dispatch_tasks_failed_total", Help: "Detached tasks that returned an error or panicked.",
	}, []string{"task"})
	mDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tifi_dispatch_tasks_dropped_total", Help: "Held tasks discarded because their transaction rolled back.",
	}, []string{"task"})
	mOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tifi_dispatch_queue_overflow_total", Help: "Tasks run outside the pool because the queue was full.",
	})
	mTaskDur = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "tifi_dispatch_task_duration_seconds", Help: "Detached task duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
)

type Options struct {
	Workers   int
	QueueSize int
	// RatePerSec limits task starts across all workers; 0 disables it.
	RatePerSec float64
	Burst      int
}

type task struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher runs detached tasks on a worker pool. Callers never wait for a
// task and never learn its outcome.
type Dispatcher struct {
	log     *zap.Logger
	queue   chan task
	workers int
	limiter *rate.Limiter

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	extra   sync.WaitGroup
}

func New(log *zap.Logger, o Options) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	var lim *rate.Limiter
	if o.RatePerSec > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RatePerSec), burst)
	}
	return &Dispatcher{
		log:     log.With(zap.String("component", "dispatcher")),
		queue:   make(chan task, o.QueueSize),
		workers: o.Workers,
		limiter: lim,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.log.Info("dispatcher started", zap.Int("workers", d.workers), zap.Int("queue", cap(d.queue)))
}

// Go hands fn off for detached execution and returns at once.
// The task context keeps ctx values (trace, logger fields) but not its cancellation.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	t := task{ctx: context.WithoutCancel(ctx), name: name, fn: fn}
	if tasks := tasksFrom(ctx); tasks != nil && tasks.add(t) {
		mScheduled.WithLabelValues(name).Inc()
		return
	}
	d.submit(t)
}

// Schedule queues one email send. The request is not validated here; a bad
// recipient fails later inside send and only shows up in logs and metrics.
func (d *Dispatcher) Schedule(ctx context.Context, send delivery.SendFunc, req delivery.Request) {
	d.Go(ctx, "email:"+string(req.Template), func(ctx context.Context) error {
		return send(ctx, req)
	})
}

// Flush submits every task collected for one request. The list is sealed:
// later Go calls carrying the same context bypass it and submit directly.
func (d *Dispatcher) Flush(tasks *Tasks) {
	items := tasks.drain()
	if len(items) > 0 {
		d.log.Debug("flushing request tasks", zap.Int("count", len(items)))
	}
	for _, t := range items {
		d.enqueue(t)
	}
}

// Hold collects the tasks scheduled under the returned context until release
// is called. release(true) passes them on as if they had been scheduled with
// ctx; release(false) drops them. Used around transactions so a rollback
// takes its side effects with it.
func (d *Dispatcher) Hold(ctx context.Context) (context.Context, func(keep bool)) {
	held, tasks := WithTasks(ctx)
	var once sync.Once
	return held, func(keep bool) {
		once.Do(func() {
			items := tasks.drain()
			if !keep {
				for _, t := range items {
					mDropped.WithLabelValues(t.name).Inc()
				}
				if len(items) > 0 {
					obs.WithTrace(ctx, d.log).Debug("dropped held tasks", zap.Int("count", len(items)))
				}
				return
			}
			outer := tasksFrom(ctx)
			for _, t := range items {
				if outer != nil && outer.add(t) {
					continue
				}
				d.enqueue(t)
			}
		})
	}
}

func (d *Dispatcher) submit(t task) {
	mScheduled.WithLabelValues(t.name).Inc()
	d.enqueue(t)
}

func (d *Dispatcher) enqueue(t task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		// Shutdown may already be waiting on extra, so this one runs untracked.
		go d.run(t)
		return
	}
	if d.started {
		select {
		case d.queue <- t:
			return
		default:
			mOverflow.Inc()
		}
	}
	// Add happens under the read lock, before Shutdown can take the write lock and Wait.
	d.extra.Add(1)
	go func() {
		defer d.extra.Done()
		d.run(t)
	}()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for t := range d.queue {
		if d.limiter != nil {
			// after ctx is done Wait fails fast and the rest of the queue drains unthrottled
			_ = d.limiter.Wait(ctx)
		}
		d.run(t)
	}
	log.Debug("worker stopped")
}

func (d *Dispatcher) run(t task) {
	tr := otel.Tracer("dispatcher")
	ctx, span := tr.Start(t.ctx, "dispatch.task", trace.WithAttributes(attribute.String("task", t.name)))
	defer span.End()

	start := time.Now()
	err := safeCall(ctx, t.fn)
	mTaskDur.WithLabelValues(t.name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		mFailed.WithLabelValues(t.name).Inc()
		obs.WithTrace(ctx, d.log).Warn("detached task failed",
			zap.String("task", t.name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	obs.WithTrace(ctx, d.log).Debug("detached task done",
		zap.String("task", t.name), zap.Duration("elapsed", time.Since(start)))
}

func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Shutdown stops accepting pool work and waits for queued tasks until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		d.extra.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("dispatcher drained")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("dispatcher shutdown: tasks still running"), ctx.Err())
	}
}

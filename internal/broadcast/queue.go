package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

// Task is a unit of deferred work executed by the Queue. Tasks must be
// safe to re-invoke wholesale: retry runs the whole task again, it does
// not resume partial work.
type Task func(ctx context.Context) error

// QueueConfig configures pacing and retry. All fields are read once at
// construction.
type QueueConfig struct {
	// MaxPerSecond caps the dispatch rate; the minimum gap between two
	// task starts is 1s / MaxPerSecond.
	MaxPerSecond float64
	// RetryAttempts is the number of additional attempts beyond the
	// first for throttled and server-error failures.
	RetryAttempts int
	// RetryDelay is the base for linear backoff (delay = RetryDelay * attempt).
	RetryDelay time.Duration
}

func (c QueueConfig) validate() error {
	if c.MaxPerSecond <= 0 {
		return errors.New("queue: max_per_second must be positive")
	}
	if c.RetryAttempts < 0 {
		return errors.New("queue: retry_attempts must not be negative")
	}
	if c.RetryDelay <= 0 {
		return errors.New("queue: retry_delay must be positive")
	}
	return nil
}

// Pending is the handle for a submitted task. It resolves once the task
// has run to its terminal outcome (including retries).
type Pending struct {
	done chan error
}

func (p *Pending) resolve(err error) {
	p.done <- err
	close(p.done)
}

// Done returns a channel that receives the task's terminal outcome.
func (p *Pending) Done() <-chan error { return p.done }

// Wait blocks until the task settles or ctx is cancelled.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type queued struct {
	ctx  context.Context
	task Task
	p    *Pending
}

// Queue executes submitted tasks strictly FIFO, one at a time, paced to
// the configured rate. Exactly one drain goroutine is active while
// tasks remain queued; it exits when the queue empties and a later
// Submit starts a fresh one.
type Queue struct {
	cfg  QueueConfig
	log  logx.Logger
	pace *rate.Limiter

	mu       sync.Mutex
	tasks    []*queued
	draining bool
}

func NewQueue(cfg QueueConfig, log logx.Logger) (*Queue, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Queue{
		cfg: cfg,
		log: log,
		// Burst 1 makes Wait enforce the minimum inter-dispatch gap
		// against the previous dispatch start.
		pace: rate.NewLimiter(rate.Limit(cfg.MaxPerSecond), 1),
	}, nil
}

// Submit enqueues task and returns its Pending handle. If no drain
// loop is active one is started; otherwise the task just joins the
// queue.
func (q *Queue) Submit(ctx context.Context, task Task) *Pending {
	p := &Pending{done: make(chan error, 1)}
	q.mu.Lock()
	q.tasks = append(q.tasks, &queued{ctx: ctx, task: task, p: p})
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	q.mu.Unlock()
	return p
}

// Len reports the number of not-yet-started tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Clear discards all not-yet-started tasks and reports how many were
// dropped. The task currently executing runs to completion.
//
// API contract: Pending handles of discarded tasks are abandoned and
// never resolve. Callers must treat Clear as best-effort cancellation,
// not a rejection guarantee, and bound their own Wait with a context.
func (q *Queue) Clear() int {
	q.mu.Lock()
	n := len(q.tasks)
	q.tasks = nil
	q.mu.Unlock()
	if n > 0 {
		q.log.Info("task queue cleared", logx.Int("dropped", n))
	}
	return n
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		if err := q.pace.Wait(item.ctx); err != nil {
			item.p.resolve(err)
			continue
		}
		item.p.resolve(q.runWithRetry(item.ctx, item.task))
	}
}

// runWithRetry executes one task, retrying throttled and server-error
// failures up to RetryAttempts extra times. Any other failure is
// terminal immediately.
func (q *Queue) runWithRetry(ctx context.Context, task Task) error {
	for attempt := 1; ; attempt++ {
		err := task(ctx)
		if err == nil {
			return nil
		}
		if attempt > q.cfg.RetryAttempts {
			return err
		}

		var wait time.Duration
		switch transport.KindOf(err) {
		case transport.ErrRateLimited:
			if hint, ok := transport.RetryAfterOf(err); ok {
				wait = hint
			} else {
				wait = q.cfg.RetryDelay * time.Duration(attempt)
			}
		case transport.ErrServer:
			wait = q.cfg.RetryDelay * time.Duration(attempt)
		default:
			return err
		}

		q.log.Warn("task failed, retrying",
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", q.cfg.RetryAttempts),
			logx.Duration("delay", wait),
			logx.Err(err))
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
}

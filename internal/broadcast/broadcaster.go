package broadcast

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

// Config configures one Broadcaster. Read once at construction.
type Config struct {
	// BatchSize bounds how many send tasks are submitted to the queue
	// per wave. Batches bound submission backpressure; the queue still
	// executes tasks one at a time at the configured rate.
	BatchSize int
	Queue     QueueConfig
}

func (c Config) validate() error {
	if c.BatchSize <= 0 {
		return errors.New("broadcast: batch_size must be positive")
	}
	return c.Queue.validate()
}

// Broadcaster fans one message out to all subscribed recipients.
type Broadcaster struct {
	cfg    Config
	sender Sender
	store  SubscriberStore
	queue  *Queue
	log    logx.Logger
}

// New builds a Broadcaster owning its rate-limiting Queue. The Queue is
// deliberately per-Broadcaster: it is the rate-limiting boundary for
// every broadcast this instance runs.
func New(cfg Config, sender Sender, store SubscriberStore, log logx.Logger) (*Broadcaster, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	q, err := NewQueue(cfg.Queue, log)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{cfg: cfg, sender: sender, store: store, queue: q, log: log}, nil
}

// Queue exposes the owned queue for diagnostics (length, clearing).
func (b *Broadcaster) Queue() *Queue { return b.queue }

// Send broadcasts req to a point-in-time snapshot of the subscriber
// list. Subscribers added or removed mid-broadcast are not reconciled.
//
// Per-recipient failures are absorbed into the Result; the only error
// Send itself returns is a failure to fetch the snapshot.
func (b *Broadcaster) Send(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	recipients, err := b.store.ListSubscribed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	res := &Result{
		ID:              uuid.NewString(),
		TotalRecipients: len(recipients),
		Errors:          map[transport.ErrorKind]int{},
	}
	b.log.Info("broadcast started",
		logx.String("broadcast", res.ID),
		logx.Int("recipients", res.TotalRecipients),
		logx.Int("batch_size", b.cfg.BatchSize))

	unsubscribed := make(map[int64]bool)
	for batch := range slices.Chunk(recipients, b.cfg.BatchSize) {
		pending := make([]*Pending, len(batch))
		for i, r := range batch {
			pending[i] = b.queue.Submit(ctx, b.sendTask(r, req))
		}
		// Settle every task in the wave; one recipient's failure never
		// short-circuits the rest.
		for i, p := range pending {
			b.record(ctx, res, batch[i], p.Wait(ctx), unsubscribed)
		}
	}

	res.Duration = time.Since(start)

	// Audit write is best-effort: the caller gets the aggregate either way.
	if err := b.store.LogBroadcast(ctx, AuditRecord{
		ID:       res.ID,
		Message:  req.Message,
		Total:    res.TotalRecipients,
		Success:  res.SuccessCount,
		Failure:  res.FailureCount,
		Errors:   res.Errors,
		Duration: res.Duration,
	}); err != nil {
		b.log.Warn("broadcast audit write failed", logx.String("broadcast", res.ID), logx.Err(err))
	}

	fields := []logx.Field{
		logx.String("broadcast", res.ID),
		logx.Int("total", res.TotalRecipients),
		logx.Int("success", res.SuccessCount),
		logx.Int("failure", res.FailureCount),
		logx.Duration("dur", res.Duration),
	}
	if res.FailureCount > 0 {
		b.log.Warn("broadcast finished with failures", fields...)
	} else {
		b.log.Info("broadcast finished", fields...)
	}
	return res, nil
}

func (b *Broadcaster) sendTask(r Recipient, req Request) Task {
	return func(ctx context.Context) error {
		opt := &transport.SendOptions{
			ParseMode:      req.ParseMode,
			DisablePreview: req.DisablePreview,
			ReplyMarkup:    req.ReplyMarkup,
		}
		_, err := b.sender.SendText(ctx, transport.ChatTarget{ChatID: r.ChatID}, req.Message, opt)
		return err
	}
}

// record tallies one settled outcome and runs the unsubscribe side
// effect for recipients that blocked the bot (once per recipient per
// broadcast, best-effort).
func (b *Broadcaster) record(ctx context.Context, res *Result, r Recipient, err error, unsubscribed map[int64]bool) {
	if err == nil {
		res.SuccessCount++
		return
	}

	kind := transport.KindOf(err)
	res.FailureCount++
	res.Errors[kind]++
	b.log.Debug("broadcast send failed",
		logx.String("broadcast", res.ID),
		logx.Int64("chat_id", r.ChatID),
		logx.String("kind", string(kind)),
		logx.Err(err))

	if kind != transport.ErrBlocked || unsubscribed[r.ChatID] {
		return
	}
	unsubscribed[r.ChatID] = true
	if uerr := b.store.Unsubscribe(ctx, r.ChatID); uerr != nil {
		// The recipient stays subscribed and will fail again next
		// broadcast; eventually-consistent cleanup, not transactional.
		b.log.Warn("unsubscribe failed", logx.Int64("chat_id", r.ChatID), logx.Err(uerr))
		return
	}
	b.log.Info("recipient unsubscribed (blocked bot)", logx.Int64("chat_id", r.ChatID))
}

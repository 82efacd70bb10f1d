package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

func fastQueue(t *testing.T, cfg QueueConfig) *Queue {
	t.Helper()
	q, err := NewQueue(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("NewQueue error: %v", err)
	}
	return q
}

func TestQueueConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  QueueConfig
	}{
		{name: "zero rate", cfg: QueueConfig{MaxPerSecond: 0, RetryAttempts: 1, RetryDelay: time.Second}},
		{name: "negative retries", cfg: QueueConfig{MaxPerSecond: 10, RetryAttempts: -1, RetryDelay: time.Second}},
		{name: "zero delay", cfg: QueueConfig{MaxPerSecond: 10, RetryAttempts: 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewQueue(tt.cfg, logx.Nop()); err == nil {
				t.Fatalf("expected error for %+v", tt.cfg)
			}
		})
	}
}

func TestQueueRunsTasksInSubmissionOrder(t *testing.T) {
	t.Parallel()
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 0, RetryDelay: time.Millisecond})

	var mu sync.Mutex
	var order []int
	pending := make([]*Pending, 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		pending = append(pending, q.Submit(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for i, p := range pending {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d (full order %v)", i, got, i, order)
		}
	}
}

func TestQueueEnforcesMinimumGap(t *testing.T) {
	t.Parallel()
	// 50 tasks/s gives a 20ms floor between dispatch starts; five tasks
	// cannot finish in under 4 gaps.
	q := fastQueue(t, QueueConfig{MaxPerSecond: 50, RetryAttempts: 0, RetryDelay: time.Millisecond})

	start := time.Now()
	pending := make([]*Pending, 0, 5)
	for i := 0; i < 5; i++ {
		pending = append(pending, q.Submit(context.Background(), func(ctx context.Context) error { return nil }))
	}
	for _, p := range pending {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Fatalf("five tasks drained in %v, want at least ~80ms of pacing", elapsed)
	}
}

func TestQueueRetriesUpToConfiguredAttempts(t *testing.T) {
	t.Parallel()
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 3, RetryDelay: time.Millisecond})

	var calls int
	serr := &transport.SendError{Kind: transport.ErrServer, Code: 502}
	err := q.Submit(context.Background(), func(ctx context.Context) error {
		calls++
		return serr
	}).Wait(context.Background())

	if !errors.Is(err, serr) {
		t.Fatalf("terminal error = %v, want the send error", err)
	}
	// First attempt plus three retries.
	if calls != 4 {
		t.Fatalf("task invoked %d times, want 4", calls)
	}
}

func TestQueueRecoversMidRetry(t *testing.T) {
	t.Parallel()
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 3, RetryDelay: time.Millisecond})

	var calls int
	err := q.Submit(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &transport.SendError{Kind: transport.ErrServer, Code: 500}
		}
		return nil
	}).Wait(context.Background())

	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if calls != 3 {
		t.Fatalf("task invoked %d times, want 3", calls)
	}
}

func TestQueueDoesNotRetryTerminalFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{name: "blocked", err: &transport.SendError{Kind: transport.ErrBlocked, Code: 403}},
		{name: "bad request", err: &transport.SendError{Kind: transport.ErrBadRequest, Code: 400}},
		{name: "untagged", err: errors.New("boom")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 3, RetryDelay: time.Millisecond})
			var calls int
			err := q.Submit(context.Background(), func(ctx context.Context) error {
				calls++
				return tt.err
			}).Wait(context.Background())
			if !errors.Is(err, tt.err) {
				t.Fatalf("terminal error = %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Fatalf("task invoked %d times, want 1", calls)
			}
		})
	}
}

func TestQueueHonorsRetryAfterHint(t *testing.T) {
	t.Parallel()
	// A large base delay would blow the deadline below if the provider
	// hint were ignored.
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 1, RetryDelay: 5 * time.Second})

	var calls int
	start := time.Now()
	err := q.Submit(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &transport.SendError{Kind: transport.ErrRateLimited, Code: 429, RetryAfter: 20 * time.Millisecond}
		}
		return nil
	}).Wait(context.Background())

	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if calls != 2 {
		t.Fatalf("task invoked %d times, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retry took %v, hint was not honored", elapsed)
	}
}

func TestQueueClearDropsQueuedTasks(t *testing.T) {
	t.Parallel()
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 0, RetryDelay: time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	blocker := q.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	for i := 0; i < 3; i++ {
		q.Submit(context.Background(), func(ctx context.Context) error { return nil })
	}
	if got := q.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	if dropped := q.Clear(); dropped != 3 {
		t.Fatalf("Clear dropped %d, want 3", dropped)
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len after Clear = %d, want 0", got)
	}

	// The in-flight task is unaffected.
	close(release)
	if err := blocker.Wait(context.Background()); err != nil {
		t.Fatalf("in-flight task: %v", err)
	}
}

func TestQueueResolvesCancelledSubmissions(t *testing.T) {
	t.Parallel()
	q := fastQueue(t, QueueConfig{MaxPerSecond: 5000, RetryAttempts: 0, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran bool
	err := q.Submit(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	}).Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatal("task ran despite cancelled context")
	}
}

package broadcast

import (
	"context"
	"time"

	"dealbot/internal/transport"
)

// Recipient is one addressable subscriber, immutable for the duration
// of a broadcast.
type Recipient struct {
	ChatID   int64
	Language string
}

// Request describes one broadcast. Immutable once submitted.
type Request struct {
	Message        string
	ParseMode      string
	DisablePreview bool
	ReplyMarkup    any
}

// Result is the aggregate outcome of one broadcast. It is finalized
// when every recipient's outcome has been collected and is never
// mutated afterwards.
type Result struct {
	ID              string
	TotalRecipients int
	SuccessCount    int
	FailureCount    int
	Errors          map[transport.ErrorKind]int
	Duration        time.Duration
}

// AuditRecord is the write-once summary persisted per broadcast.
type AuditRecord struct {
	ID       string
	Message  string
	Total    int
	Success  int
	Failure  int
	Errors   map[transport.ErrorKind]int
	Duration time.Duration
}

// Sender is the transport primitive the broadcaster needs. The full
// transport.Adapter satisfies it.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// SubscriberStore is the persistence surface consumed by the
// broadcaster. Unsubscribe and LogBroadcast are best-effort from the
// broadcaster's point of view; their failures are logged, never
// escalated.
type SubscriberStore interface {
	ListSubscribed(ctx context.Context) ([]Recipient, error)
	Unsubscribe(ctx context.Context, chatID int64) error
	LogBroadcast(ctx context.Context, rec AuditRecord) error
}

package storage

import (
	"context"
	"time"
)

// Store is the persistence API used by the bot, the broadcaster, and
// the scheduler.
type Store interface {
	UpsertUser(ctx context.Context, chatID int64, username string) error
	GetUser(ctx context.Context, chatID int64) (User, bool, error)
	SetLanguage(ctx context.Context, chatID int64, lang string) error
	SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error
	ListSubscribed(ctx context.Context) ([]User, error)

	AddCartItem(ctx context.Context, chatID int64, productURL, title string, price float64) (int64, error)
	ListCartItems(ctx context.Context, chatID int64) ([]CartItem, error)
	UpdateCartPrice(ctx context.Context, itemID int64, price float64) error

	CreateAlert(ctx context.Context, chatID int64, keyword string) (int64, error)
	ListAlerts(ctx context.Context, chatID int64) ([]Alert, error)
	ListActiveAlerts(ctx context.Context) ([]Alert, error)
	DeactivateAlert(ctx context.Context, alertID int64) error

	AppendBroadcastLog(ctx context.Context, e BroadcastLog) error
	GetStats(ctx context.Context) (Stats, error)
	PruneInactive(ctx context.Context, olderThan time.Duration) (int64, error)

	Close() error
}

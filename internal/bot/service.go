// Package bot routes incoming chat updates to command handlers.
package bot

import (
	"context"
	"sync"

	"dealbot/internal/affiliate"
	"dealbot/internal/alerts"
	"dealbot/internal/broadcast"
	"dealbot/internal/cart"
	"dealbot/internal/i18n"
	"dealbot/internal/storage"
	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

type Config struct {
	AdminUserIDs    []int64
	DefaultLanguage string
}

type Service struct {
	cfg     Config
	adapter transport.Adapter
	store   storage.Store
	bcast   *broadcast.Broadcaster
	aff     *affiliate.Service
	carts   *cart.Service
	alerts  *alerts.Service
	log     logx.Logger

	mu sync.Mutex
	// pendingBroadcasts holds, per admin chat, a broadcast message
	// awaiting inline confirmation.
	pendingBroadcasts map[int64]string
	// lastProduct remembers the last converted product URL per chat so
	// the "add to cart" button can reference it (callback payloads are
	// too small for full URLs).
	lastProduct map[int64]string
}

func New(cfg Config, adapter transport.Adapter, store storage.Store, bcast *broadcast.Broadcaster,
	aff *affiliate.Service, carts *cart.Service, al *alerts.Service, log logx.Logger) *Service {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = i18n.DefaultLang
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:               cfg,
		adapter:           adapter,
		store:             store,
		bcast:             bcast,
		aff:               aff,
		carts:             carts,
		alerts:            al,
		log:               log,
		pendingBroadcasts: map[int64]string{},
		lastProduct:       map[int64]string{},
	}
}

// Run starts the transport and processes updates until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	updates := make(chan transport.Update, 256)
	if err := s.adapter.Start(ctx, updates); err != nil {
		return err
	}
	defer func() { _ = s.adapter.Stop(context.Background()) }()

	if mu, ok := s.adapter.(transport.CommandMenuUpdater); ok {
		if err := mu.UpdateMenuCommands(ctx, menuCommands()); err != nil {
			s.log.Warn("command menu update failed", logx.Err(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case up := <-updates:
			s.handle(ctx, up)
		}
	}
}

func (s *Service) handle(ctx context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			s.handleMessage(ctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			s.handleCallback(ctx, up.Callback)
		}
	}
}

func menuCommands() []transport.BotCommand {
	return []transport.BotCommand{
		{Command: "/start", Description: "Start the bot"},
		{Command: "/language", Description: "Change language"},
		{Command: "/cart", Description: "View tracked products"},
		{Command: "/alert", Description: "Set a keyword alert"},
		{Command: "/my_alerts", Description: "List your alerts"},
		{Command: "/help", Description: "Show help"},
	}
}

func (s *Service) isAdmin(userID int64) bool {
	for _, id := range s.cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// userLang resolves the user's preferred language, falling back to the
// configured default.
func (s *Service) userLang(ctx context.Context, chatID int64) string {
	u, ok, err := s.store.GetUser(ctx, chatID)
	if err != nil || !ok || u.Language == "" {
		return s.cfg.DefaultLanguage
	}
	return u.Language
}

func (s *Service) reply(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) {
	if opt == nil {
		opt = &transport.SendOptions{DisablePreview: true}
	}
	if _, err := s.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		s.log.Warn("reply failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

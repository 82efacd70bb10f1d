// Package scheduler runs dealbot's periodic jobs: cart price checks
// and inactive-user cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"dealbot/internal/cart"
	"dealbot/internal/i18n"
	"dealbot/internal/storage"
	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

type Config struct {
	// Cron specs (standard 5-field). Zero values get defaults.
	CartCheckSpec string // default "0 */6 * * *"
	CleanupSpec   string // default "0 0 * * 0"
	// InactiveAfter is how long an unsubscribed user may stay unseen
	// before the weekly cleanup removes them.
	InactiveAfter time.Duration // default 90 days
}

type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Service struct {
	cfg    Config
	store  storage.Store
	carts  *cart.Service
	sender Sender
	log    logx.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, store storage.Store, carts *cart.Service, sender Sender, log logx.Logger) *Service {
	if cfg.CartCheckSpec == "" {
		cfg.CartCheckSpec = "0 */6 * * *"
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = "0 0 * * 0"
	}
	if cfg.InactiveAfter <= 0 {
		cfg.InactiveAfter = 90 * 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, carts: carts, sender: sender, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.cfg.CartCheckSpec, func() { s.runCartPriceCheck(s.ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() { s.runCleanup(s.ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduled jobs started",
		logx.String("cart_check", s.cfg.CartCheckSpec),
		logx.String("cleanup", s.cfg.CleanupSpec))
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.log.Info("scheduled jobs stopped")
}

// runCartPriceCheck walks every subscribed user's cart and notifies
// them about price moves. Per-user failures are isolated.
func (s *Service) runCartPriceCheck(ctx context.Context) {
	start := time.Now()
	s.log.Info("cart price check started")

	users, err := s.store.ListSubscribed(ctx)
	if err != nil {
		s.log.Error("cart price check: listing users failed", logx.Err(err))
		return
	}

	notified := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		changes, err := s.carts.CheckPriceChanges(ctx, u.ChatID)
		if err != nil {
			s.log.Warn("cart check failed for user", logx.Int64("chat_id", u.ChatID), logx.Err(err))
			continue
		}
		lang := u.Language
		if lang == "" {
			lang = i18n.DefaultLang
		}
		for _, c := range changes {
			msg := cart.FormatPriceChange(c, lang)
			if _, err := s.sender.SendText(ctx, transport.ChatTarget{ChatID: u.ChatID}, msg, &transport.SendOptions{DisablePreview: true}); err != nil {
				s.log.Warn("price alert send failed", logx.Int64("chat_id", u.ChatID), logx.Err(err))
				continue
			}
			notified++
		}
	}
	s.log.Info("cart price check finished",
		logx.Int("users", len(users)),
		logx.Int("alerts_sent", notified),
		logx.Duration("dur", time.Since(start)))
}

func (s *Service) runCleanup(ctx context.Context) {
	n, err := s.store.PruneInactive(ctx, s.cfg.InactiveAfter)
	if err != nil {
		s.log.Error("inactive user cleanup failed", logx.Err(err))
		return
	}
	s.log.Info("inactive user cleanup finished", logx.Int64("removed", n))
}

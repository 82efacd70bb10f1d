// Package alerts manages keyword deal alerts.
package alerts

import (
	"context"
	"errors"
	"strings"

	"dealbot/internal/storage"
	"dealbot/pkg/logx"
)

var ErrEmptyKeyword = errors.New("alerts: keyword is empty")

type Service struct {
	store storage.Store
	log   logx.Logger
}

func New(store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, chatID int64, keyword string) (int64, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return 0, ErrEmptyKeyword
	}
	id, err := s.store.CreateAlert(ctx, chatID, keyword)
	if err != nil {
		return 0, err
	}
	s.log.Info("alert created", logx.Int64("chat_id", chatID), logx.String("keyword", keyword))
	return id, nil
}

func (s *Service) List(ctx context.Context, chatID int64) ([]storage.Alert, error) {
	return s.store.ListAlerts(ctx, chatID)
}

func (s *Service) Deactivate(ctx context.Context, alertID int64) error {
	if err := s.store.DeactivateAlert(ctx, alertID); err != nil {
		return err
	}
	s.log.Info("alert deactivated", logx.Int64("alert", alertID))
	return nil
}

// MatchDeal returns every active alert whose keyword appears in the
// deal title (case-insensitive).
func (s *Service) MatchDeal(ctx context.Context, title string) ([]storage.Alert, error) {
	active, err := s.store.ListActiveAlerts(ctx)
	if err != nil {
		return nil, err
	}
	title = strings.ToLower(title)
	var matched []storage.Alert
	for _, a := range active {
		if strings.Contains(title, a.Keyword) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

package bot

import (
	"context"
	"encoding/json"

	"dealbot/internal/broadcast"
	"dealbot/internal/storage"
)

// StoreBridge adapts storage.Store to the broadcaster's narrow
// persistence contract.
type StoreBridge struct {
	Store storage.Store
}

var _ broadcast.SubscriberStore = StoreBridge{}

func (b StoreBridge) ListSubscribed(ctx context.Context) ([]broadcast.Recipient, error) {
	users, err := b.Store.ListSubscribed(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]broadcast.Recipient, len(users))
	for i, u := range users {
		recipients[i] = broadcast.Recipient{ChatID: u.ChatID, Language: u.Language}
	}
	return recipients, nil
}

func (b StoreBridge) Unsubscribe(ctx context.Context, chatID int64) error {
	return b.Store.SetSubscribed(ctx, chatID, false)
}

func (b StoreBridge) LogBroadcast(ctx context.Context, rec broadcast.AuditRecord) error {
	errsJSON := ""
	if len(rec.Errors) > 0 {
		if raw, err := json.Marshal(rec.Errors); err == nil {
			errsJSON = string(raw)
		}
	}
	return b.Store.AppendBroadcastLog(ctx, storage.BroadcastLog{
		BroadcastID: rec.ID,
		Message:     rec.Message,
		Total:       rec.Total,
		Success:     rec.Success,
		Failure:     rec.Failure,
		ErrorsJSON:  errsJSON,
		TookMS:      rec.Duration.Milliseconds(),
	})
}

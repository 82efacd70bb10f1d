package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dealbot/internal/affiliate"
	"dealbot/internal/alerts"
	"dealbot/internal/broadcast"
	"dealbot/internal/cart"
	"dealbot/internal/storage"
	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

type fakeSent struct {
	chatID int64
	text   string
}

type fakeAdapter struct {
	mu   sync.Mutex
	sent []fakeSent
	// gate blocks SendText for the listed chats until the channel is
	// closed; used to keep a broadcast in flight.
	gate map[int64]chan struct{}
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	ch := f.gate[to.ChatID]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	f.mu.Lock()
	f.sent = append(f.sent, fakeSent{chatID: to.ChatID, text: text})
	n := len(f.sent)
	f.mu.Unlock()
	return transport.MessageRef{ChatID: to.ChatID, MessageID: n}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	return nil
}

func (f *fakeAdapter) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

// fakeBotStore overrides only the methods the tested paths touch; the
// embedded interface panics on anything else.
type fakeBotStore struct {
	storage.Store
	active     []storage.Alert
	subscribed []storage.User
}

func (f *fakeBotStore) GetUser(ctx context.Context, chatID int64) (storage.User, bool, error) {
	return storage.User{ChatID: chatID, Language: "en", Subscribed: true}, true, nil
}

func (f *fakeBotStore) ListActiveAlerts(ctx context.Context) ([]storage.Alert, error) {
	return f.active, nil
}

func (f *fakeBotStore) ListSubscribed(ctx context.Context) ([]storage.User, error) {
	return f.subscribed, nil
}

func (f *fakeBotStore) AppendBroadcastLog(ctx context.Context, e storage.BroadcastLog) error {
	return nil
}

func affiliateTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "aliexpress.affiliate.link.generate":
			w.Write([]byte(`{
				"aliexpress_affiliate_link_generate_response": {
					"resp_result": {"result": {
						"commission_rate": 5,
						"promotion_links": {"promotion_link": [{"promotion_url": "https://s.click.aliexpress.com/e/_deal"}]}
					}}
				}
			}`))
		case "aliexpress.affiliate.productdetail.get":
			w.Write([]byte(`{
				"aliexpress_affiliate_productdetail_get_response": {
					"resp_result": {"result": {"products": {"product": [{
						"product_title": "USB-C Cable",
						"sale_price": "9.99",
						"product_main_image_url": "https://img.example/p.jpg"
					}]}}}
				}
			}`))
		default:
			t.Errorf("unexpected api method %q", r.URL.Query().Get("method"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, adapter *fakeAdapter, store *fakeBotStore, baseURL string) *Service {
	t.Helper()
	log := logx.Nop()
	aff := affiliate.New(affiliate.Config{AppKey: "k", AppSecret: "s", TrackingID: "tg", BaseURL: baseURL}, log)
	bcast, err := broadcast.New(broadcast.Config{
		BatchSize: 50,
		Queue: broadcast.QueueConfig{
			MaxPerSecond:  5000,
			RetryAttempts: 0,
			RetryDelay:    time.Millisecond,
		},
	}, adapter, StoreBridge{Store: store}, log)
	if err != nil {
		t.Fatalf("broadcast.New: %v", err)
	}
	return New(Config{AdminUserIDs: []int64{1}, DefaultLanguage: "en"},
		adapter, store, bcast, aff, cart.New(store, aff, log), alerts.New(store, log), log)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestProductLinkNotifiesMatchingAlerts(t *testing.T) {
	t.Parallel()
	srv := affiliateTestServer(t)
	adapter := &fakeAdapter{}
	store := &fakeBotStore{active: []storage.Alert{
		{ID: 1, ChatID: 200, Keyword: "usb-c", Active: true},
		{ID: 2, ChatID: 200, Keyword: "cable", Active: true},
		{ID: 3, ChatID: 300, Keyword: "keyboard", Active: true},
		{ID: 4, ChatID: 100, Keyword: "cable", Active: true},
	}}
	svc := newTestService(t, adapter, store, srv.URL)

	svc.handleMessage(context.Background(), &transport.Message{
		ID:     1,
		ChatID: 100,
		FromID: 100,
		Text:   "https://aliexpress.com/item/123.html",
	})

	// One alert notification: chat 200 matched twice but hears once,
	// chat 300 does not match, chat 100 triggered the lookup.
	got := adapter.sentTo(200)
	if len(got) != 1 {
		t.Fatalf("chat 200 got %d messages, want 1: %v", len(got), got)
	}
	for _, want := range []string{"usb-c", "USB-C Cable", "https://s.click.aliexpress.com/e/_deal"} {
		if !strings.Contains(got[0], want) {
			t.Fatalf("alert message missing %q:\n%s", want, got[0])
		}
	}
	if msgs := adapter.sentTo(300); len(msgs) != 0 {
		t.Fatalf("chat 300 got %v, want nothing", msgs)
	}
	// The sender sees the processing notice and product info, never a
	// notification for its own lookup.
	for _, msg := range adapter.sentTo(100) {
		if strings.Contains(msg, "matches your alert") {
			t.Fatalf("sender received its own alert notification:\n%s", msg)
		}
	}
}

func TestBroadcastConfirmDoesNotBlockUpdateLoop(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	adapter := &fakeAdapter{gate: map[int64]chan struct{}{500: release}}
	store := &fakeBotStore{subscribed: []storage.User{{ChatID: 500, Language: "en", Subscribed: true}}}
	svc := newTestService(t, adapter, store, "")

	svc.mu.Lock()
	svc.pendingBroadcasts[1] = "big sale"
	svc.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svc.handleCallback(context.Background(), &transport.Callback{
			ID:     "cb-1",
			FromID: 1,
			ChatID: 1,
			Data:   "bc_yes",
		})
		close(done)
	}()

	// The handler must return while the recipient send is still gated.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleCallback blocked on an in-flight broadcast")
	}
	if msgs := adapter.sentTo(1); len(msgs) != 0 {
		t.Fatalf("result reported before the broadcast settled: %v", msgs)
	}

	close(release)
	waitFor(t, "broadcast result reply", func() bool {
		for _, msg := range adapter.sentTo(1) {
			if strings.Contains(msg, "Broadcast Results") {
				return true
			}
		}
		return false
	})
	if msgs := adapter.sentTo(500); len(msgs) != 1 || msgs[0] != "big sale" {
		t.Fatalf("recipient messages = %v, want the broadcast text", msgs)
	}
}

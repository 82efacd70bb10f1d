package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
telegram:
  token: "123:abc"
  admin_user_ids: [42]
storage:
  path: "./dealbot.db"
affiliate:
  app_key: "key"
  app_secret: "secret"
  tracking_id: "tg"
`

func TestLoadMinimalYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", minimalYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminUserIDs) != 1 || cfg.Telegram.AdminUserIDs[0] != 42 {
		t.Fatalf("admin ids = %v, want [42]", cfg.Telegram.AdminUserIDs)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", minimalYAML+"\nsurprise: true\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
telegram:
  token: ""
storage:
  path: "./x.db"
affiliate:
  app_key: "k"
  app_secret: "s"
  tracking_id: "t"
`))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestLoadJSONConfig(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "admin_user_ids": [1]},
		"logging": {"console": true},
		"storage": {"path": "./dealbot.db"},
		"broadcast": {"max_per_second": 10, "retry_attempts": 2, "retry_delay": "500ms", "batch_size": 25},
		"affiliate": {"app_key": "k", "app_secret": "s", "tracking_id": "t"}
	}`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	maxPerSecond, retryAttempts, retryDelay, batchSize, err := cfg.BroadcastValues()
	if err != nil {
		t.Fatalf("BroadcastValues: %v", err)
	}
	if maxPerSecond != 10 || retryAttempts != 2 || retryDelay != 500*time.Millisecond || batchSize != 25 {
		t.Fatalf("broadcast values = %v/%v/%v/%v", maxPerSecond, retryAttempts, retryDelay, batchSize)
	}
}

func TestBroadcastValuesDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	maxPerSecond, retryAttempts, retryDelay, batchSize, err := cfg.BroadcastValues()
	if err != nil {
		t.Fatalf("BroadcastValues: %v", err)
	}
	if maxPerSecond != DefaultMaxPerSecond {
		t.Fatalf("max_per_second = %v, want %v", maxPerSecond, DefaultMaxPerSecond)
	}
	if retryAttempts != DefaultRetryAttempts {
		t.Fatalf("retry_attempts = %v, want %v", retryAttempts, DefaultRetryAttempts)
	}
	if retryDelay != DefaultRetryDelay {
		t.Fatalf("retry_delay = %v, want %v", retryDelay, DefaultRetryDelay)
	}
	if batchSize != DefaultBatchSize {
		t.Fatalf("batch_size = %v, want %v", batchSize, DefaultBatchSize)
	}
}

func TestBroadcastValuesZeroRetriesIsValid(t *testing.T) {
	t.Parallel()
	zero := 0
	cfg := &Config{Broadcast: BroadcastConfig{RetryAttempts: &zero}}
	_, retryAttempts, _, _, err := cfg.BroadcastValues()
	if err != nil {
		t.Fatalf("BroadcastValues: %v", err)
	}
	// An explicit zero disables retries; it must not fall back to the default.
	if retryAttempts != 0 {
		t.Fatalf("retry_attempts = %d, want 0", retryAttempts)
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		Storage:   StorageConfig{Path: "p"},
		Broadcast: BroadcastConfig{RetryDelay: "soon"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unparseable retry_delay")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "  ", want: 0},
		{raw: "500ms", want: 500 * time.Millisecond},
		{raw: "2m", want: 2 * time.Minute},
		{raw: "-1s", wantErr: true},
		{raw: "fast", wantErr: true},
	}
	for _, tt := range tests {
		d, err := ParseDurationField("test.field", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
		}
		if d != tt.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, d, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("f", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("empty = %v (%v), want default", d, err)
	}
	if d, err := ParseDurationOrDefault("f", "3s", time.Minute); err != nil || d != 3*time.Second {
		t.Fatalf("explicit = %v (%v), want 3s", d, err)
	}
}

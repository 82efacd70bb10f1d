package config

// Config is dealbot's on-disk configuration (YAML or JSON; YAML is
// coerced to JSON and decoded strictly, so unknown fields are rejected).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Affiliate AffiliateConfig `json:"affiliate"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`

	// DefaultLanguage is used for users who never picked one.
	DefaultLanguage string `json:"default_language,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	AdminUserIDs []int64 `json:"admin_user_ids"`
	PollTimeout  string  `json:"poll_timeout,omitempty"`
	SendTimeout  string  `json:"send_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// BroadcastConfig holds the dispatch-rate and retry knobs.
//
// Defaults (when fields are omitted/zero):
//   - max_per_second: 25
//   - retry_attempts: 3
//   - retry_delay: "2s"
//   - batch_size: 50
type BroadcastConfig struct {
	MaxPerSecond  float64 `json:"max_per_second,omitempty"`
	RetryAttempts *int    `json:"retry_attempts,omitempty"`
	RetryDelay    string  `json:"retry_delay,omitempty"`
	BatchSize     int     `json:"batch_size,omitempty"`
}

type AffiliateConfig struct {
	AppKey     string `json:"app_key"`
	AppSecret  string `json:"app_secret"`
	TrackingID string `json:"tracking_id"`
	Timeout    string `json:"timeout,omitempty"`
}

type SchedulerConfig struct {
	CartCheckSpec string `json:"cart_check_spec,omitempty"`
	CleanupSpec   string `json:"cleanup_spec,omitempty"`
	InactiveAfter string `json:"inactive_after,omitempty"`
}

package storage

import "time"

// Config configures storage.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// User is one bot user. chat_id is the addressable identity.
type User struct {
	ID         int64
	ChatID     int64
	Username   string
	Language   string
	Subscribed bool
	CreatedAt  time.Time
	LastSeen   time.Time
}

type CartItem struct {
	ID            int64
	ChatID        int64
	ProductURL    string
	ProductTitle  string
	CurrentPrice  float64
	OriginalPrice float64
	LastChecked   time.Time
	CreatedAt     time.Time
}

type Alert struct {
	ID        int64
	ChatID    int64
	Keyword   string
	Active    bool
	CreatedAt time.Time
}

// BroadcastLog is the write-once audit record for one broadcast.
// Keep it compact and schema-stable.
type BroadcastLog struct {
	BroadcastID string
	Message     string
	Total       int
	Success     int
	Failure     int
	ErrorsJSON  string
	TookMS      int64
	At          time.Time
}

type Stats struct {
	Users      int
	Subscribed int
	CartItems  int
	Alerts     int
}

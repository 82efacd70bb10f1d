package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dealbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the SQLite store at cfg.Path, creating the schema
// when missing.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- users ----

func (s *sqliteStore) UpsertUser(ctx context.Context, chatID int64, username string) error {
	now := time.Now().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(chat_id, username, created_at, last_seen) VALUES(?,?,?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET username=excluded.username, last_seen=excluded.last_seen`,
		chatID, nullStr(username), now, now,
	)
	return err
}

func (s *sqliteStore) GetUser(ctx context.Context, chatID int64) (User, bool, error) {
	var (
		u                  User
		username           sql.NullString
		subscribed         int
		createdAt, lastSeen string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, username, language, is_subscribed, created_at, last_seen
		 FROM users WHERE chat_id = ?`, chatID,
	).Scan(&u.ID, &u.ChatID, &username, &u.Language, &subscribed, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	u.Username = username.String
	u.Subscribed = subscribed != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	u.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
	return u, true, nil
}

func (s *sqliteStore) SetLanguage(ctx context.Context, chatID int64, lang string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE chat_id = ?`, lang, chatID)
	return err
}

func (s *sqliteStore) SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error {
	v := 0
	if subscribed {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET is_subscribed = ? WHERE chat_id = ?`, v, chatID)
	return err
}

func (s *sqliteStore) ListSubscribed(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, language FROM users WHERE is_subscribed = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ChatID, &u.Language); err != nil {
			return nil, err
		}
		u.Subscribed = true
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- cart ----

func (s *sqliteStore) AddCartItem(ctx context.Context, chatID int64, productURL, title string, price float64) (int64, error) {
	now := time.Now().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cart_items(chat_id, product_url, product_title, current_price, original_price, last_checked, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		chatID, productURL, nullStr(title), price, price, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListCartItems(ctx context.Context, chatID int64) ([]CartItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, product_url, product_title, current_price, original_price, last_checked, created_at
		 FROM cart_items WHERE chat_id = ? ORDER BY created_at DESC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var (
			it                    CartItem
			title                 sql.NullString
			lastChecked, createdAt string
		)
		if err := rows.Scan(&it.ID, &it.ChatID, &it.ProductURL, &title, &it.CurrentPrice, &it.OriginalPrice, &lastChecked, &createdAt); err != nil {
			return nil, err
		}
		it.ProductTitle = title.String
		it.LastChecked, _ = time.Parse(time.RFC3339Nano, lastChecked)
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *sqliteStore) UpdateCartPrice(ctx context.Context, itemID int64, price float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET current_price = ?, last_checked = ? WHERE id = ?`,
		price, time.Now().Format(time.RFC3339Nano), itemID,
	)
	return err
}

// ---- alerts ----

func (s *sqliteStore) CreateAlert(ctx context.Context, chatID int64, keyword string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts(chat_id, keyword, created_at) VALUES(?,?,?)`,
		chatID, strings.ToLower(strings.TrimSpace(keyword)), time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListAlerts(ctx context.Context, chatID int64) ([]Alert, error) {
	return s.queryAlerts(ctx,
		`SELECT id, chat_id, keyword, is_active, created_at FROM alerts
		 WHERE chat_id = ? AND is_active = 1 ORDER BY created_at DESC`, chatID)
}

func (s *sqliteStore) ListActiveAlerts(ctx context.Context) ([]Alert, error) {
	return s.queryAlerts(ctx,
		`SELECT id, chat_id, keyword, is_active, created_at FROM alerts WHERE is_active = 1`)
}

func (s *sqliteStore) queryAlerts(ctx context.Context, query string, args ...any) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var (
			a         Alert
			active    int
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.ChatID, &a.Keyword, &active, &createdAt); err != nil {
			return nil, err
		}
		a.Active = active != 0
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *sqliteStore) DeactivateAlert(ctx context.Context, alertID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET is_active = 0 WHERE id = ?`, alertID)
	return err
}

// ---- broadcast audit ----

func (s *sqliteStore) AppendBroadcastLog(ctx context.Context, e BroadcastLog) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO broadcast_logs(broadcast_id, message, total_recipients, success_count, failure_count, errors, took_ms, created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.BroadcastID, e.Message, e.Total, e.Success, e.Failure, nullStr(e.ErrorsJSON), e.TookMS,
		e.At.Format(time.RFC3339Nano),
	)
	return err
}

// ---- stats / maintenance ----

func (s *sqliteStore) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE is_subscribed = 1),
		(SELECT COUNT(*) FROM cart_items),
		(SELECT COUNT(*) FROM alerts WHERE is_active = 1)`)
	if err := row.Scan(&st.Users, &st.Subscribed, &st.CartItems, &st.Alerts); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// PruneInactive removes unsubscribed users not seen for olderThan.
func (s *sqliteStore) PruneInactive(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE is_subscribed = 0 AND last_seen < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/interfaces"
)

// ErrNotFound is returned when an entry id is not in the outbox.
var ErrNotFound = errors.New("outbox entry not found")

// Status is the delivery state of an outbox entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS prepared_messages (
  entry_id          TEXT PRIMARY KEY,
  client_address    TEXT NOT NULL,
  topic             TEXT NOT NULL,
  message_id        TEXT NOT NULL,
  prepared_file_uri TEXT NOT NULL,
  prepared_at       INTEGER NOT NULL,
  status            TEXT NOT NULL CHECK(status IN ('pending','sent','failed')) DEFAULT 'pending',
  attempts          INTEGER NOT NULL DEFAULT 0,
  last_error        TEXT NOT NULL DEFAULT '',
  created_at        INTEGER NOT NULL,
  updated_at        INTEGER NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_prepared_messages_client_status
ON prepared_messages (client_address, status, prepared_at, created_at);
`,
}

// Entry is one prepared message waiting to be published.
type Entry struct {
	ID            string
	ClientAddress string
	Topic         string
	Prepared      interfaces.PreparedLocalMessage
	Status        Status
	Attempts      int
	LastError     string
	CreatedAt     int64
	UpdatedAt     int64
}

// PreparedJSON renders the engine handle in the shape SendPreparedMessage
// expects.
func (e Entry) PreparedJSON() (string, error) {
	data, err := json.Marshal(e.Prepared)
	if err != nil {
		return "", fmt.Errorf("encode prepared message %q: %w", e.ID, err)
	}
	return string(data), nil
}

// Outbox is a SQLite-backed queue of prepared messages. Entries survive
// restarts so a client can publish them once it is back online.
type Outbox struct {
	db        *sql.DB
	now       func() time.Time
	closeOnce sync.Once
}

// Open opens or creates the outbox database at path and runs migrations.
func Open(path string) (*Outbox, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create outbox directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open outbox database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping outbox database: %w", err)
	}

	o := &Outbox{db: db, now: time.Now}
	if err := o.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"path":     path,
	}).Info("Outbox opened")

	return o, nil
}

// Close closes the database. It is safe to call more than once.
func (o *Outbox) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	var closeErr error
	o.closeOnce.Do(func() {
		closeErr = o.db.Close()
	})
	return closeErr
}

func (o *Outbox) applyMigrations() error {
	var version int
	if err := o.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	return nil
}

// Enqueue stores a prepared message for clientAddress.
func (o *Outbox) Enqueue(ctx context.Context, clientAddress, topic string, prepared interfaces.PreparedLocalMessage) (Entry, error) {
	if clientAddress == "" {
		return Entry{}, errors.New("client address is required")
	}
	if topic == "" {
		return Entry{}, errors.New("topic is required")
	}
	if prepared.MessageID == "" {
		return Entry{}, errors.New("prepared message id is required")
	}

	now := o.now().UnixMilli()
	entry := Entry{
		ID:            uuid.NewString(),
		ClientAddress: clientAddress,
		Topic:         topic,
		Prepared:      prepared,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := o.db.ExecContext(ctx,
		`INSERT INTO prepared_messages (
			entry_id,
			client_address,
			topic,
			message_id,
			prepared_file_uri,
			prepared_at,
			status,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ClientAddress,
		entry.Topic,
		prepared.MessageID,
		prepared.PreparedFileURI,
		prepared.PreparedAt,
		string(entry.Status),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert outbox entry for message %q: %w", prepared.MessageID, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "Enqueue",
		"client_address": clientAddress,
		"entry_id":       entry.ID,
		"message_id":     prepared.MessageID,
	}).Debug("Prepared message queued")

	return entry, nil
}

const selectColumns = `entry_id, client_address, topic, message_id, prepared_file_uri, prepared_at,
	status, attempts, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e      Entry
		status string
	)
	err := row.Scan(
		&e.ID,
		&e.ClientAddress,
		&e.Topic,
		&e.Prepared.MessageID,
		&e.Prepared.PreparedFileURI,
		&e.Prepared.PreparedAt,
		&status,
		&e.Attempts,
		&e.LastError,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	e.Status = Status(status)
	return e, err
}

// Get returns the entry with id.
func (o *Outbox) Get(ctx context.Context, id string) (Entry, error) {
	row := o.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM prepared_messages WHERE entry_id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load outbox entry %q: %w", id, err)
	}
	return entry, nil
}

// Pending returns the unsent entries of clientAddress, failed ones included,
// oldest prepared first.
func (o *Outbox) Pending(ctx context.Context, clientAddress string) ([]Entry, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT `+selectColumns+`
		FROM prepared_messages
		WHERE client_address = ? AND status IN ('pending','failed')
		ORDER BY prepared_at ASC, created_at ASC, entry_id ASC`,
		clientAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkSent records a successful publish.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	return o.update(ctx, id,
		`UPDATE prepared_messages SET status = 'sent', attempts = attempts + 1, last_error = '', updated_at = ? WHERE entry_id = ?`,
		o.now().UnixMilli(), id)
}

// MarkFailed records a failed publish attempt. The entry stays pending.
func (o *Outbox) MarkFailed(ctx context.Context, id string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return o.update(ctx, id,
		`UPDATE prepared_messages SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ? WHERE entry_id = ?`,
		reason, o.now().UnixMilli(), id)
}

// Delete removes an entry.
func (o *Outbox) Delete(ctx context.Context, id string) error {
	return o.update(ctx, id, `DELETE FROM prepared_messages WHERE entry_id = ?`, id)
}

// PurgeSent removes every sent entry of clientAddress and returns how many
// were removed.
func (o *Outbox) PurgeSent(ctx context.Context, clientAddress string) (int64, error) {
	res, err := o.db.ExecContext(ctx,
		`DELETE FROM prepared_messages WHERE client_address = ? AND status = 'sent'`, clientAddress)
	if err != nil {
		return 0, fmt.Errorf("purge sent outbox entries: %w", err)
	}
	return res.RowsAffected()
}

func (o *Outbox) update(ctx context.Context, id, query string, args ...any) error {
	res, err := o.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox entry %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outbox entry %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

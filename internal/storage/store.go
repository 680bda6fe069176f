package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
)

const defaultBusyTimeout = 5000

// Store wraps the SQLite handle. It owns the messages table and exposes a
// read side over the users/sessions tables the site's auth layer writes.
type Store struct {
	db *sql.DB

	// appendMu serializes appends so created_at can be clamped to stay
	// non-decreasing even if the wall clock steps backwards.
	appendMu    sync.Mutex
	lastCreated time.Time
}

// User is a row of the site's users table, read by the identity resolver.
type User struct {
	ID           int64
	Name         string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}

// Session is a persisted login issued by the site's auth layer.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ErrUserExists is returned when attempting to insert a duplicate user name.
var ErrUserExists = errors.New("user already exists")

// NewStore opens the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "seucodigo-chat.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements. The users and sessions
// tables belong to the main site; they are created here too so the chat
// service can run standalone in development.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			password_hash BLOB NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender_id INTEGER,
			content TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			read INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at, id);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Append persists one chat message, assigning id and createdAt. Messages
// are immutable afterwards except for the read flag.
func (s *Store) Append(ctx context.Context, senderID *int64, content string, isAdmin bool) (chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, chat.ErrEmptyContent
	}
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	createdAt := time.Now().UTC()
	if createdAt.Before(s.lastCreated) {
		createdAt = s.lastCreated
	}

	var sender sql.NullInt64
	if senderID != nil {
		sender = sql.NullInt64{Int64: *senderID, Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(sender_id, content, is_admin, read, created_at) VALUES(?, ?, ?, 0, ?)`,
		sender, content, isAdmin, createdAt)
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message id: %w", err)
	}
	s.lastCreated = createdAt

	msg := chat.Message{
		ID:        id,
		Content:   content,
		IsAdmin:   isAdmin,
		CreatedAt: createdAt,
	}
	if senderID != nil {
		v := *senderID
		msg.SenderID = &v
	}
	return msg, nil
}

// ListAll returns the full log ordered by created_at, ties broken by id.
// The result is a point-in-time snapshot, not a subscription.
func (s *Store) ListAll(ctx context.Context) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, content, is_admin, read, created_at
		FROM messages
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var (
			msg    chat.Message
			sender sql.NullInt64
		)
		if err := rows.Scan(&msg.ID, &sender, &msg.Content, &msg.IsAdmin, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if sender.Valid {
			v := sender.Int64
			msg.SenderID = &v
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkRead flips the read flag. It is idempotent and a silent no-op for
// unknown ids: losing a mark-read is acceptable, losing a message is not.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, id)
	return err
}

// CreateUser inserts a user row. Only used by dev tooling and tests; in
// production the site's account system owns this table.
func (s *Store) CreateUser(ctx context.Context, name string, passwordHash []byte, isAdmin bool) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users(name, password_hash, is_admin) VALUES(?, ?, ?)`, name, passwordHash, isAdmin)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, ErrUserExists
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetUserByID fetches a user by primary key, nil when absent.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateSession stores a new session token for a user.
func (s *Store) CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(token, user_id, expires_at) VALUES(?, ?, ?)`, token, userID, expiresAt.UTC())
	return err
}

// GetSession returns a session if it exists, nil when absent.
func (s *Store) GetSession(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token)
	var sess Session
	if err := row.Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

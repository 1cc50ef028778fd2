package internal

import (
	"database/sql"
	"fmt"
)

// SQLiteStore keeps every session in one SQLite table, one row per message.
// Appends are single INSERT statements, so concurrent writers never lose a
// message.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path and ensures the schema exists
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// one connection serializes writers inside this process; busy_timeout
	// covers other processes
	db.SetMaxOpenConns(1)

	if err := Migrate(db, messagesSchema); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "migrate", Err: err}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load returns the stored history for sessionID in insertion order.
func (s *SQLiteStore) Load(sessionID string) []Message {
	history, err := s.query(SanitizeSessionID(sessionID))
	if err != nil {
		LogWarn("Could not read history for session %s, starting empty: %v", sessionID, err)
		return []Message{}
	}
	return history
}

func (s *SQLiteStore) query(key string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY seq", key)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	history := []Message{}
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		m.Role = Role(role)
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return history, nil
}

// Append inserts a message after the session's last one.
func (s *SQLiteStore) Append(sessionID string, role Role, content string) (Message, error) {
	msg := NewMessage(role, content)
	key := SanitizeSessionID(sessionID)

	_, err := s.db.Exec(`
INSERT INTO messages (session_id, seq, role, content, timestamp)
SELECT ?, COALESCE(MAX(seq), -1) + 1, ?, ?, ? FROM messages WHERE session_id = ?`,
		key, string(msg.Role), msg.Content, msg.Timestamp, key)
	if err != nil {
		return Message{}, &StorageError{Path: s.path, Op: "append", Err: err}
	}
	LogDebug("Appended %s message to session %s", role, sessionID)
	return msg, nil
}

// List summarizes each session in the table.
func (s *SQLiteStore) List() ([]SessionIndexEntry, error) {
	rows, err := s.db.Query(`
SELECT session_id, COUNT(*), MIN(timestamp), MAX(timestamp)
FROM messages GROUP BY session_id`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "list", Err: err}
	}
	defer rows.Close()

	var entries []SessionIndexEntry
	for rows.Next() {
		e := SessionIndexEntry{File: s.path}
		if err := rows.Scan(&e.ID, &e.MessageCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	sortEntries(entries)
	return entries, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

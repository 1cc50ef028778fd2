package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON file per session under a directory. Every append
// rewrites the whole file through a temp file and rename. Appends to the same
// session are serialized within the process only.
type FileStore struct {
	dir   string
	index *IndexManager

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, &ConfigError{Key: "history_dir", Err: errors.New("history directory is empty")}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Path: dir, Op: "mkdir", Err: err}
	}
	return &FileStore{
		dir:   dir,
		index: NewIndexManager(dir),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the history directory
func (s *FileStore) Dir() string {
	return s.dir
}

// SessionPath returns the path to a session's history file
func (s *FileStore) SessionPath(sessionID string) string {
	return filepath.Join(s.dir, SanitizeSessionID(sessionID)+".json")
}

func (s *FileStore) lock(sessionID string) *sync.Mutex {
	key := SanitizeSessionID(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Load returns the stored history for sessionID. Missing files yield an
// empty history; unreadable or malformed files are logged and treated the same.
func (s *FileStore) Load(sessionID string) []Message {
	history, err := readHistory(s.SessionPath(sessionID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			LogWarn("Could not read history for session %s, starting empty: %v", sessionID, err)
		}
		return []Message{}
	}
	return history
}

// Append adds a message to the session, creating it on first use.
func (s *FileStore) Append(sessionID string, role Role, content string) (Message, error) {
	l := s.lock(sessionID)
	l.Lock()
	defer l.Unlock()

	msg := NewMessage(role, content)
	history := append(s.Load(sessionID), msg)

	path := s.SessionPath(sessionID)
	data, err := encodeHistory(history)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return Message{}, err
	}

	if err := s.index.Upsert(indexEntry(sessionID, filepath.Base(path), history)); err != nil {
		LogWarn("Failed to update session index: %v", err)
	}
	LogDebug("Appended %s message to session %s (%d messages)", role, sessionID, len(history))
	return msg, nil
}

// List returns the sessions in the index, rebuilding it from the session
// files when it is missing or unreadable.
func (s *FileStore) List() ([]SessionIndexEntry, error) {
	index, err := s.index.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			LogWarn("Session index unreadable, rebuilding: %v", err)
		}
		index, err = s.index.Rebuild(readHistory)
		if index == nil {
			return nil, err
		}
		if err != nil {
			LogWarn("Failed to save rebuilt session index: %v", err)
		}
	}

	entries := append([]SessionIndexEntry(nil), index.Sessions...)
	sortEntries(entries)
	return entries, nil
}

// Reindex rebuilds sessions.yaml from the session files.
func (s *FileStore) Reindex() error {
	_, err := s.index.Rebuild(readHistory)
	return err
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

// encodeHistory writes history as indented JSON, leaving <, > and & unescaped
// so code stays readable on disk.
func encodeHistory(history []Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(history); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func readHistory(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	if history == nil {
		history = []Message{}
	}
	return history, nil
}

package internal

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store owns durable session histories. Histories are append-only; Load
// never fails and yields an empty history for unknown or unreadable sessions.
type Store interface {
	HistoryLoader
	// Append adds one message stamped with the current time. The returned
	// error only reports a failed write.
	Append(sessionID string, role Role, content string) (Message, error)
	// List summarizes every stored session, most recently updated first.
	List() ([]SessionIndexEntry, error)
	Close() error
}

// StoreConfig selects and locates a Store backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	HistoryDir string `mapstructure:"-" yaml:"-"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// OpenStore opens the backend named by cfg.Backend.
func OpenStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.HistoryDir)
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = DefaultSQLitePath(cfg.HistoryDir)
		}
		return NewSQLiteStore(path)
	default:
		return nil, &ConfigError{Key: "store.backend", Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
	}
}

// DefaultSQLitePath is the sqlite store location when none is configured.
func DefaultSQLitePath(historyDir string) string {
	return filepath.Join(historyDir, "history.db")
}

// LoadSession loads a full Session view from store.
func LoadSession(store Store, sessionID string) *Session {
	return NewSession(sessionID, store.Load(sessionID))
}

func sortEntries(entries []SessionIndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UpdatedAt != entries[j].UpdatedAt {
			return entries[i].UpdatedAt > entries[j].UpdatedAt
		}
		return entries[i].ID < entries[j].ID
	})
}

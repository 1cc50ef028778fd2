package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// IndexVersion is written to sessions.yaml.
const IndexVersion = "1.0"

// IndexMetadata stores metadata about the index
type IndexMetadata struct {
	Version   string    `json:"version" yaml:"version"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SessionIndexEntry represents a session entry in the index
type SessionIndexEntry struct {
	ID           string `json:"id" yaml:"id"`
	File         string `json:"file" yaml:"file"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// SessionIndex represents the YAML index of all sessions
type SessionIndex struct {
	Sessions []SessionIndexEntry `yaml:"sessions"`
	Metadata IndexMetadata       `yaml:"metadata"`
}

// IndexManager maintains sessions.yaml next to the session files. The index
// is advisory: it can always be rebuilt from the files themselves.
type IndexManager struct {
	dir string
	mu  sync.Mutex
}

// NewIndexManager creates an index manager for dir
func NewIndexManager(dir string) *IndexManager {
	return &IndexManager{dir: dir}
}

// Path returns the path to the session index YAML file
func (im *IndexManager) Path() string {
	return filepath.Join(im.dir, "sessions.yaml")
}

// Load loads the session index
func (im *IndexManager) Load() (*SessionIndex, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.load()
}

func (im *IndexManager) load() (*SessionIndex, error) {
	data, err := os.ReadFile(im.Path())
	if err != nil {
		return nil, err
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: im.Path(), Err: fmt.Errorf("failed to unmarshal index: %w", err)}
	}
	return &index, nil
}

func (im *IndexManager) save(index *SessionIndex) error {
	index.Metadata.Version = IndexVersion
	index.Metadata.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return writeFileAtomic(im.Path(), data)
}

// Upsert replaces the entry whose File matches entry.File, or adds it.
func (im *IndexManager) Upsert(entry SessionIndexEntry) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	index, err := im.load()
	if err != nil {
		index = &SessionIndex{}
	}

	found := false
	for i, existing := range index.Sessions {
		if existing.File == entry.File {
			// keep the id the session was first created with
			entry.ID = existing.ID
			index.Sessions[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Sessions = append(index.Sessions, entry)
	}
	return im.save(index)
}

// Rebuild scans the directory for session files and rewrites the index.
func (im *IndexManager) Rebuild(load func(path string) ([]Message, error)) (*SessionIndex, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(im.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	index := &SessionIndex{Sessions: make([]SessionIndexEntry, 0, len(paths))}
	for _, path := range paths {
		history, err := load(path)
		if err != nil {
			LogWarn("Skipping unreadable session file %s: %v", path, err)
			continue
		}
		name := filepath.Base(path)
		index.Sessions = append(index.Sessions, indexEntry(strings.TrimSuffix(name, ".json"), name, history))
	}

	if err := im.save(index); err != nil {
		return index, err
	}
	LogDebug("Rebuilt session index with %d sessions", len(index.Sessions))
	return index, nil
}

func indexEntry(id, file string, history []Message) SessionIndexEntry {
	info := NewSession(id, history).Info
	return SessionIndexEntry{
		ID:           id,
		File:         file,
		CreatedAt:    info.CreatedAt,
		UpdatedAt:    info.UpdatedAt,
		MessageCount: info.MessageCount,
	}
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Path: dir, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &StorageError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &StorageError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &StorageError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

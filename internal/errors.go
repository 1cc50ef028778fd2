package internal

import "fmt"

// StorageError represents errors accessing session history files or databases
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "rename", "query"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding a persisted record
type ParseError struct {
	Source string // "history", "index"
	Key    string // session id or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SummarizeError describes why a summarization call degraded
type SummarizeError struct {
	Model string
	Err   error
}

func (e *SummarizeError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("summarize error: %v", e.Err)
	}
	return fmt.Sprintf("summarize error [%s]: %v", e.Model, e.Err)
}

func (e *SummarizeError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

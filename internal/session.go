package internal

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsConversational reports whether the role is persisted as a conversation turn.
func (r Role) IsConversational() bool {
	return r == RoleUser || r == RoleAssistant
}

// TimestampFormat is the layout used for Message.Timestamp.
const TimestampFormat = time.RFC3339

// Message represents one stored turn unit
type Message struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(TimestampFormat),
	}
}

// UnmarshalJSON decodes a stored message, coercing a non-string content or
// timestamp to its textual form so one odd entry does not discard a history.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role      json.RawMessage `json:"role"`
		Content   json.RawMessage `json:"content"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = Role(coerceString(raw.Role))
	m.Content = coerceString(raw.Content)
	m.Timestamp = coerceString(raw.Timestamp)
	return nil
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Session is a session id together with its full stored history
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Messages []Message `json:"messages" yaml:"messages"`
	Info     Info      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Info contains additional session information
type Info struct {
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// TurnCount is the number of complete message pairs.
func TurnCount(history []Message) int {
	return len(history) / 2
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeSessionID maps an arbitrary session id to a filesystem-safe token.
func SanitizeSessionID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "_")
}

// NewSession builds a Session view over a loaded history.
func NewSession(id string, history []Message) *Session {
	s := &Session{
		ID:       id,
		Messages: history,
		Info: Info{
			MessageCount: len(history),
		},
	}
	if len(history) > 0 {
		s.Info.CreatedAt = history[0].Timestamp
		s.Info.UpdatedAt = history[len(history)-1].Timestamp
	}
	return s
}

// ParseRole normalizes a role name; unknown names are returned lowercased as-is.
func ParseRole(name string) Role {
	return Role(strings.ToLower(strings.TrimSpace(name)))
}

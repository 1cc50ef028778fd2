package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) *Session {
	now := time.Now().UTC().Format(TimestampFormat)
	return NewSession(id, []Message{
		{Role: RoleUser, Content: "Can you help me fix the async bug in main.py?", Timestamp: now},
		{Role: RoleAssistant, Content: "Swap Promise.all for sequential awaits.", Timestamp: now},
	})
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	return NewSession(id, messages)
}

// CreateTestHistory builds n user/assistant pairs whose contents are size
// characters long (at least long enough to hold a numbered prefix).
func CreateTestHistory(n, size int) []Message {
	history := make([]Message, 0, 2*n)
	for i := 0; i < n; i++ {
		history = append(history,
			Message{Role: RoleUser, Content: fill(fmt.Sprintf("user %d:", i), size)},
			Message{Role: RoleAssistant, Content: fill(fmt.Sprintf("reply %d:", i), size)},
		)
	}
	return history
}

func fill(prefix string, size int) string {
	if len(prefix) >= size {
		return prefix
	}
	return prefix + strings.Repeat("x", size-len(prefix))
}

// StubCompleter is a Completer returning a canned reply and recording prompts.
type StubCompleter struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	prompts []string
}

// Complete records prompt and returns the canned reply or error.
func (s *StubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// Prompts returns every prompt received so far.
func (s *StubCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns the number of Complete calls.
func (s *StubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

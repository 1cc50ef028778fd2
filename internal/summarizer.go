package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Completer produces a completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SummaryStatus tags how a Summary was produced.
type SummaryStatus string

const (
	SummaryOK        SummaryStatus = "ok"
	SummaryNoHistory SummaryStatus = "no_history"
	SummaryEmpty     SummaryStatus = "empty"
	SummaryDegraded  SummaryStatus = "degraded"
)

// Fixed texts used in place of a generated summary.
const (
	NoHistoryText     = "No prior conversation history."
	EmptySummaryText  = "Empty summary."
	UnavailableText   = "Summary unavailable – continuing with raw history."
	compressionPrompt = `You are a context compressor for a coding assistant.
Write a dense summary of the conversation history below. Preserve the project goal, file names and code references, bugs found and how they were fixed, current status, user preferences, and open tasks.
Use short markdown sections. Be concise.

History:
%s`
)

// Summary is the result of summarizing an old span. Text always holds
// something fit to show the model; Status says whether it is a real summary.
type Summary struct {
	Status SummaryStatus `json:"status"`
	Text   string        `json:"text"`
	Err    error         `json:"-"`
}

// Degraded reports whether summarization failed and Text is the fallback.
func (s Summary) Degraded() bool {
	return s.Status == SummaryDegraded
}

// Summarizer compresses old messages through a Completer. It never returns
// an error: failures come back as a degraded Summary.
type Summarizer struct {
	completer Completer
	model     string
	cache     *SummaryCache
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithSummaryCache reuses successful summaries of identical old spans.
func WithSummaryCache(cache *SummaryCache) SummarizerOption {
	return func(s *Summarizer) {
		s.cache = cache
	}
}

// WithModelName labels errors and logs with the model in use.
func WithModelName(model string) SummarizerOption {
	return func(s *Summarizer) {
		s.model = model
	}
}

// NewSummarizer creates a Summarizer. A nil completer makes every call degrade.
func NewSummarizer(completer Completer, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{completer: completer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RenderTranscript serializes messages as "<role>: <content>" lines.
func RenderTranscript(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return strings.Join(lines, "\n")
}

// BuildSummaryPrompt wraps the rendered transcript in the compression instruction.
func BuildSummaryPrompt(messages []Message) string {
	return fmt.Sprintf(compressionPrompt, RenderTranscript(messages))
}

// Summarize returns a compact summary of old. Empty input never reaches the
// completer.
func (s *Summarizer) Summarize(ctx context.Context, old []Message) Summary {
	if len(old) == 0 {
		return Summary{Status: SummaryNoHistory, Text: NoHistoryText}
	}

	var key string
	if s.cache != nil {
		key = HashMessages(old)
		if text, ok := s.cache.Get(key); ok {
			LogDebug("Summary cache hit for %d messages", len(old))
			return Summary{Status: SummaryOK, Text: text}
		}
	}

	if s.completer == nil {
		return s.degrade(errors.New("no summarizer configured"))
	}

	text, err := s.completer.Complete(ctx, BuildSummaryPrompt(old))
	if err != nil {
		return s.degrade(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		LogWarn("Summarizer returned an empty summary for %d messages", len(old))
		return Summary{Status: SummaryEmpty, Text: EmptySummaryText}
	}

	if s.cache != nil {
		s.cache.Put(key, text)
	}
	LogDebug("Summarized %d messages into %d chars", len(old), len(text))
	return Summary{Status: SummaryOK, Text: text}
}

func (s *Summarizer) degrade(err error) Summary {
	wrapped := &SummarizeError{Model: s.model, Err: err}
	LogWarn("Summary failed: %v", wrapped)
	return Summary{Status: SummaryDegraded, Text: UnavailableText, Err: wrapped}
}

package internal

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSystemPrompt is used whenever the caller's system prompt is blank.
const DefaultSystemPrompt = "You are a helpful, high-vibe coding assistant."

const (
	contextBlockFormat = "--- RELEVANT CONTEXT (from past sessions) ---\n%s\n--- END RELEVANT CONTEXT ---"
	summaryBlockFormat = "--- SUMMARY OF EARLIER CONVERSATION ---\n%s\n--- END SUMMARY ---"
)

// PromptMessage is one entry of a prepared prompt.
type PromptMessage struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// PreparedPrompt is the ordered message list sent to the conversational
// model, along with how it was built. It is never persisted.
type PreparedPrompt struct {
	Messages []PromptMessage `json:"messages"`
	Summary  *Summary        `json:"summary,omitempty"`
	Decision TriggerDecision `json:"decision"`
}

// EstimateTokens estimates the size of the whole prompt.
func (p *PreparedPrompt) EstimateTokens() int {
	total := 0
	for _, m := range p.Messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

// HistoryLoader is the read side of a Store.
type HistoryLoader interface {
	Load(sessionID string) []Message
}

// Assembler builds prepared prompts from stored history.
type Assembler struct {
	history       HistoryLoader
	summarizer    *Summarizer
	policy        TriggerPolicy
	defaultPrompt string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTriggerPolicy overrides the default thresholds.
func WithTriggerPolicy(policy TriggerPolicy) AssemblerOption {
	return func(a *Assembler) {
		a.policy = policy
	}
}

// WithDefaultSystemPrompt replaces the persona used for blank system prompts.
func WithDefaultSystemPrompt(prompt string) AssemblerOption {
	return func(a *Assembler) {
		if strings.TrimSpace(prompt) != "" {
			a.defaultPrompt = strings.TrimSpace(prompt)
		}
	}
}

// NewAssembler creates an Assembler reading from history. A nil summarizer
// behaves like an unreachable one.
func NewAssembler(history HistoryLoader, summarizer *Summarizer, opts ...AssemblerOption) *Assembler {
	if summarizer == nil {
		summarizer = NewSummarizer(nil)
	}
	a := &Assembler{
		history:       history,
		summarizer:    summarizer,
		policy:        DefaultTriggerPolicy(),
		defaultPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the trigger policy in use.
func (a *Assembler) Policy() TriggerPolicy {
	return a.policy
}

// Assemble builds the prompt for newUserMessage in a fixed order: system
// prompt, external context, summary of the old span, the recent window and
// finally the new user message. It always returns a well-formed prompt.
func (a *Assembler) Assemble(ctx context.Context, sessionID, newUserMessage, systemPrompt, externalContext string) *PreparedPrompt {
	p := &PreparedPrompt{}

	system := strings.TrimSpace(systemPrompt)
	if system == "" {
		system = a.defaultPrompt
	}
	p.add(RoleSystem, system)

	if extra := strings.TrimSpace(externalContext); extra != "" {
		p.add(RoleSystem, fmt.Sprintf(contextBlockFormat, extra))
	}

	history := a.history.Load(sessionID)
	p.Decision = a.policy.Evaluate(history)

	recent := history
	if p.Decision.Triggered {
		var old []Message
		old, recent = a.policy.Split(history)
		LogInfo("Summarizing %d old messages for session %s (%s)", len(old), sessionID, p.Decision.Reason)
		summary := a.summarizer.Summarize(ctx, old)
		p.Summary = &summary
		p.add(RoleSystem, fmt.Sprintf(summaryBlockFormat, summary.Text))
	}

	for _, m := range recent {
		if !m.Role.IsConversational() {
			LogDebug("Dropping stored %q message from session %s", m.Role, sessionID)
			continue
		}
		p.add(m.Role, m.Content)
	}

	p.add(RoleUser, newUserMessage)
	return p
}

func (p *PreparedPrompt) add(role Role, content string) {
	p.Messages = append(p.Messages, PromptMessage{Role: role, Content: content})
}

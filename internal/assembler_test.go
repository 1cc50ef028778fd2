package internal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/vibe-context/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryHistory map[string][]Message

func (m memoryHistory) Load(sessionID string) []Message {
	return m[sessionID]
}

var scenarioPolicy = TriggerPolicy{KeepRawTurns: 2, TurnThreshold: 3, TokenThreshold: 1000}

func roles(msgs []PromptMessage) []Role {
	out := make([]Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestAssemble_NoHistory(t *testing.T) {
	a := NewAssembler(memoryHistory{}, NewSummarizer(&StubCompleter{Reply: "unused"}))

	p := a.Assemble(context.Background(), "fresh", "hello", "", "")
	require.Len(t, p.Messages, 2)
	assert.Equal(t, PromptMessage{Role: RoleSystem, Content: DefaultSystemPrompt}, p.Messages[0])
	assert.Equal(t, PromptMessage{Role: RoleUser, Content: "hello"}, p.Messages[1])
	assert.Nil(t, p.Summary)
	assert.Equal(t, ReasonInsufficientHistory, p.Decision.Reason)
}

func TestAssemble_SystemPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		opts   []AssemblerOption
		want   string
	}{
		{name: "trimmed", prompt: "  Be terse.\n", want: "Be terse."},
		{name: "blank uses default", prompt: " \t\n", want: DefaultSystemPrompt},
		{name: "custom default", prompt: "", opts: []AssemblerOption{WithDefaultSystemPrompt("You review Go code.")}, want: "You review Go code."},
		{name: "blank custom default ignored", prompt: "", opts: []AssemblerOption{WithDefaultSystemPrompt("   ")}, want: DefaultSystemPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler(memoryHistory{}, nil, tt.opts...)
			p := a.Assemble(context.Background(), "s", "q", tt.prompt, "")
			assert.Equal(t, tt.want, p.Messages[0].Content)
		})
	}
}

func TestAssemble_ExternalContext(t *testing.T) {
	a := NewAssembler(memoryHistory{}, nil)

	p := a.Assemble(context.Background(), "s", "q", "sys", "  def parse(): ...  ")
	require.Len(t, p.Messages, 3)
	assert.Equal(t, RoleSystem, p.Messages[1].Role)
	assert.Equal(t,
		"--- RELEVANT CONTEXT (from past sessions) ---\ndef parse(): ...\n--- END RELEVANT CONTEXT ---",
		p.Messages[1].Content)

	p = a.Assemble(context.Background(), "s", "q", "sys", " \n ")
	assert.Len(t, p.Messages, 2, "blank context adds nothing")
}

func TestAssemble_TriggeredScenario(t *testing.T) {
	history := CreateTestHistory(5, 20)
	stub := &StubCompleter{Reply: "## Goal\nfix things"}
	a := NewAssembler(memoryHistory{"s": history}, NewSummarizer(stub), WithTriggerPolicy(scenarioPolicy))

	p := a.Assemble(context.Background(), "s", "next question", "sys", "")

	assert.True(t, p.Decision.Triggered)
	assert.Equal(t, ReasonTurns, p.Decision.Reason)
	assert.Equal(t, 6, p.Decision.OldMessages)

	// system, summary, 4 recent, new user message
	require.Len(t, p.Messages, 7)
	assert.Equal(t, []Role{RoleSystem, RoleSystem, RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleUser}, roles(p.Messages))
	assert.Equal(t,
		"--- SUMMARY OF EARLIER CONVERSATION ---\n## Goal\nfix things\n--- END SUMMARY ---",
		p.Messages[1].Content)
	for i, m := range history[6:] {
		assert.Equal(t, m.Content, p.Messages[2+i].Content)
	}
	assert.Equal(t, "next question", p.Messages[6].Content)

	require.NotNil(t, p.Summary)
	assert.Equal(t, SummaryOK, p.Summary.Status)

	// the summarizer saw exactly the first six messages
	require.Equal(t, 1, stub.Calls())
	prompt := stub.Prompts()[0]
	assert.Contains(t, prompt, RenderTranscript(history[:6]))
	assert.NotContains(t, prompt, history[6].Content)
}

func TestAssemble_InsufficientHistoryScenario(t *testing.T) {
	history := CreateTestHistory(2, 20)
	stub := &StubCompleter{Reply: "unused"}
	a := NewAssembler(memoryHistory{"s": history}, NewSummarizer(stub), WithTriggerPolicy(scenarioPolicy))

	p := a.Assemble(context.Background(), "s", "q", "", "")

	assert.False(t, p.Decision.Triggered)
	assert.Zero(t, stub.Calls())
	require.Len(t, p.Messages, 6)
	for i, m := range history {
		assert.Equal(t, PromptMessage{Role: m.Role, Content: m.Content}, p.Messages[1+i])
	}
}

func TestAssemble_FallbackDeterminism(t *testing.T) {
	history := CreateTestHistory(5, 20)
	a := NewAssembler(memoryHistory{"s": history},
		NewSummarizer(&StubCompleter{Err: errors.New("connection refused")}),
		WithTriggerPolicy(scenarioPolicy))

	p := a.Assemble(context.Background(), "s", "still there?", "", "ctx")

	require.NotNil(t, p.Summary)
	assert.True(t, p.Summary.Degraded())

	want := []PromptMessage{
		{Role: RoleSystem, Content: DefaultSystemPrompt},
		{Role: RoleSystem, Content: "--- RELEVANT CONTEXT (from past sessions) ---\nctx\n--- END RELEVANT CONTEXT ---"},
		{Role: RoleSystem, Content: "--- SUMMARY OF EARLIER CONVERSATION ---\n" + UnavailableText + "\n--- END SUMMARY ---"},
	}
	for _, m := range history[6:] {
		want = append(want, PromptMessage{Role: m.Role, Content: m.Content})
	}
	want = append(want, PromptMessage{Role: RoleUser, Content: "still there?"})
	assert.Equal(t, want, p.Messages)
}

func TestAssemble_UnreachableEndpoint(t *testing.T) {
	server := testutil.NewLLMServer(t, "")
	server.Close()

	store, err := NewFileStore(testutil.CreateTempDir(t))
	require.NoError(t, err)
	for _, m := range CreateTestHistory(5, 20) {
		_, err := store.Append("s", m.Role, m.Content)
		require.NoError(t, err)
	}

	client := NewOpenAIClient(ClientConfig{BaseURL: server.BaseURL()})
	a := NewAssembler(store, NewSummarizer(client), WithTriggerPolicy(scenarioPolicy))

	p := a.Assemble(context.Background(), "s", "q", "", "")
	assert.Equal(t, "q", p.Messages[len(p.Messages)-1].Content)
	assert.Contains(t, p.Messages[1].Content, UnavailableText)
}

func TestAssemble_IdempotentWithoutTrigger(t *testing.T) {
	store, err := NewFileStore(testutil.CreateTempDir(t))
	require.NoError(t, err)
	_, _ = store.Append("s", RoleUser, "hi")
	_, _ = store.Append("s", RoleAssistant, "hello")

	a := NewAssembler(store, nil)
	first := a.Assemble(context.Background(), "s", "again", "sys", "ctx")
	second := a.Assemble(context.Background(), "s", "again", "sys", "ctx")
	assert.Equal(t, first, second)
}

func TestAssemble_EmptyUserMessagePassesThrough(t *testing.T) {
	a := NewAssembler(memoryHistory{}, nil)
	p := a.Assemble(context.Background(), "s", "", "", "")
	assert.Equal(t, PromptMessage{Role: RoleUser, Content: ""}, p.Messages[len(p.Messages)-1])
}

func TestAssemble_DropsNonConversationalRoles(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "u1"},
		{Role: RoleSystem, Content: "stray system"},
		{Role: "tool", Content: "stray tool"},
		{Role: RoleAssistant, Content: "a1"},
	}
	a := NewAssembler(memoryHistory{"s": history}, nil)

	p := a.Assemble(context.Background(), "s", "q", "", "")
	assert.Equal(t, []Role{RoleSystem, RoleUser, RoleAssistant, RoleUser}, roles(p.Messages))
	assert.Equal(t, "u1", p.Messages[1].Content)
	assert.Equal(t, "a1", p.Messages[2].Content)
}

func TestAssemble_TokenTriggerKeepsWindow(t *testing.T) {
	// two long turns plus a recent one: few turns, many old tokens
	history := CreateTestHistory(3, 2000)
	stub := &StubCompleter{Reply: "dense"}
	policy := TriggerPolicy{KeepRawTurns: 1, TurnThreshold: 10, TokenThreshold: 500}
	a := NewAssembler(memoryHistory{"s": history}, NewSummarizer(stub), WithTriggerPolicy(policy))

	p := a.Assemble(context.Background(), "s", "q", "", "")
	assert.Equal(t, ReasonTokens, p.Decision.Reason)
	require.Len(t, p.Messages, 5)
	assert.Equal(t, history[4].Content, p.Messages[2].Content)
	assert.Equal(t, history[5].Content, p.Messages[3].Content)
}

func TestAssemble_ZeroKeepWindow(t *testing.T) {
	history := CreateTestHistory(4, 10)
	stub := &StubCompleter{Reply: "all of it"}
	policy := TriggerPolicy{KeepRawTurns: 0, TurnThreshold: 3, TokenThreshold: 1000}
	a := NewAssembler(memoryHistory{"s": history}, NewSummarizer(stub), WithTriggerPolicy(policy))

	p := a.Assemble(context.Background(), "s", "q", "", "")
	assert.Equal(t, []Role{RoleSystem, RoleSystem, RoleUser}, roles(p.Messages))
	assert.Contains(t, stub.Prompts()[0], RenderTranscript(history))
}

func TestPreparedPrompt_EstimateTokens(t *testing.T) {
	p := &PreparedPrompt{Messages: []PromptMessage{
		{Role: RoleSystem, Content: strings.Repeat("a", 40)},
		{Role: RoleUser, Content: ""},
	}}
	assert.Equal(t, 11, p.EstimateTokens())
}

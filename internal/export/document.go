package export

import "github.com/iksnae/vibe-context/internal"

// document is the structured form written by the json and yaml exporters:
// the stored history plus the numbers the trigger works from.
type document struct {
	ID              string             `json:"id" yaml:"id"`
	Turns           int                `json:"turns" yaml:"turns"`
	EstimatedTokens int                `json:"estimated_tokens" yaml:"estimated_tokens"`
	Messages        []internal.Message `json:"messages" yaml:"messages"`
	Info            internal.Info      `json:"metadata" yaml:"metadata"`
}

func newDocument(session *internal.Session) document {
	messages := session.Messages
	if messages == nil {
		messages = []internal.Message{}
	}
	return document{
		ID:              session.ID,
		Turns:           internal.TurnCount(messages),
		EstimatedTokens: internal.EstimateMessages(messages),
		Messages:        messages,
		Info:            session.Info,
	}
}

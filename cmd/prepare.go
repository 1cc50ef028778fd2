package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/vibe-context/internal"
	"github.com/iksnae/vibe-context/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	prepareSystem  string
	prepareContext string
	prepareRAG     bool
	prepareExplain bool
	preparePretty  bool
)

var (
	promptRoleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	decisionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// explainedPrompt is the --explain output shape.
type explainedPrompt struct {
	*internal.PreparedPrompt
	Policy          internal.TriggerPolicy `json:"policy"`
	EstimatedTokens int                    `json:"estimated_tokens"`
}

var prepareCmd = &cobra.Command{
	Use:   "prepare <session-id> <message|->",
	Short: "Build the prompt for the next turn without calling the model",
	Long: `Assemble the message list that would be sent to the conversational model
for a new user message, and print it as JSON.

The stored history is not modified. When the history has grown past the
trigger thresholds, the older part is summarized through the configured
endpoint; if that fails a fixed placeholder is used instead.

  --context  extra text placed in a relevant-context block
  --rag      also retrieve context for the message from the retrieval index
  --explain  include the trigger decision, summary status and token estimate
  --pretty   render a readable view instead of JSON`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		message, err := readContent(cmd, args[1])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		external := prepareContext
		if prepareRAG {
			external = joinContext(external, retrieveContext(cmd, message, ""))
		}

		assembler := newAssembler(store, newClient())
		prepared := assembler.Assemble(cmd.Context(), sessionID, message, prepareSystem, external)

		out := cmd.OutOrStdout()
		if preparePretty {
			renderPrompt(out, prepared)
			return nil
		}

		var payload interface{} = prepared.Messages
		if prepareExplain {
			payload = explainedPrompt{
				PreparedPrompt:  prepared,
				Policy:          assembler.Policy(),
				EstimatedTokens: prepared.EstimateTokens(),
			}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal prompt: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

// retrieveContext queries the retrieval index, returning "" on any failure.
func retrieveContext(cmd *cobra.Command, query, sessionID string) string {
	ix, err := openIndex()
	if err != nil {
		internal.LogWarn("Retrieval unavailable: %v", err)
		return ""
	}
	defer ix.Close()
	return ix.Retrieve(cmd.Context(), query, sessionID, cfg.Retrieval.TopK)
}

// joinContext combines caller-supplied and retrieved context blocks.
func joinContext(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, retrieval.Separator)
}

func renderPrompt(w io.Writer, p *internal.PreparedPrompt) {
	d := p.Decision
	status := "no summary"
	if p.Summary != nil {
		status = "summary: " + string(p.Summary.Status)
	}
	fmt.Fprintln(w, decisionStyle.Render(fmt.Sprintf(
		"trigger=%t (%s) • turns=%d • old messages=%d (~%d tokens) • %s • prompt ~%d tokens",
		d.Triggered, d.Reason, d.TotalTurns, d.OldMessages, d.OldTokens, status, p.EstimateTokens())))
	fmt.Fprintln(w)

	for i, m := range p.Messages {
		fmt.Fprintln(w, promptRoleStyle.Render(fmt.Sprintf("[%d] %s", i+1, m.Role)))
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(m.Content, 100)))
	}
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVar(&prepareSystem, "system", "", "System prompt (default from config)")
	prepareCmd.Flags().StringVar(&prepareContext, "context", "", "External context to include")
	prepareCmd.Flags().BoolVar(&prepareRAG, "rag", false, "Retrieve context for the message from the retrieval index")
	prepareCmd.Flags().BoolVar(&prepareExplain, "explain", false, "Include trigger decision and token estimate")
	prepareCmd.Flags().BoolVar(&preparePretty, "pretty", false, "Render a readable view instead of JSON")
}

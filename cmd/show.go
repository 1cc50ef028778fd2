package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/vibe-context/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the stored history of a session",
	Long: `Display every stored message of a session.

This is the UI view: the full history is shown, never the summarized form
sent to the model. Use --limit and --since to narrow the output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = parsed
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		session := internal.LoadSession(store, args[0])
		out := cmd.OutOrStdout()
		displaySessionHeader(out, session)

		messagesToShow := session.Messages
		if !sinceTime.IsZero() {
			messagesToShow = filterSince(messagesToShow, sinceTime)
		}

		totalFiltered := len(messagesToShow)
		if limit > 0 && limit < totalFiltered {
			messagesToShow = messagesToShow[:limit]
		}

		for i, msg := range messagesToShow {
			displayMessage(out, i+1, msg, totalFiltered)
		}

		if limit > 0 && limit < totalFiltered {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sessionMetaStyle.
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", totalFiltered-limit)))
		}
		return nil
	},
}

// filterSince keeps messages stamped at or after t; unstamped ones are dropped.
func filterSince(messages []internal.Message, t time.Time) []internal.Message {
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		ts, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			continue
		}
		if !ts.Before(t) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func displaySessionHeader(w io.Writer, session *internal.Session) {
	fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", session.ID)))

	var metaParts []string
	if session.Info.CreatedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", session.Info.CreatedAt))
	}
	metaParts = append(metaParts,
		fmt.Sprintf("Messages: %d", len(session.Messages)),
		fmt.Sprintf("Turns: %d", internal.TurnCount(session.Messages)),
		fmt.Sprintf("~%d tokens", internal.EstimateMessages(session.Messages)),
	)
	fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 User"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Assistant"
	case internal.RoleSystem:
		actorStyle = systemMessageStyle
		actorLabel = "⚙️ System"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			header += " " + timestampStyle.Render(t.Format("2006-01-02 15:04:05"))
		} else {
			header += " " + timestampStyle.Render(msg.Timestamp)
		}
	}
	fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	fmt.Fprintln(w)
}

// wrapText wraps lines longer than width at word boundaries. Words longer
// than width are kept whole on their own line.
func wrapText(text string, width int) string {
	var wrapped []string
	for _, line := range strings.Split(text, "\n") {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			switch {
			case current == "":
				current = word
			case len(current)+len(word)+1 > width:
				wrapped = append(wrapped, current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			wrapped = append(wrapped, current)
		}
	}
	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}

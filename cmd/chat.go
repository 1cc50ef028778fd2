package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/iksnae/vibe-context/internal"
	"github.com/spf13/cobra"
)

var (
	chatSystem string
	chatRAG    bool
	chatIndex  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <session-id>",
	Short: "Chat with the configured model, one line per turn",
	Long: `Run a conversation loop against chat.model (default: the summarizer model).

Each line read from stdin is one user turn: the prompt is assembled from the
stored history, sent to the model, and both the user message and the reply
are appended to the session. A failed model call is reported and nothing is
stored for that turn. Type /exit or send EOF to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		client := newClient()
		assembler := newAssembler(store, client)
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		turns := 0
		for {
			fmt.Fprint(errOut, userMessageStyle.Render("you>")+" ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/exit" || line == "/quit" {
				break
			}

			external := ""
			if chatRAG {
				external = retrieveContext(cmd, line, "")
			}
			prepared := assembler.Assemble(cmd.Context(), sessionID, line, chatSystem, external)
			if prepared.Summary != nil {
				internal.LogInfo("Summarized %d older message(s) (%s)", prepared.Decision.OldMessages, prepared.Summary.Status)
			}

			var reply string
			err := internal.ShowProgress(cmd.Context(), errOut, "Thinking", func() error {
				var chatErr error
				reply, chatErr = client.Chat(cmd.Context(), cfg.ChatModel(), prepared.Messages)
				return chatErr
			})
			if err != nil {
				fmt.Fprintln(errOut, errorStyle.Render("✗ model call failed:"), err)
				continue
			}

			if _, err := store.Append(sessionID, internal.RoleUser, line); err != nil {
				return fmt.Errorf("failed to store user message: %w", err)
			}
			if _, err := store.Append(sessionID, internal.RoleAssistant, reply); err != nil {
				return fmt.Errorf("failed to store reply: %w", err)
			}
			if chatIndex {
				indexBestEffort(cmd, sessionID, internal.RoleUser, line)
				indexBestEffort(cmd, sessionID, internal.RoleAssistant, reply)
			}
			turns++

			fmt.Fprintln(out, assistantMessageStyle.Render("🤖 Assistant"))
			fmt.Fprintln(out, messageContentStyle.Render(wrapText(strings.TrimSpace(reply), 80)))
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		fmt.Fprintln(errOut)
		internal.LogDebug("Chat ended after %d turn(s) in %s", turns, sessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "System prompt (default from config)")
	chatCmd.Flags().BoolVar(&chatRAG, "rag", false, "Retrieve context for each message from the retrieval index")
	chatCmd.Flags().BoolVar(&chatIndex, "index", false, "Add each stored turn to the retrieval index")
}

package cmd

import (
	"fmt"

	"github.com/iksnae/vibe-context/internal"
	"github.com/iksnae/vibe-context/internal/retrieval"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <session-id> [<role> <content|->]",
	Short: "Add messages to the retrieval index",
	Long: `Embed messages into the retrieval index so later prompts can pull in
relevant context from past sessions (see 'prepare --rag' and 'retrieve').

With a role and content a single message is indexed. With only a session id,
that session's whole stored history is indexed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("accepts 1 or 3 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		ix, err := openIndex()
		if err != nil {
			return err
		}
		defer ix.Close()

		var history []internal.Message
		if len(args) == 3 {
			content, err := readContent(cmd, args[2])
			if err != nil {
				return err
			}
			history = []internal.Message{{Role: internal.ParseRole(args[1]), Content: content}}
		} else {
			store, err := openStore()
			if err != nil {
				return err
			}
			history = store.Load(sessionID)
			_ = store.Close()
		}

		chunks, err := indexHistory(cmd, ix, sessionID, history)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", sessionID, err)
		}

		total, err := ix.Count(sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Indexed %s chunk(s) from %d message(s); %s now has %s chunk(s)\n",
			successStyle.Render("✓"), countStyle.Render(fmt.Sprint(chunks)), len(history),
			idStyle.Render(sessionID), countStyle.Render(fmt.Sprint(total)))
		return nil
	},
}

func indexHistory(cmd *cobra.Command, ix *retrieval.Index, sessionID string, history []internal.Message) (int, error) {
	var chunks int
	err := internal.ShowProgress(cmd.Context(), cmd.ErrOrStderr(),
		fmt.Sprintf("Embedding %d message(s)", len(history)),
		func() error {
			n, err := ix.IndexHistory(cmd.Context(), sessionID, history)
			chunks = n
			return err
		})
	return chunks, err
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

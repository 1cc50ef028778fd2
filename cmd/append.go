package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/vibe-context/internal"
	"github.com/spf13/cobra"
)

var appendIndex bool

var appendCmd = &cobra.Command{
	Use:   "append <session-id> <role> <content|->",
	Short: "Append a message to a session",
	Long: `Append one message to a session's stored history.

Role must be "user" or "assistant". Pass "-" as content to read it from stdin.
With --index the message is also embedded into the retrieval index.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		role := internal.ParseRole(args[1])
		if !role.IsConversational() {
			return fmt.Errorf("invalid role %q: must be user or assistant", args[1])
		}

		content, err := readContent(cmd, args[2])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		msg, err := store.Append(sessionID, role, content)
		if err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}

		if appendIndex {
			indexBestEffort(cmd, sessionID, role, content)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s message to %s at %s\n",
			successStyle.Render("✓"), msg.Role, idStyle.Render(sessionID), msg.Timestamp)
		return nil
	},
}

// readContent returns arg, or all of stdin when arg is "-".
func readContent(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// indexBestEffort adds a message to the retrieval index, logging failures.
func indexBestEffort(cmd *cobra.Command, sessionID string, role internal.Role, content string) {
	ix, err := openIndex()
	if err != nil {
		internal.LogWarn("Skipping retrieval index update: %v", err)
		return
	}
	defer ix.Close()

	n, err := ix.IndexMessage(cmd.Context(), sessionID, role, content)
	if err != nil {
		internal.LogWarn("Failed to index message for %s: %v", sessionID, err)
		return
	}
	internal.LogDebug("Indexed %d chunk(s) for %s", n, sessionID)
}

func init() {
	rootCmd.AddCommand(appendCmd)
	appendCmd.Flags().BoolVar(&appendIndex, "index", false, "Also add the message to the retrieval index")
}

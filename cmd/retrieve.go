package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iksnae/vibe-context/internal"
	"github.com/iksnae/vibe-context/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	retrieveSession string
	retrieveTopK    int
	retrieveJSON    bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Query the retrieval index",
	Long: `Print the indexed chunks most similar to a query, joined the same way
they are handed to the prompt assembler as external context.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		topK := retrieveTopK
		if topK <= 0 {
			topK = cfg.Retrieval.TopK
		}

		ix, err := openIndex()
		if err != nil {
			return err
		}
		defer ix.Close()

		matches, err := ix.Search(cmd.Context(), query, retrieveSession, topK)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if retrieveJSON {
			if matches == nil {
				matches = []retrieval.Match{}
			}
			data, err := json.MarshalIndent(matches, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(matches) == 0 {
			internal.LogInfo("No matching context for %q", query)
			return nil
		}
		for _, m := range matches {
			internal.LogDebug("match %s session=%s score=%.4f", m.ID, m.SessionID, m.Score)
		}
		fmt.Fprintln(out, retrieval.JoinMatches(matches))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVar(&retrieveSession, "session", "", "Only search chunks from this session")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "Number of chunks to return (default from config, max 20)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "Print matches with scores as JSON")
}

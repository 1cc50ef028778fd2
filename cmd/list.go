package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var listReindex bool

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// reindexer is implemented by stores whose listing comes from a rebuildable index.
type reindexer interface {
	Reindex() error
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List every stored session with its message count and last update, most recent first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if listReindex {
			if r, ok := store.(reindexer); ok {
				if err := r.Reindex(); err != nil {
					return fmt.Errorf("failed to rebuild session index: %w", err)
				}
			}
		}

		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(entries))))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Turns")+"\t"+titleStyle.Render("Updated")+"\t")
		_, _ = fmt.Fprintln(w, strings.Repeat("─", 72))
		for _, entry := range entries {
			updated := "-"
			if t, err := time.Parse(time.RFC3339, entry.UpdatedAt); err == nil {
				updated = t.Local().Format("2006-01-02 15:04")
			} else if entry.UpdatedAt != "" {
				updated = entry.UpdatedAt
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				idStyle.Render(entry.ID),
				countStyle.Render(strconv.Itoa(entry.MessageCount)),
				strconv.Itoa(entry.MessageCount/2),
				dateStyle.Render(updated))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listReindex, "reindex", false, "Rebuild the session index from the history files first")
}

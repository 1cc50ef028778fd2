package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/vibe-context/internal"
	"github.com/spf13/cobra"
)

var healthcheckStrict bool

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check storage and the summarization endpoint",
	Long: `Check the health of vibe-context by verifying:
  • The resolved configuration
  • The history directory is writable
  • The session store can be opened and listed
  • The summarization endpoint is reachable and serves the configured model

An unreachable endpoint is only a warning, since summaries then degrade to a
placeholder; pass --strict to treat it as a failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, sectionStyle.Render("🔍 vibe-context Health Check"))
		fmt.Fprintln(w)

		// Step 1: Configuration
		fmt.Fprintln(w, infoStyle.Render("Step 1: Resolving configuration..."))
		fmt.Fprintln(w, successStyle.Render("✅ Configuration loaded"))
		policy := cfg.Policy()
		fmt.Fprintf(w, "   History dir: %s\n", cfg.HistoryDir)
		fmt.Fprintf(w, "   Store backend: %s\n", cfg.Store.Backend)
		fmt.Fprintf(w, "   Trigger: keep %d turn(s), summarize at %d turn(s) or > %d old tokens\n",
			policy.KeepRawTurns, policy.TurnThreshold, policy.TokenThreshold)
		if verbose {
			fmt.Fprintf(w, "   Summarizer: %s (%s)\n", cfg.Summarizer.URL, cfg.Summarizer.Model)
			fmt.Fprintf(w, "   Chat model: %s\n", cfg.ChatModel())
			fmt.Fprintf(w, "   Retrieval index: %s\n", cfg.Retrieval.DBPath)
		}
		fmt.Fprintln(w)

		// Step 2: History directory
		fmt.Fprintln(w, infoStyle.Render("Step 2: Checking history directory..."))
		storageOK := true
		if err := checkWritable(cfg.HistoryDir); err != nil {
			storageOK = false
			fmt.Fprintln(w, errorStyle.Render("❌ History directory is not writable:"), err)
		} else {
			fmt.Fprintln(w, successStyle.Render("✅ History directory is writable"))
		}
		fmt.Fprintln(w)

		// Step 3: Session store
		fmt.Fprintln(w, infoStyle.Render("Step 3: Listing sessions..."))
		sessionCount := 0
		if store, err := openStore(); err != nil {
			storageOK = false
			fmt.Fprintln(w, errorStyle.Render("❌ Failed to open session store:"), err)
		} else {
			entries, err := store.List()
			_ = store.Close()
			if err != nil {
				storageOK = false
				fmt.Fprintln(w, errorStyle.Render("❌ Failed to list sessions:"), err)
			} else {
				sessionCount = len(entries)
				fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", sessionCount)))
				listFirst(w, entries, 5)
			}
		}
		fmt.Fprintln(w)

		// Step 4: Summarization endpoint
		fmt.Fprintln(w, infoStyle.Render("Step 4: Contacting summarization endpoint..."))
		endpointOK := true
		models, err := newClient().ListModels(cmd.Context())
		switch {
		case err != nil:
			endpointOK = false
			fmt.Fprintln(w, warningStyle.Render("⚠️  Endpoint unreachable:"), err)
			fmt.Fprintln(w, "   Summaries will fall back to a placeholder until it is available")
		case !slices.Contains(models, cfg.Summarizer.Model):
			endpointOK = false
			fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  Model %q is not loaded", cfg.Summarizer.Model)))
			if verbose {
				for _, m := range models {
					fmt.Fprintf(w, "   • %s\n", m)
				}
			}
		default:
			fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Endpoint serves %s (%d model(s) loaded)", cfg.Summarizer.Model, len(models))))
		}
		fmt.Fprintln(w)

		// Summary
		fmt.Fprintln(w, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(w)

		switch {
		case !storageOK:
			fmt.Fprintln(w, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(w, "   • Session history cannot be stored")
			return fmt.Errorf("health check failed: storage unavailable")
		case !endpointOK && healthcheckStrict:
			fmt.Fprintln(w, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(w, "   • Summarization endpoint is not ready")
			return fmt.Errorf("health check failed: summarization endpoint not ready")
		case !endpointOK:
			fmt.Fprintln(w, warningStyle.Render("⚠️  Storage is fine but summarization is degraded"))
			return nil
		default:
			fmt.Fprintln(w, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("   • Sessions: %d found", sessionCount)))
			return nil
		}
	},
}

// checkWritable creates dir if needed and writes a probe file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func listFirst(w io.Writer, entries []internal.SessionIndexEntry, n int) {
	if !verbose {
		return
	}
	for i, entry := range entries {
		if i == n {
			fmt.Fprintf(w, "   ... and %d more\n", len(entries)-n)
			return
		}
		fmt.Fprintf(w, "   [%d] %s (%d message(s))\n", i+1, entry.ID, entry.MessageCount)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckStrict, "strict", false, "Fail when the summarization endpoint is not ready")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/vibe-context/internal"
	"github.com/iksnae/vibe-context/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	configPath string
	historyDir string
	verbose    bool
	logFile    string
	logLevel   string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// cfg is resolved once per invocation by the root PersistentPreRunE.
var cfg *internal.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vibe-context",
	Short: "Manage LLM conversation context: history, summaries and prompt assembly",
	Long: `A CLI for keeping long LLM conversations inside a model's context window.

Each session's history is stored on disk. Before every model call the prompt
is rebuilt from the system prompt, optional retrieved context, a summary of
older turns (produced by a local OpenAI-compatible model once the history
grows past the configured thresholds) and the most recent raw turns.

Quick Start:
  vibe-context append demo user "How do I profile a Go service?"
  vibe-context prepare demo "And what about memory?" --explain
  vibe-context chat demo                  # interactive loop against chat.model
  vibe-context show demo                  # view the stored history
  vibe-context healthcheck                # verify endpoint and storage

Configuration is read from ~/.vibe-context/config.yaml, VIBECTX_* environment
variables and a .env file in the working directory.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.LoadDotEnv(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		v := internal.NewViper()
		flags := cmd.Root().PersistentFlags()
		if err := v.BindPFlag("history_dir", flags.Lookup("history-dir")); err != nil {
			return err
		}
		if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
			return err
		}

		path, required := configPath, configPath != ""
		if !required {
			path = internal.DefaultConfigPath()
		}
		loaded, err := internal.LoadConfig(v, path, required)
		if err != nil {
			return err
		}
		cfg = loaded

		return internal.ConfigureLogging(cfg.LogLevel, verbose, logFile)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured session store.
func openStore() (internal.Store, error) {
	store, err := internal.OpenStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return store, nil
}

func newClient() *internal.OpenAIClient {
	return internal.NewOpenAIClient(cfg.ClientConfig())
}

// newAssembler wires the summarizer and trigger policy from cfg around history.
func newAssembler(history internal.HistoryLoader, client *internal.OpenAIClient) *internal.Assembler {
	opts := []internal.SummarizerOption{internal.WithModelName(cfg.Summarizer.Model)}
	if cfg.Summarizer.Cache {
		opts = append(opts, internal.WithSummaryCache(internal.NewSummaryCache(internal.DefaultSummaryCacheSize)))
	}
	return internal.NewAssembler(history,
		internal.NewSummarizer(client, opts...),
		internal.WithTriggerPolicy(cfg.Policy()),
		internal.WithDefaultSystemPrompt(cfg.SystemPrompt),
	)
}

// openIndex opens the retrieval index, embedding through the summarizer endpoint.
func openIndex() (*retrieval.Index, error) {
	embedder := retrieval.NewOpenAIEmbedder(cfg.Summarizer.URL, cfg.Summarizer.APIKey,
		cfg.Retrieval.EmbeddingModel, cfg.Summarizer.Timeout)
	ix, err := retrieval.Open(cfg.Retrieval.DBPath, embedder, retrieval.Options{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open retrieval index: %w", err)
	}
	return ix, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.vibe-context/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&historyDir, "history-dir", "", "Directory holding session histories (overrides history_dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

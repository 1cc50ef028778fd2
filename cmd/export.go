package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/vibe-context/internal"
	"github.com/iksnae/vibe-context/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputPath string
	outputDir  string
	exportAll  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export session histories to file",
	Long: `Export session histories to jsonl, md, yaml, json or txt.

With a session id the export goes to --output, or stdout when unset.
With --all every stored session is written to --out-dir as
session_<id>.<ext>. Use 'vibe-context list' to see available session IDs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAll == (len(args) == 1) {
			return fmt.Errorf("pass either a session id or --all")
		}

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if !exportAll {
			session := internal.LoadSession(store, args[0])
			return exportOne(exporter, session, outputPath, cmd.OutOrStdout())
		}

		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.ExportError{Format: format, Path: outputDir, Err: err}
		}

		steps := make([]internal.ProgressStep, 0, len(entries))
		for _, entry := range entries {
			id := entry.ID
			steps = append(steps, internal.ProgressStep{
				Message: fmt.Sprintf("Exporting %s", id),
				Fn: func() error {
					name := fmt.Sprintf("session_%s.%s", internal.SanitizeSessionID(id), exporter.Extension())
					return exportOne(exporter, internal.LoadSession(store, id), filepath.Join(outputDir, name), nil)
				},
			})
		}
		if err := internal.ShowProgressWithSteps(cmd.Context(), cmd.ErrOrStderr(), steps); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Export complete: %d session(s) exported to %s\n",
			successStyle.Render("✓"), len(entries), outputDir)
		return nil
	},
}

// exportOne writes session to path, or to fallback when path is empty or "-".
func exportOne(exporter export.Exporter, session *internal.Session, path string, fallback io.Writer) error {
	if path == "" || path == "-" {
		if fallback == nil {
			return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: fmt.Errorf("no output destination")}
		}
		return exporter.Export(session, fallback)
	}

	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	internal.LogDebug("Exported session %s to %s", session.ID, path)
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats(), ", ")+")")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file for a single session (default stdout)")
	exportCmd.Flags().StringVar(&outputDir, "out-dir", "./exports", "Output directory for --all")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every stored session")
}

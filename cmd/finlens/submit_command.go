package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"finlens/internal/daemon"
)

// defaultQuery stands in when the caller submits a document without asking
// anything specific.
const defaultQuery = "Analyze this financial document for investment insights"

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "submit <document>",
		Short: "Submit a financial document for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read document %q: %w", path, err)
			}

			query = strings.TrimSpace(query)
			if query == "" {
				query = defaultQuery
			}

			d, err := daemon.New(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer d.Close()

			outcome, err := d.Scheduler().Submit(cmd.Context(), query, content, filepath.Ext(path))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s submitted (%s)\n", outcome.JobID, outcome.Mode)
			fmt.Fprintf(out, "Status: %s\n", outcome.Job.Status)
			fmt.Fprintf(out, "Check progress with `finlens status %s`\n", outcome.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Analysis question to ask about the document")
	return cmd
}

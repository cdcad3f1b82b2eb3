package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finlens/internal/analysis"
	"finlens/internal/jobs"
	"finlens/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status and result of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view := job.View()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:     %s\n", view.ID)
			fmt.Fprintf(out, "Status:  %s\n", view.Status)
			fmt.Fprintf(out, "Query:   %s\n", textutil.Truncate(view.Query, 120))
			fmt.Fprintf(out, "Created: %s\n", view.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated: %s\n", view.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

			if view.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:   %s\n", view.ErrorMessage)
			}
			if view.ResultJSON == "" {
				return nil
			}

			report, err := analysis.DecodeReport(view.ResultJSON)
			if err != nil {
				return fmt.Errorf("decode stored report: %w", err)
			}
			if report.Degraded {
				fmt.Fprintf(out, "Degraded: yes (failed stages: %v)\n", report.FailedStages)
			}
			for _, result := range report.Stages {
				fmt.Fprintf(out, "\n== %s ==\n", textutil.Label(result.Stage))
				for _, warning := range result.Warnings {
					fmt.Fprintf(out, "warning: %s\n", warning)
				}
				fmt.Fprintln(out, result.Output)
			}
			fmt.Fprintf(out, "\n%s\n", report.Disclaimer)
			return nil
		},
	}
}

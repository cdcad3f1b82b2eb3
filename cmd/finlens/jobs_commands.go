package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"finlens/internal/jobs"
	"finlens/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job queue",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var statuses []jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := jobs.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of %v)", trimmed, jobs.AllStatuses())
				}
				statuses = append(statuses, status)
			}

			store, err := jobs.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, job := range records {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					textutil.Truncate(job.Query, 48),
					job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Query", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show jobs in this state")
	return cmd
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate job counts per state",
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

			summary, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"pending", strconv.Itoa(summary.Pending)},
				{"processing", strconv.Itoa(summary.Processing)},
				{"completed", strconv.Itoa(summary.Completed)},
				{"failed", strconv.Itoa(summary.Failed)},
				{"total", strconv.Itoa(summary.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"State", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

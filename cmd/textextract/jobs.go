package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show recent extraction jobs from the job ledger",
	Long:  "jobs lists the most recent rows of the extract_job table. Recording must be enabled with jobs.record (JOBS_RECORD=true).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cfg.Jobs.Record {
			return fmt.Errorf("job ledger is disabled; set jobs.record or JOBS_RECORD=true")
		}
		ctx := cmd.Context()
		a, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		jobs, err := a.jobs.ListRecent(ctx, jobsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUED AT\tSTATUS\tCLASS\tCHARS\tDURATION\tPATH\tERROR")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				j.QueuedAt.Local().Format(time.DateTime), j.Status, j.Class, j.TextLength,
				j.Duration().Round(time.Millisecond), j.SourcePath, j.Error)
		}
		return tw.Flush()
	},
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to show")
	rootCmd.AddCommand(jobsCmd)
}

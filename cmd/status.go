package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Poll one job and update the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jobID := args[0]

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		job, err := e.Store.GetJob(ctx, jobID)
		if err != nil {
			return eris.Wrapf(err, "status: %s", jobID)
		}

		batch, err := e.Client.GetBatch(ctx, jobID)
		if err != nil {
			return eris.Wrap(err, "status: poll remote")
		}
		if err := ledger.ApplyBatch(job, batch, time.Now()); err != nil {
			return eris.Wrap(err, "status")
		}
		if err := e.Store.UpsertJob(ctx, *job); err != nil {
			return eris.Wrap(err, "status: upsert")
		}

		printJob(*job)
		return nil
	},
}

func printJob(j model.Job) {
	line := fmt.Sprintf("%-20s %-12s rows=%-5d created=%s", shortID(j.ID), j.Status, j.RowCount,
		j.CreatedAt.Format(time.RFC3339))
	if j.Counts != nil {
		line += fmt.Sprintf("  progress=%d/%d failed=%d", j.Counts.Completed, j.Counts.Total, j.Counts.Failed)
	}
	if j.Description != "" {
		line += "  " + j.Description
	}
	fmt.Println(line)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

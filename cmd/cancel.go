package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/connections-cli/internal/ledger"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Ask the remote service to cancel a job",
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
			return eris.Wrapf(err, "cancel: %s", jobID)
		}
		if job.Status.IsTerminal() {
			return eris.Errorf("cancel: job %s already %s", jobID, job.Status)
		}

		batch, err := e.Client.CancelBatch(ctx, jobID)
		if err != nil {
			return eris.Wrap(err, "cancel")
		}
		if err := ledger.ApplyBatch(job, batch, time.Now()); err != nil {
			return eris.Wrap(err, "cancel")
		}
		if err := e.Store.UpsertJob(ctx, *job); err != nil {
			return eris.Wrap(err, "cancel: upsert")
		}

		fmt.Printf("job %s is now %s\n", jobID, job.Status)
		return nil
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

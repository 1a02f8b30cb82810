package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/poller"
)

var (
	jobsActiveOnly   bool
	jobsReattachScan int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs in the local ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListJobs(ctx)
		if err != nil {
			return eris.Wrap(err, "jobs")
		}
		if jobsActiveOnly {
			n := 0
			for _, j := range list {
				if j.Status.IsActive() {
					list[n] = j
					n++
				}
			}
			list = list[:n]
		}

		if len(list) == 0 {
			fmt.Println("no jobs")
			return nil
		}
		for _, j := range list {
			printJob(j)
		}
		return nil
	},
}

var jobsRmCmd = &cobra.Command{
	Use:   "rm <job-id>",
	Short: "Delete a job and its contact snapshot from the ledger",
	Long:  "Deletion is only ever an explicit user action; nothing is removed automatically. The remote job itself is untouched.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteJob(ctx, args[0]); err != nil {
			return eris.Wrapf(err, "jobs rm: %s", args[0])
		}
		fmt.Printf("removed job %s\n", args[0])
		return nil
	},
}

var jobsReattachCmd = &cobra.Command{
	Use:   "reattach",
	Short: "Import remote jobs the local ledger does not know about",
	Long: `Lists batches known to the remote service and imports any that are missing
from the local ledger. Jobs imported this way have no contact snapshot here,
so they can be tracked and downloaded but reconciled only against a locally
supplied CSV.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		imported, err := poller.Reattach(ctx, e.Store, e.Client, jobsReattachScan)
		if err != nil {
			return eris.Wrap(err, "jobs reattach")
		}

		zap.L().Info("reattach complete", zap.Int("imported", len(imported)))
		if len(imported) == 0 {
			fmt.Println("ledger already knows every remote job")
			return nil
		}
		for _, j := range imported {
			printJob(j)
		}
		return nil
	},
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsActiveOnly, "active", false, "show only jobs that still need polling")
	jobsReattachCmd.Flags().IntVar(&jobsReattachScan, "scan", 50, "max remote jobs to scan")
	jobsCmd.AddCommand(jobsRmCmd)
	jobsCmd.AddCommand(jobsReattachCmd)
	rootCmd.AddCommand(jobsCmd)
}

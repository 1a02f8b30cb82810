package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/contacts"
	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/internal/reconcile"
	"github.com/sells-group/connections-cli/internal/schema"
)

var (
	resultsFormat   string
	resultsOutput   string
	resultsCSV      string
	resultsValidate bool
)

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Fetch a completed job's results and reconcile them onto the contacts",
	Long: `Downloads the job's raw output document, merges it onto the contact
snapshot captured at submit time (or onto --csv for reattached jobs), and
writes the enriched rows in the requested format.

The merge is pure and re-runnable: fetching and merging again after a
disconnect yields the identical output.`,
	Args: cobra.ExactArgs(1),
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
			return eris.Wrapf(err, "results: %s", jobID)
		}
		if job.Status != model.JobStatusCompleted {
			return eris.Errorf("results: job %s is %s, not completed", jobID, job.Status)
		}
		if job.OutputFileID == "" {
			return eris.Errorf("results: job %s has no output artifact yet", jobID)
		}

		list, err := resultsContacts(cmd, e.Store, jobID)
		if err != nil {
			return err
		}

		raw, err := e.Client.GetFileContent(ctx, job.OutputFileID)
		if err != nil {
			return eris.Wrap(err, "results: fetch output")
		}

		opts := reconcile.Options{}
		if resultsValidate {
			validator, err := schema.CompileValidator(schema.ContactEnrichment())
			if err != nil {
				return eris.Wrap(err, "results: compile validator")
			}
			opts.Validator = validator
		}

		merged, err := reconcile.Merge(list, raw, opts)
		if err != nil {
			return eris.Wrap(err, "results: merge")
		}

		if err := writeRows(merged.Rows); err != nil {
			return err
		}

		s := merged.Stats
		zap.L().Info("results reconciled",
			zap.String("job_id", jobID),
			zap.Int("total", s.Total),
			zap.Int("enriched", s.Enriched),
			zap.Int("with_location", s.WithLocation),
			zap.Int("with_stats", s.WithStats),
			zap.Int("errors", s.Errors),
		)
		fmt.Fprintf(os.Stderr, "succeeded with %d errors out of %d rows (%d enriched, %d located)\n",
			s.Errors, s.Total, s.Enriched, s.WithLocation)
		return nil
	},
}

// resultsContacts loads the contact snapshot, falling back to --csv for
// jobs imported via reattach.
func resultsContacts(cmd *cobra.Command, st ledger.Store, jobID string) ([]model.Contact, error) {
	list, err := st.GetContacts(cmd.Context(), jobID)
	if err == nil {
		return list, nil
	}
	if !eris.Is(err, ledger.ErrJobNotFound) {
		return nil, eris.Wrap(err, "results: load snapshot")
	}
	if resultsCSV == "" {
		return nil, eris.Errorf("results: job %s has no contact snapshot here (imported via reattach?); supply the original rows with --csv", jobID)
	}
	return loadContacts("", resultsCSV)
}

// writeRows writes the enriched rows in the selected format.
func writeRows(rows []model.EnrichedRow) error {
	var w io.Writer = os.Stdout
	if resultsOutput != "" {
		f, err := os.Create(resultsOutput)
		if err != nil {
			return eris.Wrap(err, "results: create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch resultsFormat {
	case "json":
		return contacts.WriteJSON(w, rows)
	case "csv":
		return contacts.WriteCSV(w, rows)
	case "xlsx":
		return contacts.WriteXLSX(w, rows)
	case "geojson":
		return contacts.WriteGeoJSON(w, rows)
	default:
		return eris.Errorf("results: unknown format %q (json, csv, xlsx, geojson)", resultsFormat)
	}
}

func init() {
	resultsCmd.Flags().StringVar(&resultsFormat, "format", "json", "output format: json, csv, xlsx or geojson")
	resultsCmd.Flags().StringVar(&resultsOutput, "output", "", "write to file (default: stdout)")
	resultsCmd.Flags().StringVar(&resultsCSV, "csv", "", "reconcile against this CSV instead of the stored snapshot")
	resultsCmd.Flags().BoolVar(&resultsValidate, "validate", false, "validate each payload against the submission schema")
	rootCmd.AddCommand(resultsCmd)
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/compiler"
	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/schema"
	"github.com/sells-group/connections-cli/pkg/openai"
)

var (
	submitZip         string
	submitCSV         string
	submitLimit       int
	submitDescription string
	submitDryRun      bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Compile contacts into a batch job and submit it",
	Long: `Parses the connections export, compiles one schema-constrained inference
request per contact, uploads the batch input document, opens the remote job,
and records it in the local ledger together with a snapshot of the contacts
so results can be reconciled later from any session.

Examples:
  connections-cli submit --zip export.zip --description "march export"
  connections-cli submit --csv Connections.csv --limit 50 --dry-run`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		list, err := loadContacts(submitZip, submitCSV)
		if err != nil {
			return eris.Wrap(err, "submit")
		}
		if submitLimit > 0 && submitLimit < len(list) {
			list = list[:submitLimit]
		}
		if len(list) == 0 {
			return eris.New("submit: no contacts to enrich")
		}

		lines, err := compiler.Compile(list, schema.ContactEnrichment(), compiler.Options{
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		})
		if err != nil {
			return eris.Wrap(err, "submit: compile")
		}
		zap.L().Info("compiled batch",
			zap.Int("contacts", len(list)),
			zap.Int("requests", len(lines)),
			zap.String("model", cfg.OpenAI.Model),
		)

		if submitDryRun {
			doc, err := openai.EncodeLines(lines)
			if err != nil {
				return err
			}
			fmt.Print(string(doc))
			return nil
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		batch, err := openai.Submit(ctx, e.Client, lines, openai.SubmitRequest{
			CompletionWindow: cfg.OpenAI.CompletionWindow,
			Metadata: map[string]string{
				"source":      "connections-cli",
				"session_id":  uuid.New().String(),
				"description": submitDescription,
				"row_count":   strconv.Itoa(len(list)),
			},
		})
		if err != nil {
			return eris.Wrap(err, "submit")
		}

		job, err := ledger.JobFromBatch(batch)
		if err != nil {
			return eris.Wrap(err, "submit: record job")
		}
		if job.CreatedAt.IsZero() {
			job.CreatedAt = time.Now().UTC()
		}
		job.RowCount = len(list)
		job.Description = submitDescription

		if err := e.Store.UpsertJob(ctx, job); err != nil {
			return eris.Wrap(err, "submit: upsert job")
		}
		if err := e.Store.PutContacts(ctx, job.ID, list); err != nil {
			return eris.Wrap(err, "submit: snapshot contacts")
		}

		zap.L().Info("batch submitted",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.Int("rows", job.RowCount),
		)
		fmt.Printf("submitted job %s (%d contacts, status %s)\n", job.ID, job.RowCount, job.Status)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitZip, "zip", "", "path to network-export ZIP archive")
	submitCmd.Flags().StringVar(&submitCSV, "csv", "", "path to connections CSV file")
	submitCmd.Flags().IntVar(&submitLimit, "limit", 0, "max contacts to submit (0 = all)")
	submitCmd.Flags().StringVar(&submitDescription, "description", "", "free-form job description stored locally and in remote metadata")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "print the batch input document instead of submitting")
	rootCmd.AddCommand(submitCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importZip  string
	importCSV  string
	importJSON bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse a connections export and preview the contacts",
	Long: `Extracts and parses the connections table without submitting anything.

Examples:
  # Preview contacts inside a network-export archive
  connections-cli import --zip export.zip

  # Parse a bare CSV and dump contacts as JSON
  connections-cli import --csv Connections.csv --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := loadContacts(importZip, importCSV)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		zap.L().Info("parsed connections", zap.Int("contacts", len(list)))

		if importJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		for i, c := range list {
			fmt.Printf("%4d  %-30s %-30s %s\n", i+1, c.FullName(), c.Company, c.Position)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importZip, "zip", "", "path to network-export ZIP archive")
	importCmd.Flags().StringVar(&importCSV, "csv", "", "path to connections CSV file")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "print contacts as JSON")
	rootCmd.AddCommand(importCmd)
}

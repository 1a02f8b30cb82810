package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/connections-cli/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml populated with the defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return eris.Errorf("config init: %s already exists (use --force to overwrite)", path)
		}

		// Nest the flat default keys into a yaml tree.
		tree := map[string]map[string]any{}
		for key, val := range config.Defaults() {
			section, field, ok := strings.Cut(key, ".")
			if !ok {
				continue
			}
			if tree[section] == nil {
				tree[section] = map[string]any{}
			}
			tree[section][field] = val
		}

		raw, err := yaml.Marshal(tree)
		if err != nil {
			return eris.Wrap(err, "config init: marshal")
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return eris.Wrap(err, "config init: write")
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config.yaml")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

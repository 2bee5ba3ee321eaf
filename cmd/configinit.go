package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/config"
)

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a default config.yaml to the current directory",
	Long: `Writes config.yaml with every knob at its default value. Secrets are
left blank; set them via PROSPECT_* environment variables or a .env file
rather than committing them to the config.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		const path = "config.yaml"

		if !configInitForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("config-init: %s already exists (use --force to overwrite)", path)
			}
		}

		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return eris.Wrap(err, "config-init: marshal defaults")
		}

		header := []byte("# prospect-cli configuration. Every key can be overridden by a\n# PROSPECT_* environment variable, e.g. store.driver -> PROSPECT_STORE_DRIVER.\n")
		if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
			return eris.Wrap(err, "config-init: write config")
		}

		fmt.Fprintf(os.Stderr, "Wrote %s.\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(configInitCmd)
}

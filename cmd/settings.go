package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

var genSettingsCmdDataDir string
var genSettingsCmdArgsPath string

func init() {
	genSettingsCmd.Flags().StringVar(&genSettingsCmdDataDir, "data", "", "directory holding model.json; settings.json is written next to it")
	genSettingsCmd.Flags().StringVar(&genSettingsCmdArgsPath, "args", "", "path to the run arguments JSON")
	genSettingsCmd.MarkFlagRequired("data")
	genSettingsCmd.MarkFlagRequired("args")
}

var genSettingsCmd = &cobra.Command{
	Use:   "gen-settings",
	Short: "Derive circuit settings from a model and run arguments",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := os.ReadFile(filepath.Join(genSettingsCmdDataDir, MODEL_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading model: %w", err)
		}
		runArgs, err := os.ReadFile(genSettingsCmdArgsPath)
		if err != nil {
			return fmt.Errorf("reading run arguments: %w", err)
		}
		settings, err := zkgraph.GenSettingsBytes(model, runArgs)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(genSettingsCmdDataDir, SETTINGS_JSON_FILE), settings, 0644)
	},
}

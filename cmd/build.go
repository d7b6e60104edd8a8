package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

var setupCmdDataDir string
var setupCmdSrsPath string

func init() {
	setupCmd.Flags().StringVar(&setupCmdDataDir, "data", "", "directory holding model.json and settings.json; keys are written next to them")
	setupCmd.Flags().StringVar(&setupCmdSrsPath, "srs", "", "path to the serialized SRS (defaults to kzg.srs in the data directory)")
	setupCmd.MarkFlagRequired("data")
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the proving and verification keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := os.ReadFile(filepath.Join(setupCmdDataDir, MODEL_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading model: %w", err)
		}
		settings, err := os.ReadFile(filepath.Join(setupCmdDataDir, SETTINGS_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		srsPath := setupCmdSrsPath
		if srsPath == "" {
			srsPath = filepath.Join(setupCmdDataDir, SRS_PATH)
		}
		srsBlob, err := os.ReadFile(srsPath)
		if err != nil {
			return fmt.Errorf("reading srs: %w", err)
		}

		pk, err := zkgraph.GenPkBytes(model, settings, srsBlob)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(setupCmdDataDir, PK_PATH), pk, 0644); err != nil {
			return fmt.Errorf("writing proving key: %w", err)
		}

		vk, err := zkgraph.GenVkBytes(pk, settings)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(setupCmdDataDir, VK_PATH), vk, 0644)
	},
}

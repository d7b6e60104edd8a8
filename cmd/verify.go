package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

var verifyCmdDataDir string
var verifyCmdProofPath string

func init() {
	verifyCmd.Flags().StringVar(&verifyCmdDataDir, "data", "", "directory holding settings.json and vk.bin")
	verifyCmd.Flags().StringVar(&verifyCmdProofPath, "proof", "", "path to the proof JSON (defaults to proof.json in the data directory)")
	verifyCmd.MarkFlagRequired("data")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a proof",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := os.ReadFile(filepath.Join(verifyCmdDataDir, SETTINGS_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		vk, err := os.ReadFile(filepath.Join(verifyCmdDataDir, VK_PATH))
		if err != nil {
			return fmt.Errorf("reading verification key: %w", err)
		}
		proofPath := verifyCmdProofPath
		if proofPath == "" {
			proofPath = filepath.Join(verifyCmdDataDir, PROOF_JSON_FILE)
		}
		proof, err := os.ReadFile(proofPath)
		if err != nil {
			return fmt.Errorf("reading proof: %w", err)
		}

		ok, err := zkgraph.VerifyBytes(proof, vk, settings)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("proof rejected")
		}
		fmt.Println("proof verified")
		return nil
	},
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

var proveCmdDataDir string
var proveCmdWitnessPath string
var proveCmdProofPath string
var proveCmdTranscript string

func init() {
	proveCmd.Flags().StringVar(&proveCmdDataDir, "data", "", "directory holding model.json, settings.json and pk.bin")
	proveCmd.Flags().StringVar(&proveCmdWitnessPath, "witness", "", "path to the witness JSON (defaults to witness.json in the data directory)")
	proveCmd.Flags().StringVar(&proveCmdProofPath, "proof", "", "output path for the proof (defaults to proof.json in the data directory)")
	proveCmd.Flags().StringVar(&proveCmdTranscript, "transcript", "evm", "transcript type: evm or native")
	proveCmd.MarkFlagRequired("data")
}

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Generate a proof for a witness",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := os.ReadFile(filepath.Join(proveCmdDataDir, MODEL_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading model: %w", err)
		}
		settings, err := os.ReadFile(filepath.Join(proveCmdDataDir, SETTINGS_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		pk, err := os.ReadFile(filepath.Join(proveCmdDataDir, PK_PATH))
		if err != nil {
			return fmt.Errorf("reading proving key: %w", err)
		}
		witnessPath := proveCmdWitnessPath
		if witnessPath == "" {
			witnessPath = filepath.Join(proveCmdDataDir, WITNESS_JSON_FILE)
		}
		witness, err := os.ReadFile(witnessPath)
		if err != nil {
			return fmt.Errorf("reading witness: %w", err)
		}

		proof, err := zkgraph.ProveBytes(witness, pk, model, settings, zkgraph.TranscriptType(proveCmdTranscript))
		if err != nil {
			return err
		}

		proofPath := proveCmdProofPath
		if proofPath == "" {
			proofPath = filepath.Join(proveCmdDataDir, PROOF_JSON_FILE)
		}
		return os.WriteFile(proofPath, proof, 0644)
	},
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var MODEL_JSON_FILE string = "model.json"
var SETTINGS_JSON_FILE string = "settings.json"
var WITNESS_JSON_FILE string = "witness.json"
var PROOF_JSON_FILE string = "proof.json"
var SRS_PATH string = "kzg.srs"
var VK_PATH string = "vk.bin"
var PK_PATH string = "pk.bin"

var rootCmd = &cobra.Command{
	Use:   "zkgraph",
	Short: "Prove and verify fixed-point computation graphs",
}

func init() {
	rootCmd.AddCommand(genSettingsCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(genSrsCmd)
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

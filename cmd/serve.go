package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/server"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

var serveCmdDataDir string
var serveCmdPort string
var serveCmdTranscript string

func init() {
	serveCmd.Flags().StringVar(&serveCmdDataDir, "data", "", "directory holding model.json, settings.json, pk.bin and vk.bin")
	serveCmd.Flags().StringVar(&serveCmdPort, "port", "8080", "port to listen on")
	serveCmd.Flags().StringVar(&serveCmdTranscript, "transcript", "evm", "transcript type: evm or native")
	serveCmd.MarkFlagRequired("data")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve proving and verification over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := server.New(context.Background(), serveCmdDataDir, zkgraph.TranscriptType(serveCmdTranscript))
		if err != nil {
			return err
		}
		return s.Start(serveCmdPort)
	},
}

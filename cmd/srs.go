package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/srs"
)

var genSrsCmdDataDir string
var genSrsCmdIgnition bool
var genSrsCmdIgnitionStart int
var genSrsCmdCacheDir string

func init() {
	genSrsCmd.Flags().StringVar(&genSrsCmdDataDir, "data", "", "directory holding settings.json; kzg.srs is written next to it")
	genSrsCmd.Flags().BoolVar(&genSrsCmdIgnition, "ignition", false, "reproduce the Aztec Ignition ceremony instead of generating an unsafe dev srs")
	genSrsCmd.Flags().IntVar(&genSrsCmdIgnitionStart, "ignition-start", 0, "first ceremony contribution to verify from")
	genSrsCmd.Flags().StringVar(&genSrsCmdCacheDir, "cache", "", "cache directory for ceremony downloads")
	genSrsCmd.MarkFlagRequired("data")
}

var genSrsCmd = &cobra.Command{
	Use:   "gen-srs",
	Short: "Obtain a structured reference string",
	Long: `Obtain a structured reference string.

By default an unsafe dev SRS is generated, sized to the row capacity the
settings declare. With --ignition the Aztec Ignition ceremony transcript is
downloaded and verified instead; that SRS is safe for production use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := filepath.Join(genSrsCmdDataDir, SRS_PATH)

		if genSrsCmdIgnition {
			return srs.DownloadIgnition(genSrsCmdIgnitionStart, out, genSrsCmdCacheDir)
		}

		settingsData, err := os.ReadFile(filepath.Join(genSrsCmdDataDir, SETTINGS_JSON_FILE))
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		settings, err := zkgraph.SettingsFromBytes(settingsData)
		if err != nil {
			return err
		}
		s, err := srs.GenerateSize((uint64(1) << settings.RunArgs.Logrows) + 3)
		if err != nil {
			return err
		}
		blob, err := s.Bytes()
		if err != nil {
			return err
		}
		return os.WriteFile(out, blob, 0644)
	},
}

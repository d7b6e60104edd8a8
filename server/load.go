package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

// Artifacts is everything the server needs in memory to serve requests.
type Artifacts struct {
	Graph    *zkgraph.Graph
	Settings *zkgraph.GraphSettings
	Pk       *zkgraph.ProvingKey
	Vk       *zkgraph.VerifyingKey
}

// LoadArtifacts reads the model, settings and both keys from dataDir. The
// key envelopes dominate load time, so they are read concurrently.
func LoadArtifacts(ctx context.Context, dataDir string) (*Artifacts, error) {
	log := logger.Logger().With().Str("component", "server").Logger()
	start := time.Now()

	modelData, err := os.ReadFile(filepath.Join(dataDir, "model.json"))
	if err != nil {
		return nil, errors.Wrap(err, "reading model")
	}
	graph, err := zkgraph.GraphFromBytes(modelData)
	if err != nil {
		return nil, errors.Wrap(err, "decoding model")
	}

	settingsData, err := os.ReadFile(filepath.Join(dataDir, "settings.json"))
	if err != nil {
		return nil, errors.Wrap(err, "reading settings")
	}
	settings, err := zkgraph.SettingsFromBytes(settingsData)
	if err != nil {
		return nil, errors.Wrap(err, "decoding settings")
	}

	a := &Artifacts{Graph: graph, Settings: settings}

	grp, _ := errgroup.WithContext(ctx)
	grp.Go(func() error {
		pkStart := time.Now()
		data, err := os.ReadFile(filepath.Join(dataDir, "pk.bin"))
		if err != nil {
			return errors.Wrap(err, "reading proving key")
		}
		pk, err := zkgraph.ProvingKeyFromBytes(data)
		if err != nil {
			return errors.Wrap(err, "decoding proving key")
		}
		a.Pk = pk
		log.Debug().Dur("took", time.Since(pkStart)).Msg("proving key loaded")
		return nil
	})
	grp.Go(func() error {
		data, err := os.ReadFile(filepath.Join(dataDir, "vk.bin"))
		if err != nil {
			return errors.Wrap(err, "reading verification key")
		}
		vk, err := zkgraph.VerifyingKeyFromBytes(data)
		if err != nil {
			return errors.Wrap(err, "decoding verification key")
		}
		a.Vk = vk
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	log.Info().Dur("took", time.Since(start)).Msg("artifacts loaded")
	return a, nil
}

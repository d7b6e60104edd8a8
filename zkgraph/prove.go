package zkgraph

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	plonk_bn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"
)

// Prove evaluates the graph on the witness, synthesizes the full assignment
// and produces a Snark. The transcript type selects the Fiat-Shamir hash and
// is recorded in the proof so the verifier uses the same one.
func Prove(g *Graph, s *GraphSettings, pk *ProvingKey, w *Witness, transcript TranscriptType) (*Snark, error) {
	log := logger.Logger().With().Str("component", "prover").Logger()

	if !transcript.valid() {
		return nil, fmt.Errorf("%w: transcript type %q", ErrInvalidConfiguration, transcript)
	}
	digest, err := s.Digest()
	if err != nil {
		return nil, err
	}
	if digest != pk.digest {
		return nil, fmt.Errorf("%w: proving key was generated under different settings", ErrKeyMismatch)
	}

	assignment, err := NewAssignment(g, s, w)
	if err != nil {
		return nil, err
	}
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("building witness: %w", err)
	}

	start := time.Now()
	// witness violations surface from the native evaluation inside
	// NewAssignment; a failure here is a backend error, not a bad witness
	proof, err := plonk.Prove(pk.ccs, pk.pk, fullWitness, proverOpts(transcript)...)
	if err != nil {
		return nil, fmt.Errorf("generating proof: %w", err)
	}
	log.Debug().Dur("took", time.Since(start)).Msg("proof generated")

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, fmt.Errorf("extracting public witness: %w", err)
	}
	vec, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected witness vector type", ErrSerialization)
	}
	instances, err := splitInstances(vec, s.NumInstances)
	if err != nil {
		return nil, err
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, fmt.Errorf("%w: writing proof: %v", ErrSerialization, err)
	}

	snark := &Snark{
		Protocol: Protocol{
			Scheme:         "plonk",
			Curve:          "bn254",
			SettingsDigest: hex.EncodeToString(digest[:]),
		},
		Instances:      instances,
		Proof:          hex.EncodeToString(proofBuf.Bytes()),
		TranscriptType: transcript,
	}
	if transcript == TranscriptEVM {
		concrete, ok := proof.(*plonk_bn254.Proof)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected proof curve", ErrSerialization)
		}
		snark.EncodedProof = hex.EncodeToString(concrete.MarshalSolidity())
	}
	return snark, nil
}

// splitInstances carves the flat public witness into the settings' instance
// columns.
func splitInstances(vec fr.Vector, cols []int) ([][]string, error) {
	total := 0
	for _, c := range cols {
		total += c
	}
	if len(vec) != total {
		return nil, fmt.Errorf("%w: public witness has %d values, settings declare %d", ErrSettingsMismatch, len(vec), total)
	}
	out := make([][]string, len(cols))
	off := 0
	for i, c := range cols {
		col := make([]string, c)
		for j := 0; j < c; j++ {
			col[j] = vec[off].Text(10)
			off++
		}
		out[i] = col
	}
	return out, nil
}

func proverOpts(t TranscriptType) []backend.ProverOption {
	if t == TranscriptEVM {
		return []backend.ProverOption{backend.WithProverHashToFieldFunction(sha256.New())}
	}
	return nil
}

func verifierOpts(t TranscriptType) []backend.VerifierOption {
	if t == TranscriptEVM {
		return []backend.VerifierOption{backend.WithVerifierHashToFieldFunction(sha256.New())}
	}
	return nil
}

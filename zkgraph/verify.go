package zkgraph

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/logger"
)

// Verify checks a Snark against a verification key and the settings both were
// generated under. A structurally well-formed proof that fails the pairing
// check reports (false, nil); errors are reserved for inputs that cannot be
// checked at all.
func Verify(snark *Snark, vk *VerifyingKey, s *GraphSettings) (bool, error) {
	log := logger.Logger().With().Str("component", "verifier").Logger()

	digest, err := s.Digest()
	if err != nil {
		return false, err
	}
	if digest != vk.digest {
		return false, fmt.Errorf("%w: verification key was generated under different settings", ErrKeyMismatch)
	}
	if snark.Protocol.SettingsDigest != hex.EncodeToString(digest[:]) {
		return false, fmt.Errorf("%w: proof was generated under different settings", ErrKeyMismatch)
	}
	if !snark.TranscriptType.valid() {
		return false, fmt.Errorf("%w: transcript type %q", ErrMalformedProof, snark.TranscriptType)
	}

	publicWitness, err := snarkPublicWitness(snark, s)
	if err != nil {
		return false, err
	}

	proofBytes, err := hex.DecodeString(snark.Proof)
	if err != nil {
		return false, fmt.Errorf("%w: proof is not hex: %v", ErrMalformedProof, err)
	}
	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		// undecodable group elements are a rejected proof, not a caller error
		log.Debug().Err(err).Msg("proof bytes rejected")
		return false, nil
	}

	start := time.Now()
	if err := plonk.Verify(proof, vk.vk, publicWitness, verifierOpts(snark.TranscriptType)...); err != nil {
		log.Debug().Dur("took", time.Since(start)).Err(err).Msg("proof rejected")
		return false, nil
	}
	log.Debug().Dur("took", time.Since(start)).Msg("proof verified")
	return true, nil
}

// snarkPublicWitness rebuilds the public witness vector from the proof's
// instance columns, checking them against the settings' declared layout.
func snarkPublicWitness(snark *Snark, s *GraphSettings) (witness.Witness, error) {
	if len(snark.Instances) != len(s.NumInstances) {
		return nil, fmt.Errorf("%w: proof carries %d instance columns, settings declare %d",
			ErrMalformedProof, len(snark.Instances), len(s.NumInstances))
	}
	total := 0
	for i, col := range snark.Instances {
		if len(col) != s.NumInstances[i] {
			return nil, fmt.Errorf("%w: instance column %d has %d values, settings declare %d",
				ErrMalformedProof, i, len(col), s.NumInstances[i])
		}
		total += len(col)
	}

	elems := make([]fr.Element, 0, total)
	for i, col := range snark.Instances {
		for j, v := range col {
			var e fr.Element
			if _, err := e.SetString(v); err != nil {
				return nil, fmt.Errorf("%w: instance column %d value %d: %v", ErrMalformedProof, i, j, err)
			}
			elems = append(elems, e)
		}
	}

	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("allocating witness: %w", err)
	}
	ch := make(chan any, total)
	for i := range elems {
		ch <- elems[i]
	}
	close(ch)
	if err := w.Fill(total, 0, ch); err != nil {
		return nil, fmt.Errorf("filling public witness: %w", err)
	}
	return w, nil
}

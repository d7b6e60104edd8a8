// Package srs manages the structured reference string the proving pipeline
// consumes: loading and storing the opaque KZG blob, converting it to the
// Lagrange basis a PLONK setup needs, generating a dev-only unsafe SRS, and
// reproducing the Aztec Ignition ceremony transcript from its public
// contributions.
package srs

import (
	"bytes"
	"crypto/rand"
	"fmt"
	stdbits "math/bits"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark-ignition-verifier/ignition"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/test/unsafekzg"
)

// SRS wraps a canonical-basis BN254 KZG reference string. It is read-only
// after load; concurrent use needs no synchronization.
type SRS struct {
	inner *kzg_bn254.SRS
}

// FromBytes deserializes an SRS blob.
func FromBytes(data []byte) (*SRS, error) {
	s := kzg.NewSRS(ecc.BN254)
	if _, err := s.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("reading srs: %w", err)
	}
	return &SRS{inner: s.(*kzg_bn254.SRS)}, nil
}

// Bytes serializes the SRS; FromBytes(Bytes()) round-trips byte-for-byte.
func (s *SRS) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.inner.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing srs: %w", err)
	}
	return buf.Bytes(), nil
}

// Size is the number of G1 points, which bounds the circuit row capacity the
// SRS can serve.
func (s *SRS) Size() int {
	return len(s.inner.Pk.G1)
}

// Canonical exposes the canonical-basis SRS for the proving system.
func (s *SRS) Canonical() kzg.SRS {
	return s.inner
}

// Lagrange converts the canonical SRS to the Lagrange basis sized for the
// given constraint system.
func (s *SRS) Lagrange(ccs constraint.ConstraintSystem) (kzg.SRS, error) {
	sizeSystem := ccs.GetNbPublicVariables() + ccs.GetNbConstraints()
	nextPowerTwo := 1 << stdbits.Len(uint(sizeSystem))
	if nextPowerTwo > len(s.inner.Pk.G1) {
		return nil, fmt.Errorf("srs has %d points, circuit needs %d", len(s.inner.Pk.G1), nextPowerTwo)
	}
	lagrange := &kzg_bn254.SRS{Vk: s.inner.Vk}
	var err error
	lagrange.Pk.G1, err = kzg_bn254.ToLagrangeG1(s.inner.Pk.G1[:nextPowerTwo])
	if err != nil {
		return nil, fmt.Errorf("converting srs to lagrange basis: %w", err)
	}
	return lagrange, nil
}

// Generate produces an unsafe dev SRS large enough for the given constraint
// system. Never use the result outside local testing: the toxic waste is
// known.
func Generate(ccs constraint.ConstraintSystem) (*SRS, error) {
	canonical, _, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, fmt.Errorf("generating dev srs: %w", err)
	}
	return &SRS{inner: canonical.(*kzg_bn254.SRS)}, nil
}

// GenerateSize produces an unsafe dev SRS with exactly size G1 points, for
// sizing by row capacity rather than by a compiled circuit.
func GenerateSize(size uint64) (*SRS, error) {
	tau, err := rand.Int(rand.Reader, fr.Modulus())
	if err != nil {
		return nil, fmt.Errorf("sampling srs secret: %w", err)
	}
	inner, err := kzg_bn254.NewSRS(size, tau)
	if err != nil {
		return nil, fmt.Errorf("generating dev srs: %w", err)
	}
	return &SRS{inner: inner}, nil
}

// DownloadIgnition replays the Aztec Ignition ceremony from startIdx on,
// verifies each contribution follows the last, runs a KZG sanity check on
// the result and writes it to fileName.
func DownloadIgnition(startIdx int, fileName, cacheDir string) error {
	log := logger.Logger().With().Str("component", "srs").Logger()

	config := ignition.Config{
		BaseURL:  "https://aztec-ignition.s3.amazonaws.com/",
		Ceremony: "MAIN IGNITION",
		CacheDir: cacheDir,
	}
	if config.CacheDir != "" {
		if err := os.MkdirAll(config.CacheDir, os.ModePerm); err != nil {
			return fmt.Errorf("creating cache dir: %w", err)
		}
	}

	log.Info().Msg("fetching ignition manifest")
	manifest, err := ignition.NewManifest(config)
	if err != nil {
		return fmt.Errorf("fetching manifest: %w", err)
	}

	current, next := ignition.NewContribution(manifest.NumG1Points), ignition.NewContribution(manifest.NumG1Points)
	if err := current.Get(manifest.Participants[startIdx], config); err != nil {
		return fmt.Errorf("fetching contribution %d: %w", startIdx, err)
	}
	if err := next.Get(manifest.Participants[startIdx+1], config); err != nil {
		return fmt.Errorf("fetching contribution %d: %w", startIdx+1, err)
	}
	if !next.Follows(&current) {
		return fmt.Errorf("contribution %d does not follow contribution %d", startIdx+1, startIdx)
	}
	for i := startIdx + 2; i < len(manifest.Participants); i++ {
		log.Info().Int("contribution", i+1).Msg("processing")
		current, next = next, current
		if err := next.Get(manifest.Participants[i], config); err != nil {
			return fmt.Errorf("fetching contribution %d: %w", i+1, err)
		}
		if !next.Follows(&current) {
			return fmt.Errorf("contribution %d does not follow contribution %d", i+1, i)
		}
	}
	log.Info().Msg("all contributions verified")

	_, _, _, g2gen := bn254.Generators()
	s := kzg_bn254.SRS{
		Pk: kzg_bn254.ProvingKey{G1: next.G1},
		Vk: kzg_bn254.VerifyingKey{
			G1: next.G1[0],
			G2: [2]bn254.G2Affine{g2gen, next.G2[0]},
		},
	}

	if err := sanityCheck(&s); err != nil {
		return fmt.Errorf("srs sanity check: %w", err)
	}
	log.Info().Msg("kzg sanity check passed")

	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating srs file: %w", err)
	}
	defer f.Close()
	if _, err := s.WriteTo(f); err != nil {
		return fmt.Errorf("writing srs file: %w", err)
	}
	return nil
}

// sanityCheck commits to a random polynomial, opens it at a point and
// verifies the opening against the candidate SRS.
func sanityCheck(s *kzg_bn254.SRS) error {
	f := make([]fr.Element, 60)
	for i := range f {
		if _, err := f[i].SetRandom(); err != nil {
			return err
		}
	}

	digest, err := kzg_bn254.Commit(f, s.Pk)
	if err != nil {
		return err
	}

	var point fr.Element
	point.SetString("4321")
	proof, err := kzg_bn254.Open(f, point, s.Pk)
	if err != nil {
		return err
	}

	expected := eval(f, point)
	if !proof.ClaimedValue.Equal(&expected) {
		return fmt.Errorf("inconsistent claimed value")
	}
	return kzg_bn254.Verify(&digest, &proof, point, s.Vk)
}

// eval returns p(point) for p interpreted as ∑ p[i]·Xⁱ.
func eval(p []fr.Element, point fr.Element) fr.Element {
	var res fr.Element
	n := len(p)
	res.Set(&p[n-1])
	for i := n - 2; i >= 0; i-- {
		res.Mul(&res, &point).Add(&res, &p[i])
	}
	return res
}

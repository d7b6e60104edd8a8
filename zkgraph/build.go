package zkgraph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	plonk_bn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/logger"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/srs"
)

// Key envelopes are an opaque binary format: magic, the canonical settings
// digest the key is bound to, then length-prefixed proving-system blobs.
var (
	pkMagic = []byte("ZKGPK1")
	vkMagic = []byte("ZKGVK1")
)

// ProvingKey binds a compiled circuit and its PLONK proving key to the
// settings digest they were generated under.
type ProvingKey struct {
	digest [32]byte
	ccs    constraint.ConstraintSystem
	pk     plonk.ProvingKey
}

// VerifyingKey is the verification-side counterpart, bound to the same
// settings digest as the proving key it was derived from.
type VerifyingKey struct {
	digest [32]byte
	vk     plonk.VerifyingKey
}

// CompileCircuit lowers the graph into a PLONK constraint system under the
// given settings.
func CompileCircuit(g *Graph, s *GraphSettings) (constraint.ConstraintSystem, error) {
	circuit, err := NewCircuit(g, s)
	if err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling circuit: %v", ErrUnsupportedGraph, err)
	}
	return ccs, nil
}

// GenProvingKey builds the circuit for the graph under the settings and runs
// the proving system's setup against the supplied SRS.
func GenProvingKey(g *Graph, s *GraphSettings, rs *srs.SRS) (*ProvingKey, error) {
	log := logger.Logger().With().Str("component", "setup").Logger()

	digest, err := s.Digest()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ccs, err := CompileCircuit(g, s)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("took", time.Since(start)).Int("constraints", ccs.GetNbConstraints()).Msg("circuit compiled")

	required := (1 << s.RunArgs.Logrows) + 3
	if rs.Size() < required {
		return nil, fmt.Errorf("%w: srs has %d points, 2^%d rows require %d",
			ErrInsufficientSrs, rs.Size(), s.RunArgs.Logrows, required)
	}
	lagrange, err := rs.Lagrange(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientSrs, err)
	}

	start = time.Now()
	pk, _, err := plonk.Setup(ccs, rs.Canonical(), lagrange)
	if err != nil {
		return nil, fmt.Errorf("plonk setup: %w", err)
	}
	log.Debug().Dur("took", time.Since(start)).Msg("setup done")

	return &ProvingKey{digest: digest, ccs: ccs, pk: pk}, nil
}

// GenVerificationKey derives the verification key embedded in the proving
// key. The derivation is deterministic: the same (proving key, settings)
// pair always yields byte-identical output.
func GenVerificationKey(pk *ProvingKey, s *GraphSettings) (*VerifyingKey, error) {
	digest, err := s.Digest()
	if err != nil {
		return nil, err
	}
	if digest != pk.digest {
		return nil, fmt.Errorf("%w: proving key was generated under different settings", ErrSettingsMismatch)
	}
	concrete, ok := pk.pk.(*plonk_bn254.ProvingKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected proving key curve", ErrSerialization)
	}
	return &VerifyingKey{digest: pk.digest, vk: concrete.Vk}, nil
}

// Bytes serializes the proving key envelope.
func (pk *ProvingKey) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(pkMagic)
	buf.Write(pk.digest[:])

	var ccsBuf bytes.Buffer
	if _, err := pk.ccs.WriteTo(&ccsBuf); err != nil {
		return nil, fmt.Errorf("%w: writing constraint system: %v", ErrSerialization, err)
	}
	writeSection(&buf, ccsBuf.Bytes())

	var pkBuf bytes.Buffer
	if _, err := pk.pk.WriteTo(&pkBuf); err != nil {
		return nil, fmt.Errorf("%w: writing proving key: %v", ErrSerialization, err)
	}
	writeSection(&buf, pkBuf.Bytes())

	return buf.Bytes(), nil
}

// ProvingKeyFromBytes deserializes a proving key envelope.
func ProvingKeyFromBytes(data []byte) (*ProvingKey, error) {
	rest, digest, err := readHeader(data, pkMagic)
	if err != nil {
		return nil, err
	}

	ccsBytes, rest, err := readSection(rest)
	if err != nil {
		return nil, err
	}
	ccs := plonk.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsBytes)); err != nil {
		return nil, fmt.Errorf("%w: reading constraint system: %v", ErrSerialization, err)
	}

	pkBytes, _, err := readSection(rest)
	if err != nil {
		return nil, err
	}
	pk := plonk.NewProvingKey(ecc.BN254)
	if _, err := pk.UnsafeReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return nil, fmt.Errorf("%w: reading proving key: %v", ErrSerialization, err)
	}

	return &ProvingKey{digest: digest, ccs: ccs, pk: pk}, nil
}

// Bytes serializes the verification key envelope.
func (vk *VerifyingKey) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vkMagic)
	buf.Write(vk.digest[:])

	var vkBuf bytes.Buffer
	if _, err := vk.vk.WriteTo(&vkBuf); err != nil {
		return nil, fmt.Errorf("%w: writing verification key: %v", ErrSerialization, err)
	}
	writeSection(&buf, vkBuf.Bytes())

	return buf.Bytes(), nil
}

// VerifyingKeyFromBytes deserializes a verification key envelope.
func VerifyingKeyFromBytes(data []byte) (*VerifyingKey, error) {
	rest, digest, err := readHeader(data, vkMagic)
	if err != nil {
		return nil, err
	}
	vkBytes, _, err := readSection(rest)
	if err != nil {
		return nil, err
	}
	vk := plonk.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("%w: reading verification key: %v", ErrSerialization, err)
	}
	return &VerifyingKey{digest: digest, vk: vk}, nil
}

func writeSection(buf *bytes.Buffer, data []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	buf.Write(n[:])
	buf.Write(data)
}

func readSection(data []byte) (section, rest []byte, err error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("%w: truncated key envelope", ErrSerialization)
	}
	n := binary.BigEndian.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return nil, nil, fmt.Errorf("%w: truncated key envelope", ErrSerialization)
	}
	return data[:n], data[n:], nil
}

func readHeader(data, magic []byte) (rest []byte, digest [32]byte, err error) {
	if len(data) < len(magic)+32 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, digest, fmt.Errorf("%w: bad key envelope header", ErrSerialization)
	}
	copy(digest[:], data[len(magic):len(magic)+32])
	return data[len(magic)+32:], digest, nil
}

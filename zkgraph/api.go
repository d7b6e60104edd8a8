// Package zkgraph proves and verifies statements about fixed-point
// computation graphs. A graph plus run arguments deterministically derives
// circuit settings; settings plus an SRS yield PLONK keys over BN254; a
// witness yields a self-describing Snark that any holder of the verification
// key and settings can check.
//
// This file is the byte boundary: every function takes and returns opaque
// byte slices so callers need none of the package's types. Typed entry points
// live alongside the types they operate on.
package zkgraph

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/elgamal"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/poseidon"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/srs"
)

// PoseidonLenGraph is the hash chip length used for standalone hashing at the
// byte boundary.
const PoseidonLenGraph = 32

// GenSettingsBytes derives settings from a serialized graph and run
// arguments.
func GenSettingsBytes(model, runArgs []byte) ([]byte, error) {
	g, err := GraphFromBytes(model)
	if err != nil {
		return nil, err
	}
	args, err := RunArgsFromBytes(runArgs)
	if err != nil {
		return nil, err
	}
	s, err := DeriveSettings(g, args)
	if err != nil {
		return nil, err
	}
	return s.Bytes()
}

// GenPkBytes runs key generation and returns the proving key envelope.
func GenPkBytes(model, settings, srsBlob []byte) ([]byte, error) {
	g, s, err := decodeGraphSettings(model, settings)
	if err != nil {
		return nil, err
	}
	rs, err := srs.FromBytes(srsBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	pk, err := GenProvingKey(g, s, rs)
	if err != nil {
		return nil, err
	}
	return pk.Bytes()
}

// GenVkBytes derives the verification key envelope from a proving key
// envelope.
func GenVkBytes(pkBytes, settings []byte) ([]byte, error) {
	s, err := SettingsFromBytes(settings)
	if err != nil {
		return nil, err
	}
	pk, err := ProvingKeyFromBytes(pkBytes)
	if err != nil {
		return nil, err
	}
	vk, err := GenVerificationKey(pk, s)
	if err != nil {
		return nil, err
	}
	return vk.Bytes()
}

// ProveBytes produces a serialized Snark from serialized inputs.
func ProveBytes(witnessData, pkBytes, model, settings []byte, transcript TranscriptType) ([]byte, error) {
	g, s, err := decodeGraphSettings(model, settings)
	if err != nil {
		return nil, err
	}
	pk, err := ProvingKeyFromBytes(pkBytes)
	if err != nil {
		return nil, err
	}
	w, err := WitnessFromBytes(witnessData)
	if err != nil {
		return nil, err
	}
	snark, err := Prove(g, s, pk, w, transcript)
	if err != nil {
		return nil, err
	}
	return snark.Bytes()
}

// VerifyBytes checks a serialized Snark. The boolean is the verification
// outcome; an error means the inputs could not be checked at all.
func VerifyBytes(proof, vkBytes, settings []byte) (bool, error) {
	s, err := SettingsFromBytes(settings)
	if err != nil {
		return false, err
	}
	vk, err := VerifyingKeyFromBytes(vkBytes)
	if err != nil {
		return false, err
	}
	snark, err := SnarkFromBytes(proof)
	if err != nil {
		return false, err
	}
	return Verify(snark, vk, s)
}

func decodeGraphSettings(model, settings []byte) (*Graph, *GraphSettings, error) {
	g, err := GraphFromBytes(model)
	if err != nil {
		return nil, nil, err
	}
	s, err := SettingsFromBytes(settings)
	if err != nil {
		return nil, nil, err
	}
	return g, s, nil
}

// PoseidonHashBytes hashes a JSON array of decimal field elements with the
// graph hash chip and returns the digest in the chip's nested output shape.
func PoseidonHashBytes(message []byte) ([]byte, error) {
	elems, err := decodeFieldElements(message)
	if err != nil {
		return nil, err
	}
	if len(elems) > PoseidonLenGraph {
		return nil, fmt.Errorf("%w: %d inputs exceed hash length %d", ErrMalformedWitness, len(elems), PoseidonLenGraph)
	}
	chip := poseidon.NewChip(PoseidonLenGraph)
	digest, err := chip.Run(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWitness, err)
	}
	out := make([][]string, len(digest))
	for i, row := range digest {
		out[i] = make([]string, len(row))
		for j := range row {
			out[i][j] = row[j].Text(10)
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding digest: %v", ErrSerialization, err)
	}
	return data, nil
}

// ElgamalGenRandomBytes draws fresh encryption variables from the system
// entropy source and returns their JSON encoding.
func ElgamalGenRandomBytes() ([]byte, error) {
	v, err := elgamal.GenRandom(nil)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding variables: %v", ErrSerialization, err)
	}
	return data, nil
}

type elgamalEncryptRequest struct {
	Pk      []string `json:"pk"`
	Message []string `json:"message"`
	R       string   `json:"r"`
}

// ElgamalEncryptBytes encrypts a message under a JSON request carrying the
// public key coordinates, the message elements and the encryption randomness.
func ElgamalEncryptBytes(request []byte) ([]byte, error) {
	var req elgamalEncryptRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("%w: decoding encrypt request: %v", ErrMalformedWitness, err)
	}
	if len(req.Pk) != 2 {
		return nil, fmt.Errorf("%w: public key needs 2 coordinates, got %d", ErrMalformedWitness, len(req.Pk))
	}
	pk, err := elgamal.PointFromStrings(req.Pk[0], req.Pk[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWitness, err)
	}
	msg, err := parseFrSlice(req.Message)
	if err != nil {
		return nil, err
	}
	r, ok := new(big.Int).SetString(req.R, 10)
	if !ok {
		return nil, fmt.Errorf("%w: randomness %q is not an integer", ErrMalformedWitness, req.R)
	}
	cipher, err := elgamal.Encrypt(pk, msg, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWitness, err)
	}
	data, err := json.Marshal(cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding ciphertext: %v", ErrSerialization, err)
	}
	return data, nil
}

type elgamalDecryptRequest struct {
	Cipher json.RawMessage `json:"cipher"`
	Sk     string          `json:"sk"`
}

// ElgamalDecryptBytes decrypts a ciphertext under a JSON request carrying the
// ciphertext and the secret key.
func ElgamalDecryptBytes(request []byte) ([]byte, error) {
	var req elgamalDecryptRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("%w: decoding decrypt request: %v", ErrMalformedWitness, err)
	}
	var cipher elgamal.Ciphertext
	if err := json.Unmarshal(req.Cipher, &cipher); err != nil {
		return nil, fmt.Errorf("%w: decoding ciphertext: %v", ErrMalformedWitness, err)
	}
	sk, ok := new(big.Int).SetString(req.Sk, 10)
	if !ok {
		return nil, fmt.Errorf("%w: secret key %q is not an integer", ErrMalformedWitness, req.Sk)
	}
	msg := elgamal.Decrypt(&cipher, sk)
	out := make([]string, len(msg))
	for i := range msg {
		out[i] = msg[i].Text(10)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding message: %v", ErrSerialization, err)
	}
	return data, nil
}

func decodeFieldElements(data []byte) ([]fr.Element, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding field elements: %v", ErrMalformedWitness, err)
	}
	return parseFrSlice(raw)
}

func parseFrSlice(raw []string) ([]fr.Element, error) {
	elems := make([]fr.Element, len(raw))
	for i, s := range raw {
		if _, err := elems[i].SetString(s); err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformedWitness, i, err)
		}
	}
	return elems, nil
}

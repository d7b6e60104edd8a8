package zkgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/srs"
)

func TestPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("plonk setup is slow")
	}

	g := affineReluGraph()
	args := testArgs()
	s, err := DeriveSettings(g, args)
	require.NoError(t, err)

	rs, err := srs.GenerateSize((uint64(1) << args.Logrows) + 3)
	require.NoError(t, err)

	pk, err := GenProvingKey(g, s, rs)
	require.NoError(t, err)
	vk, err := GenVerificationKey(pk, s)
	require.NoError(t, err)

	w := &Witness{InputData: [][]string{{"4", "-3"}}}
	snark, err := Prove(g, s, pk, w, TranscriptEVM)
	require.NoError(t, err)

	t.Run("accepts valid proof", func(t *testing.T) {
		require.Equal(t, [][]string{{"20", "0"}}, snark.Instances)
		require.NotEmpty(t, snark.EncodedProof)

		ok, err := Verify(snark, vk, s)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("keys survive serialization", func(t *testing.T) {
		vkData, err := vk.Bytes()
		require.NoError(t, err)
		vk2, err := VerifyingKeyFromBytes(vkData)
		require.NoError(t, err)

		ok, err := Verify(snark, vk2, s)
		require.NoError(t, err)
		require.True(t, ok)

		pkData, err := pk.Bytes()
		require.NoError(t, err)
		pk2, err := ProvingKeyFromBytes(pkData)
		require.NoError(t, err)
		vk3, err := GenVerificationKey(pk2, s)
		require.NoError(t, err)
		vk3Data, err := vk3.Bytes()
		require.NoError(t, err)
		require.Equal(t, vkData, vk3Data, "vk derivation must be deterministic")
	})

	t.Run("rejects tampered proof", func(t *testing.T) {
		tampered := *snark
		raw := []byte(tampered.Proof)
		mid := len(raw) / 2
		if raw[mid] == '0' {
			raw[mid] = '1'
		} else {
			raw[mid] = '0'
		}
		tampered.Proof = string(raw)

		ok, err := Verify(&tampered, vk, s)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("rejects wrong instances", func(t *testing.T) {
		forged := *snark
		forged.Instances = [][]string{{"21", "0"}}

		ok, err := Verify(&forged, vk, s)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("rejects malformed instances", func(t *testing.T) {
		malformed := *snark
		malformed.Instances = [][]string{{"20"}}
		_, err := Verify(&malformed, vk, s)
		require.ErrorIs(t, err, ErrMalformedProof)
	})

	t.Run("detects settings mismatch", func(t *testing.T) {
		args2 := args
		args2.Tolerance = 1
		s2, err := DeriveSettings(g, args2)
		require.NoError(t, err)

		_, err = Verify(snark, vk, s2)
		require.ErrorIs(t, err, ErrKeyMismatch)

		_, err = Prove(g, s2, pk, w, TranscriptEVM)
		require.ErrorIs(t, err, ErrKeyMismatch)

		_, err = GenVerificationKey(pk, s2)
		require.ErrorIs(t, err, ErrSettingsMismatch)
	})

	t.Run("rejects malformed witness", func(t *testing.T) {
		_, err := Prove(g, s, pk, &Witness{InputData: [][]string{{"4"}}}, TranscriptEVM)
		require.ErrorIs(t, err, ErrMalformedWitness)
	})

	t.Run("rejects out-of-range witness", func(t *testing.T) {
		// 40*4 + 4 = 164 overflows the 8-bit relu range
		_, err := Prove(g, s, pk, &Witness{InputData: [][]string{{"40", "0"}}}, TranscriptEVM)
		require.ErrorIs(t, err, ErrUnsatisfiedConstraint)
	})

	t.Run("native transcript round trips", func(t *testing.T) {
		native, err := Prove(g, s, pk, w, TranscriptNative)
		require.NoError(t, err)
		require.Empty(t, native.EncodedProof)

		ok, err := Verify(native, vk, s)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestGenProvingKeyInsufficientSrs(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	s, err := DeriveSettings(g, args)
	require.NoError(t, err)

	small, err := srs.GenerateSize(64)
	require.NoError(t, err)

	_, err = GenProvingKey(g, s, small)
	require.ErrorIs(t, err, ErrInsufficientSrs)
}

package poseidon

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

func frSlice(vals ...int64) []fr.Element {
	out := make([]fr.Element, len(vals))
	for i, v := range vals {
		out[i].SetInt64(v)
	}
	return out
}

func TestRunDeterministic(t *testing.T) {
	chip := NewChip(4)

	d1, err := chip.Run(frSlice(1, 2, 3, 4))
	require.NoError(t, err)
	d2, err := chip.Run(frSlice(1, 2, 3, 4))
	require.NoError(t, err)
	require.True(t, d1[0][0].Equal(&d2[0][0]))

	d3, err := chip.Run(frSlice(1, 2, 3, 5))
	require.NoError(t, err)
	require.False(t, d1[0][0].Equal(&d3[0][0]))
}

func TestRunLengthDomainSeparation(t *testing.T) {
	chip := NewChip(4)

	short, err := chip.Run(frSlice(7))
	require.NoError(t, err)
	padded, err := chip.Run(frSlice(7, 0))
	require.NoError(t, err)
	require.False(t, short[0][0].Equal(&padded[0][0]),
		"a short input must not collide with its zero-padded extension")
}

func TestRunRejectsOverLength(t *testing.T) {
	chip := NewChip(2)
	_, err := chip.Run(frSlice(1, 2, 3))
	require.Error(t, err)
}

type hashCircuit struct {
	Input  [4]frontend.Variable
	Digest frontend.Variable `gnark:",public"`
}

func (c *hashCircuit) Define(api frontend.API) error {
	chip := NewChip(4)
	out, err := chip.Synthesize(api, c.Input[:])
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.Digest, out[0])
	return nil
}

func TestSynthesizeMatchesRun(t *testing.T) {
	assert := test.NewAssert(t)

	chip := NewChip(4)
	digest, err := chip.Run(frSlice(11, 22, 33, 44))
	require.NoError(t, err)

	var circuit, witness hashCircuit
	witness.Input = [4]frontend.Variable{11, 22, 33, 44}
	witness.Digest = digest[0][0]

	assert.ProverSucceeded(&circuit, &witness, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

func TestSynthesizeRejectsWrongDigest(t *testing.T) {
	assert := test.NewAssert(t)

	var circuit, witness hashCircuit
	witness.Input = [4]frontend.Variable{11, 22, 33, 44}
	witness.Digest = 1

	assert.ProverFailed(&circuit, &witness, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

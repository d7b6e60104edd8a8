package zkgraph

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

// hashedGraph appends a hash commitment over the relu output, so the proof
// exposes both the clamped values and their digest.
func hashedGraph() *Graph {
	g := affineReluGraph()
	g.Nodes = append(g.Nodes, Node{Op: OpPoseidon, Inputs: []int{2}, OutDims: []int{1}})
	g.Outputs = []int{2, 3}
	return g
}

func TestCircuitProvesBatchWithHash(t *testing.T) {
	if testing.Short() {
		t.Skip("circuit proving is slow")
	}
	assert := test.NewAssert(t)

	g := hashedGraph()
	args := testArgs()
	args.BatchSize = 2
	args.Logrows = 12
	s, err := DeriveSettings(g, args)
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, s.ModuleSizes.Poseidon)
	require.Equal(t, []int{3, 3}, s.NumInstances)

	w := &Witness{InputData: [][]string{{"4", "-3"}, {"8", "0"}}}
	assignment, err := NewAssignment(g, s, w)
	require.NoError(t, err)
	circuit, err := NewCircuit(g, s)
	require.NoError(t, err)

	assert.ProverSucceeded(circuit, assignment, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

func TestCircuitTolerance(t *testing.T) {
	if testing.Short() {
		t.Skip("circuit proving is slow")
	}
	assert := test.NewAssert(t)

	g := affineReluGraph()
	args := testArgs()
	args.Tolerance = 2
	s, err := DeriveSettings(g, args)
	require.NoError(t, err)

	w := &Witness{InputData: [][]string{{"4", "-3"}}}
	circuit, err := NewCircuit(g, s)
	require.NoError(t, err)

	// claimed output one quantized unit off: within the error budget
	near, err := NewAssignment(g, s, w)
	require.NoError(t, err)
	near.Instances[0] = new(big.Int).Add(near.Instances[0].(*big.Int), big.NewInt(1))
	assert.ProverSucceeded(circuit, near, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))

	// five units off: outside the budget
	far, err := NewAssignment(g, s, w)
	require.NoError(t, err)
	far.Instances[0] = new(big.Int).Add(far.Instances[0].(*big.Int), big.NewInt(5))
	assert.ProverFailed(circuit, far, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

func TestNewCircuitRejectsMismatchedSettings(t *testing.T) {
	g := affineReluGraph()
	s, err := DeriveSettings(g, testArgs())
	require.NoError(t, err)

	s.NumInstances = []int{5}
	_, err = NewCircuit(g, s)
	require.ErrorIs(t, err, ErrSettingsMismatch)

	s2, err := DeriveSettings(g, testArgs())
	require.NoError(t, err)
	s2.ModuleSizes.Poseidon = []uint32{4}
	_, err = NewCircuit(g, s2)
	require.ErrorIs(t, err, ErrSettingsMismatch)
}

func TestNewAssignmentBatchMismatch(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	args.BatchSize = 2
	s, err := DeriveSettings(g, args)
	require.NoError(t, err)

	_, err = NewAssignment(g, s, &Witness{InputData: [][]string{{"4", "-3"}}})
	require.ErrorIs(t, err, ErrMalformedWitness)
}

package zkgraph

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testArgs() RunArgs {
	return RunArgs{
		Scale:            2,
		Bits:             8,
		Logrows:          8,
		BatchSize:        1,
		InputVisibility:  VisibilityPrivate,
		OutputVisibility: VisibilityPublic,
		ParamVisibility:  VisibilityFixed,
	}
}

// affineReluGraph is a 2-wide affine layer followed by relu: out = relu(W*x + b)
// with W = 1.0*I and b = [0.25, 0.5] at scale 2.
func affineReluGraph() *Graph {
	return &Graph{
		Version:     "1",
		InputShapes: [][]int{{2}},
		Nodes: []Node{
			{Op: OpInput, OutDims: []int{2}},
			{Op: OpAffine, Inputs: []int{0}, Weights: [][]string{{"4", "0"}, {"0", "4"}}, Bias: []string{"1", "2"}, OutDims: []int{2}},
			{Op: OpRelu, Inputs: []int{1}, OutDims: []int{2}},
		},
		Outputs: []int{2},
	}
}

func ints(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestEvaluateForward(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	plans, err := g.plan(args)
	require.NoError(t, err)

	// x = [1.0, -0.75]: the second affine output is negative and must be
	// clamped to zero by relu
	vals, err := g.evaluate([][]*big.Int{ints(4, -3)}, args, plans)
	require.NoError(t, err)

	require.Equal(t, ints(20, -4), vals[1])
	require.Equal(t, ints(20, 0), vals[2])
}

func TestEvaluateReluRange(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	plans, err := g.plan(args)
	require.NoError(t, err)

	// 40*4 + 4 = 164 exceeds the 8-bit signed range at the relu input
	_, err = g.evaluate([][]*big.Int{ints(40, 0)}, args, plans)
	require.ErrorIs(t, err, ErrUnsatisfiedConstraint)
}

func TestEstimateRowsDeterministic(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()

	r1, err := g.EstimateRows(args)
	require.NoError(t, err)
	r2, err := g.EstimateRows(args)
	require.NoError(t, err)
	require.Equal(t, r1, r2)

	args.BatchSize = 2
	r3, err := g.EstimateRows(args)
	require.NoError(t, err)
	require.Equal(t, 2*r1, r3)
}

func TestPlanRejectsUnsupportedOp(t *testing.T) {
	g := affineReluGraph()
	g.Nodes[1].Op = "conv"

	_, err := g.EstimateRows(testArgs())
	require.True(t, errors.Is(err, ErrUnsupportedGraph))
}

func TestPlanRejectsOutOfOrderReference(t *testing.T) {
	g := &Graph{
		InputShapes: [][]int{{1}},
		Nodes: []Node{
			{Op: OpInput, OutDims: []int{1}},
			{Op: OpAdd, Inputs: []int{0, 2}, OutDims: []int{1}},
			{Op: OpRelu, Inputs: []int{1}, OutDims: []int{1}},
		},
		Outputs: []int{2},
	}
	_, err := g.EstimateRows(testArgs())
	require.ErrorIs(t, err, ErrUnsupportedGraph)
}

func TestGraphBytesRoundTrip(t *testing.T) {
	g := affineReluGraph()
	data, err := g.Bytes()
	require.NoError(t, err)

	got, err := GraphFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, g, got)
}

package zkgraph

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/poseidon"
)

// Supported operators. Anything else in a model surfaces ErrUnsupportedGraph.
const (
	OpInput    = "input"
	OpConst    = "const"
	OpAdd      = "add"
	OpSub      = "sub"
	OpMul      = "mul"
	OpSquare   = "square"
	OpDot      = "dot"
	OpAffine   = "affine"
	OpRelu     = "relu"
	OpPoseidon = "poseidon"
)

// Node is one operation of the lowered computation graph. Parameters
// (weights, bias, const values) are decimal strings of already-quantized
// integers at the configured scale.
type Node struct {
	Op      string     `json:"op"`
	Inputs  []int      `json:"inputs,omitempty"`
	Weights [][]string `json:"weights,omitempty"`
	Bias    []string   `json:"bias,omitempty"`
	Value   []string   `json:"value,omitempty"`
	OutDims []int      `json:"out_dims"`
}

// Graph is the already-lowered computation graph the circuit is built from.
// Node inputs reference earlier nodes only, so a single forward walk visits
// every node after its operands.
type Graph struct {
	Version     string  `json:"version"`
	InputShapes [][]int `json:"input_shapes"`
	Nodes       []Node  `json:"nodes"`
	Outputs     []int   `json:"outputs"`
}

// GraphFromBytes decodes the JSON model description.
func GraphFromBytes(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: decoding model: %v", ErrSerialization, err)
	}
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("%w: model has no nodes", ErrSerialization)
	}
	return &g, nil
}

// Bytes returns the canonical JSON encoding of the graph.
func (g *Graph) Bytes() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding model: %v", ErrSerialization, err)
	}
	return data, nil
}

func sizeOf(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// nodePlan is the resolved static shape of one node: flattened output size,
// fixed-point scale of its outputs, and its estimated row cost.
type nodePlan struct {
	size  int
	scale uint32
	rows  uint64
}

// rows consumed by one Poseidon2 permutation of the width-3 chip.
const poseidonPermRows = poseidon.Width * (poseidon.FullRounds + poseidon.PartialRounds)

// baseRows is the fixed overhead reserved for the instance column and
// the blinding rows the proving system appends.
const baseRows = 16

// plan resolves sizes, scales and per-node row costs, validating the graph
// against the run arguments as it goes. The row formula is internal policy;
// only determinism and the accept/reject contract are observable.
func (g *Graph) plan(args RunArgs) ([]nodePlan, error) {
	plans := make([]nodePlan, len(g.Nodes))
	inputSeen := 0

	operand := func(i, which int) (nodePlan, error) {
		n := g.Nodes[i]
		if which >= len(n.Inputs) {
			return nodePlan{}, fmt.Errorf("%w: node %d (%s) missing operand %d", ErrUnsupportedGraph, i, n.Op, which)
		}
		j := n.Inputs[which]
		if j < 0 || j >= i {
			return nodePlan{}, fmt.Errorf("%w: node %d references node %d out of order", ErrUnsupportedGraph, i, j)
		}
		return plans[j], nil
	}

	for i, n := range g.Nodes {
		size := sizeOf(n.OutDims)
		if size < 1 {
			return nil, fmt.Errorf("%w: node %d has empty output dims", ErrUnsupportedGraph, i)
		}
		p := nodePlan{size: size}

		switch n.Op {
		case OpInput:
			if inputSeen >= len(g.InputShapes) {
				return nil, fmt.Errorf("%w: more input nodes than input_shapes", ErrUnsupportedGraph)
			}
			if sizeOf(g.InputShapes[inputSeen]) != size {
				return nil, fmt.Errorf("%w: input node %d does not match input_shapes[%d]", ErrUnsupportedGraph, i, inputSeen)
			}
			inputSeen++
			p.scale = args.Scale
			p.rows = uint64(size)

		case OpConst:
			if len(n.Value) != size {
				return nil, fmt.Errorf("%w: const node %d has %d values for size %d", ErrUnsupportedGraph, i, len(n.Value), size)
			}
			p.scale = args.Scale
			if args.ParamVisibility != VisibilityFixed {
				p.rows = uint64(size)
			}

		case OpAdd, OpSub:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			b, err := operand(i, 1)
			if err != nil {
				return nil, err
			}
			if a.size != size || b.size != size {
				return nil, fmt.Errorf("%w: node %d (%s) operand sizes differ", ErrUnsupportedGraph, i, n.Op)
			}
			p.scale = max32(a.scale, b.scale)
			p.rows = uint64(size)

		case OpMul:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			b, err := operand(i, 1)
			if err != nil {
				return nil, err
			}
			if a.size != size || b.size != size {
				return nil, fmt.Errorf("%w: node %d (mul) operand sizes differ", ErrUnsupportedGraph, i)
			}
			p.scale = a.scale + b.scale
			p.rows = 2 * uint64(size)

		case OpSquare:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			if a.size != size {
				return nil, fmt.Errorf("%w: node %d (square) size mismatch", ErrUnsupportedGraph, i)
			}
			p.scale = 2 * a.scale
			p.rows = 2 * uint64(size)

		case OpDot:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			if size != 1 || len(n.Weights) != 1 || len(n.Weights[0]) != a.size {
				return nil, fmt.Errorf("%w: node %d (dot) weight shape mismatch", ErrUnsupportedGraph, i)
			}
			p.scale = args.Scale + a.scale
			p.rows = 2 * uint64(a.size)

		case OpAffine:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			m := len(n.Weights)
			if m != size {
				return nil, fmt.Errorf("%w: node %d (affine) has %d weight rows for size %d", ErrUnsupportedGraph, i, m, size)
			}
			for r := range n.Weights {
				if len(n.Weights[r]) != a.size {
					return nil, fmt.Errorf("%w: node %d (affine) weight row %d has wrong width", ErrUnsupportedGraph, i, r)
				}
			}
			if n.Bias != nil && len(n.Bias) != m {
				return nil, fmt.Errorf("%w: node %d (affine) bias length mismatch", ErrUnsupportedGraph, i)
			}
			p.scale = args.Scale + a.scale
			p.rows = uint64(m) * uint64(2*a.size+2)

		case OpRelu:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			if a.size != size {
				return nil, fmt.Errorf("%w: node %d (relu) size mismatch", ErrUnsupportedGraph, i)
			}
			p.scale = a.scale
			p.rows = uint64(size) * uint64(args.Bits+2)

		case OpPoseidon:
			a, err := operand(i, 0)
			if err != nil {
				return nil, err
			}
			if size != 1 {
				return nil, fmt.Errorf("%w: node %d (poseidon) must have a single output", ErrUnsupportedGraph, i)
			}
			chunks := (a.size + poseidon.Rate - 1) / poseidon.Rate
			if chunks < 1 {
				chunks = 1
			}
			p.scale = 0
			p.rows = uint64(chunks) * uint64(poseidonPermRows)

		default:
			return nil, fmt.Errorf("%w: operator %q", ErrUnsupportedGraph, n.Op)
		}

		plans[i] = p
	}

	if inputSeen != len(g.InputShapes) {
		return nil, fmt.Errorf("%w: %d input nodes for %d input_shapes", ErrUnsupportedGraph, inputSeen, len(g.InputShapes))
	}
	for _, o := range g.Outputs {
		if o < 0 || o >= len(g.Nodes) {
			return nil, fmt.Errorf("%w: output index %d out of range", ErrUnsupportedGraph, o)
		}
	}
	if len(g.Outputs) == 0 {
		return nil, fmt.Errorf("%w: graph declares no outputs", ErrUnsupportedGraph)
	}
	return plans, nil
}

// EstimateRows returns the deterministic row-cost estimate for the graph
// under the given arguments.
func (g *Graph) EstimateRows(args RunArgs) (uint64, error) {
	plans, err := g.plan(args)
	if err != nil {
		return 0, err
	}
	var total uint64 = baseRows
	for _, p := range plans {
		total += p.rows
	}
	return total * uint64(args.BatchSize), nil
}

// poseidonLens returns the hash-chip input lengths for each poseidon node,
// in node order. These become module length parameters in the settings.
func (g *Graph) poseidonLens(plans []nodePlan) []uint32 {
	var lens []uint32
	for _, n := range g.Nodes {
		if n.Op == OpPoseidon {
			lens = append(lens, uint32(plans[n.Inputs[0]].size))
		}
	}
	return lens
}

// evaluate runs the graph natively on one batch item of quantized inputs.
// Values are signed integers in fixed-point form; the result holds every
// node's flattened outputs, which doubles as the witness assignment source.
func (g *Graph) evaluate(inputs [][]*big.Int, args RunArgs, plans []nodePlan) ([][]*big.Int, error) {
	if len(inputs) != len(g.InputShapes) {
		return nil, fmt.Errorf("%w: got %d input tensors, want %d", ErrMalformedWitness, len(inputs), len(g.InputShapes))
	}
	vals := make([][]*big.Int, len(g.Nodes))
	inputSeen := 0

	for i, n := range g.Nodes {
		size := plans[i].size
		out := make([]*big.Int, size)

		switch n.Op {
		case OpInput:
			in := inputs[inputSeen]
			if len(in) != size {
				return nil, fmt.Errorf("%w: input %d has %d values, want %d", ErrMalformedWitness, inputSeen, len(in), size)
			}
			copy(out, in)
			inputSeen++

		case OpConst:
			for j, s := range n.Value {
				v, ok := new(big.Int).SetString(s, 10)
				if !ok {
					return nil, fmt.Errorf("%w: const node %d value %q", ErrSerialization, i, s)
				}
				out[j] = v
			}

		case OpAdd, OpSub:
			a := aligned(vals[n.Inputs[0]], plans[n.Inputs[0]].scale, plans[i].scale)
			b := aligned(vals[n.Inputs[1]], plans[n.Inputs[1]].scale, plans[i].scale)
			for j := range out {
				if n.Op == OpAdd {
					out[j] = new(big.Int).Add(a[j], b[j])
				} else {
					out[j] = new(big.Int).Sub(a[j], b[j])
				}
			}

		case OpMul:
			a, b := vals[n.Inputs[0]], vals[n.Inputs[1]]
			for j := range out {
				out[j] = new(big.Int).Mul(a[j], b[j])
			}

		case OpSquare:
			a := vals[n.Inputs[0]]
			for j := range out {
				out[j] = new(big.Int).Mul(a[j], a[j])
			}

		case OpDot:
			a := vals[n.Inputs[0]]
			acc := new(big.Int)
			for j := range a {
				w, ok := new(big.Int).SetString(n.Weights[0][j], 10)
				if !ok {
					return nil, fmt.Errorf("%w: dot node %d weight %q", ErrSerialization, i, n.Weights[0][j])
				}
				acc.Add(acc, new(big.Int).Mul(w, a[j]))
			}
			out[0] = acc

		case OpAffine:
			a := vals[n.Inputs[0]]
			inScale := plans[n.Inputs[0]].scale
			for r := range n.Weights {
				acc := new(big.Int)
				for j := range a {
					w, ok := new(big.Int).SetString(n.Weights[r][j], 10)
					if !ok {
						return nil, fmt.Errorf("%w: affine node %d weight %q", ErrSerialization, i, n.Weights[r][j])
					}
					acc.Add(acc, new(big.Int).Mul(w, a[j]))
				}
				if n.Bias != nil {
					b, ok := new(big.Int).SetString(n.Bias[r], 10)
					if !ok {
						return nil, fmt.Errorf("%w: affine node %d bias %q", ErrSerialization, i, n.Bias[r])
					}
					// bias is quantized at the base scale; align it to the
					// scale of the accumulated products
					acc.Add(acc, new(big.Int).Lsh(b, uint(inScale)))
				}
				out[r] = acc
			}

		case OpRelu:
			a := vals[n.Inputs[0]]
			bound := new(big.Int).Lsh(big.NewInt(1), uint(args.Bits-1))
			for j := range out {
				if a[j].CmpAbs(bound) >= 0 {
					return nil, fmt.Errorf("%w: relu input %s exceeds %d-bit range", ErrUnsatisfiedConstraint, a[j], args.Bits)
				}
				if a[j].Sign() < 0 {
					out[j] = big.NewInt(0)
				} else {
					out[j] = new(big.Int).Set(a[j])
				}
			}

		case OpPoseidon:
			a := vals[n.Inputs[0]]
			felts := make([]fr.Element, len(a))
			for j := range a {
				felts[j].SetBigInt(a[j])
			}
			chip := poseidon.NewChip(len(a))
			digest, err := chip.Run(felts)
			if err != nil {
				return nil, err
			}
			out[0] = new(big.Int)
			digest[0][0].BigInt(out[0])
		}

		vals[i] = out
	}
	return vals, nil
}

// aligned shifts values quantized at from-scale up to to-scale.
func aligned(vals []*big.Int, from, to uint32) []*big.Int {
	if from == to {
		return vals
	}
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = new(big.Int).Lsh(v, uint(to-from))
	}
	return out
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

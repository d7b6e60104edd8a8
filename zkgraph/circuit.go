package zkgraph

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"golang.org/x/sync/errgroup"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/felt"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/poseidon"
)

// Circuit is the gnark circuit for a graph under fixed settings. The wire
// layout is decided entirely by (graph, settings):
//
//   - Instances: public parameters (when param_visibility is public),
//     followed by each batch item's public inputs and outputs.
//   - Inputs: private graph inputs, batch-major (empty when inputs are
//     public).
//   - Params: private parameters in node order (empty when params are public
//     or fixed; fixed parameters are compiled in as constants).
type Circuit struct {
	Instances []frontend.Variable `gnark:",public"`
	Inputs    []frontend.Variable
	Params    []frontend.Variable

	graph    *Graph
	settings *GraphSettings
	plans    []nodePlan
}

// NewCircuit returns a placeholder circuit with the wire layout resolved,
// suitable for compilation.
func NewCircuit(g *Graph, s *GraphSettings) (*Circuit, error) {
	plans, err := g.plan(s.RunArgs)
	if err != nil {
		return nil, err
	}
	if err := checkSettingsShape(g, s, plans); err != nil {
		return nil, err
	}

	c := &Circuit{graph: g, settings: s, plans: plans}
	c.Instances = make([]frontend.Variable, s.totalInstances())
	if s.RunArgs.InputVisibility == VisibilityPrivate {
		c.Inputs = make([]frontend.Variable, int(s.RunArgs.BatchSize)*g.inputSize())
	}
	if s.RunArgs.ParamVisibility == VisibilityPrivate {
		c.Params = make([]frontend.Variable, g.paramSize())
	}
	return c, nil
}

// checkSettingsShape rejects settings that are structurally incompatible
// with the graph before any expensive work happens.
func checkSettingsShape(g *Graph, s *GraphSettings, plans []nodePlan) error {
	if len(s.InputShapes) != len(g.InputShapes) {
		return fmt.Errorf("%w: settings declare %d input shapes, graph has %d", ErrSettingsMismatch, len(s.InputShapes), len(g.InputShapes))
	}
	for i := range s.InputShapes {
		if sizeOf(s.InputShapes[i]) != sizeOf(g.InputShapes[i]) {
			return fmt.Errorf("%w: input shape %d differs from graph", ErrSettingsMismatch, i)
		}
	}
	lens := g.poseidonLens(plans)
	if len(lens) != len(s.ModuleSizes.Poseidon) {
		return fmt.Errorf("%w: graph instantiates %d hash modules, settings carry %d lengths", ErrSettingsMismatch, len(lens), len(s.ModuleSizes.Poseidon))
	}
	for i := range lens {
		if lens[i] != s.ModuleSizes.Poseidon[i] {
			return fmt.Errorf("%w: hash module %d length %d, settings say %d", ErrSettingsMismatch, i, lens[i], s.ModuleSizes.Poseidon[i])
		}
	}
	want := instanceColumns(g, plans, s.RunArgs)
	if len(want) != len(s.NumInstances) {
		return fmt.Errorf("%w: settings declare %d instance columns, want %d", ErrSettingsMismatch, len(s.NumInstances), len(want))
	}
	for i := range want {
		if want[i] != s.NumInstances[i] {
			return fmt.Errorf("%w: instance column %d size %d, want %d", ErrSettingsMismatch, i, s.NumInstances[i], want[i])
		}
	}
	return nil
}

func (g *Graph) inputSize() int {
	n := 0
	for _, shape := range g.InputShapes {
		n += sizeOf(shape)
	}
	return n
}

func (g *Graph) paramSize() int {
	n := 0
	for _, node := range g.Nodes {
		n += paramCount(node)
	}
	return n
}

// outputSize is the flattened size of all declared graph outputs.
func (g *Graph) outputSize(plans []nodePlan) int {
	n := 0
	for _, o := range g.Outputs {
		n += plans[o].size
	}
	return n
}

// Define synthesizes the graph, node by node, for every batch item.
func (c *Circuit) Define(api frontend.API) error {
	args := c.settings.RunArgs
	chip := felt.NewChip(api, args.Bits)

	// carve the instance column into its regions
	instOff := 0
	var paramWires []frontend.Variable
	switch args.ParamVisibility {
	case VisibilityPublic:
		n := c.graph.paramSize()
		paramWires = c.Instances[:n]
		instOff = n
	case VisibilityPrivate:
		paramWires = c.Params
	}

	perIn := c.graph.inputSize()
	perOut := c.graph.outputSize(c.plans)

	for b := 0; b < int(args.BatchSize); b++ {
		paramCursor := 0
		takeParams := func(n int) []frontend.Variable {
			w := paramWires[paramCursor : paramCursor+n]
			paramCursor += n
			return w
		}

		var inputWires []frontend.Variable
		batchInst := instOff
		if args.InputVisibility == VisibilityPublic {
			inputWires = c.Instances[batchInst : batchInst+perIn]
			batchInst += perIn
		} else {
			inputWires = c.Inputs[b*perIn : (b+1)*perIn]
		}

		values := make([][]felt.Variable, len(c.graph.Nodes))
		inCursor := 0
		for i, n := range c.graph.Nodes {
			plan := c.plans[i]
			out := make([]felt.Variable, plan.size)

			switch n.Op {
			case OpInput:
				for j := range out {
					out[j] = felt.NewF(inputWires[inCursor], args.Scale)
					inCursor++
				}

			case OpConst:
				if args.ParamVisibility == VisibilityFixed {
					for j, s := range n.Value {
						out[j] = felt.NewFConst(s, args.Scale)
					}
				} else {
					w := takeParams(plan.size)
					for j := range out {
						out[j] = felt.NewF(w[j], args.Scale)
					}
				}

			case OpAdd:
				a, bb := values[n.Inputs[0]], values[n.Inputs[1]]
				for j := range out {
					out[j] = chip.AddF(a[j], bb[j])
				}

			case OpSub:
				a, bb := values[n.Inputs[0]], values[n.Inputs[1]]
				for j := range out {
					out[j] = chip.SubF(a[j], bb[j])
				}

			case OpMul:
				a, bb := values[n.Inputs[0]], values[n.Inputs[1]]
				for j := range out {
					out[j] = chip.MulF(a[j], bb[j])
				}

			case OpSquare:
				a := values[n.Inputs[0]]
				for j := range out {
					out[j] = chip.MulF(a[j], a[j])
				}

			case OpDot:
				out[0] = c.linear(chip, n.Weights[0], nil, values[n.Inputs[0]], takeParams, args)

			case OpAffine:
				a := values[n.Inputs[0]]
				// weights are consumed row-major, then bias, matching the
				// parameter layout the assignment side produces
				if args.ParamVisibility == VisibilityFixed {
					for r := range n.Weights {
						out[r] = c.linearFixed(chip, n.Weights[r], bias(n, r), a, args)
					}
				} else {
					rowWires := make([][]frontend.Variable, len(n.Weights))
					for r := range n.Weights {
						rowWires[r] = takeParams(len(n.Weights[r]))
					}
					var biasWires []frontend.Variable
					if n.Bias != nil {
						biasWires = takeParams(len(n.Bias))
					}
					for r := range n.Weights {
						out[r] = c.linearWires(chip, rowWires[r], biasWireAt(biasWires, r), a, args)
					}
				}

			case OpRelu:
				a := values[n.Inputs[0]]
				for j := range out {
					out[j] = chip.ReluF(a[j])
				}

			case OpPoseidon:
				a := values[n.Inputs[0]]
				raw := make([]frontend.Variable, len(a))
				for j := range a {
					raw[j] = a[j].Value
				}
				hchip := poseidon.NewChip(len(a))
				digest, err := hchip.Synthesize(api, raw)
				if err != nil {
					return err
				}
				out[0] = felt.NewF(digest[0], 0)
			}

			values[i] = out
		}

		if args.OutputVisibility == VisibilityPublic {
			for _, o := range c.graph.Outputs {
				for _, v := range values[o] {
					claimed := felt.NewF(c.Instances[batchInst], v.Scale)
					chip.AssertWithinF(v, claimed, args.Tolerance)
					batchInst++
				}
			}
		}

		instOff = batchInstEnd(instOff, args, perIn, perOut)
	}

	return nil
}

func batchInstEnd(off int, args RunArgs, perIn, perOut int) int {
	if args.InputVisibility == VisibilityPublic {
		off += perIn
	}
	if args.OutputVisibility == VisibilityPublic {
		off += perOut
	}
	return off
}

func bias(n Node, r int) string {
	if n.Bias == nil {
		return ""
	}
	return n.Bias[r]
}

func biasWireAt(wires []frontend.Variable, r int) frontend.Variable {
	if wires == nil {
		return nil
	}
	return wires[r]
}

// linear computes dot(weights, a) for a single fixed weight row consumed
// either as constants or as parameter wires.
func (c *Circuit) linear(chip *felt.Chip, row []string, biasStr *string, a []felt.Variable, takeParams func(int) []frontend.Variable, args RunArgs) felt.Variable {
	if args.ParamVisibility == VisibilityFixed {
		b := ""
		if biasStr != nil {
			b = *biasStr
		}
		return c.linearFixed(chip, row, b, a, args)
	}
	return c.linearWires(chip, takeParams(len(row)), nil, a, args)
}

func (c *Circuit) linearFixed(chip *felt.Chip, row []string, biasStr string, a []felt.Variable, args RunArgs) felt.Variable {
	acc := chip.MulF(felt.NewFConst(row[0], args.Scale), a[0])
	for j := 1; j < len(row); j++ {
		acc = chip.AddF(acc, chip.MulF(felt.NewFConst(row[j], args.Scale), a[j]))
	}
	if biasStr != "" {
		acc = chip.AddF(acc, felt.NewFConst(biasStr, args.Scale))
	}
	return acc
}

func (c *Circuit) linearWires(chip *felt.Chip, row []frontend.Variable, biasWire frontend.Variable, a []felt.Variable, args RunArgs) felt.Variable {
	acc := chip.MulF(felt.NewF(row[0], args.Scale), a[0])
	for j := 1; j < len(row); j++ {
		acc = chip.AddF(acc, chip.MulF(felt.NewF(row[j], args.Scale), a[j]))
	}
	if biasWire != nil {
		acc = chip.AddF(acc, felt.NewF(biasWire, args.Scale))
	}
	return acc
}

// NewAssignment evaluates the graph natively on the witness data and fills
// the circuit's wires. Batch items are evaluated concurrently.
func NewAssignment(g *Graph, s *GraphSettings, w *Witness) (*Circuit, error) {
	c, err := NewCircuit(g, s)
	if err != nil {
		return nil, err
	}
	args := s.RunArgs
	batch := int(args.BatchSize)

	batchInputs, err := w.parse(g, batch)
	if err != nil {
		return nil, err
	}

	results := make([][][]*big.Int, batch)
	var grp errgroup.Group
	for b := 0; b < batch; b++ {
		b := b
		grp.Go(func() error {
			vals, err := g.evaluate(batchInputs[b], args, c.plans)
			if err != nil {
				return err
			}
			results[b] = vals
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// params: node order, weights row-major then bias
	var params []*big.Int
	if args.ParamVisibility != VisibilityFixed {
		for _, n := range g.Nodes {
			switch n.Op {
			case OpConst:
				params = append(params, mustInts(n.Value)...)
			case OpDot, OpAffine:
				for _, row := range n.Weights {
					params = append(params, mustInts(row)...)
				}
				params = append(params, mustInts(n.Bias)...)
			}
		}
	}

	instOff := 0
	if args.ParamVisibility == VisibilityPublic {
		for _, p := range params {
			c.Instances[instOff] = p
			instOff++
		}
	} else {
		for i, p := range params {
			c.Params[i] = p
		}
	}

	perIn := g.inputSize()
	for b := 0; b < batch; b++ {
		flatIn := flatten(batchInputs[b])
		if args.InputVisibility == VisibilityPublic {
			for _, v := range flatIn {
				c.Instances[instOff] = v
				instOff++
			}
		} else {
			for j, v := range flatIn {
				c.Inputs[b*perIn+j] = v
			}
		}
		if args.OutputVisibility == VisibilityPublic {
			for _, o := range g.Outputs {
				for _, v := range results[b][o] {
					c.Instances[instOff] = v
					instOff++
				}
			}
		}
	}

	return c, nil
}

func flatten(tensors [][]*big.Int) []*big.Int {
	var out []*big.Int
	for _, t := range tensors {
		out = append(out, t...)
	}
	return out
}

func mustInts(ss []string) []*big.Int {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			panic(fmt.Sprintf("zkgraph: unvalidated parameter %q", s))
		}
		out[i] = v
	}
	return out
}

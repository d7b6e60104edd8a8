package zkgraph

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// settingsVersion is bumped on any field change so older consumers fail
// loudly instead of silently misreading newer settings.
const settingsVersion = "1"

// ModuleSizes carries the length parameters of cryptographic modules the
// graph instantiates. The hash chip has a fixed input length per
// instantiation, so it must be pinned at settings time: changing it changes
// the circuit's shape and invalidates existing keys.
type ModuleSizes struct {
	Poseidon []uint32 `json:"poseidon,omitempty"`
}

// GraphSettings is the fully resolved circuit description derived from a
// graph and run arguments. Key generation, proving and verification are only
// mutually consistent when they share byte-identical settings; the canonical
// digest below is what binds keys to settings.
type GraphSettings struct {
	Version        string      `json:"version"`
	RunArgs        RunArgs     `json:"run_args"`
	NumConstraints uint64      `json:"num_constraints"`
	InputShapes    [][]int     `json:"model_input_shapes"`
	OutputShapes   [][]int     `json:"model_output_shapes"`
	NumInstances   []int       `json:"num_instances"`
	ModuleSizes    ModuleSizes `json:"module_sizes"`
}

// DeriveSettings walks the graph, resolves sizes and scales, estimates the
// row cost and validates it against the declared capacity. The output is
// deterministic for identical (graph, args) inputs.
func DeriveSettings(g *Graph, args RunArgs) (*GraphSettings, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	plans, err := g.plan(args)
	if err != nil {
		return nil, err
	}

	var rows uint64 = baseRows
	for _, p := range plans {
		rows += p.rows
	}
	rows *= uint64(args.BatchSize)

	capacity := uint64(1) << args.Logrows
	if rows > capacity {
		return nil, fmt.Errorf("%w: estimated %d rows exceed 2^%d", ErrInvalidConfiguration, rows, args.Logrows)
	}
	if args.AllocatedConstraints != nil && rows > *args.AllocatedConstraints {
		return nil, fmt.Errorf("%w: estimated %d rows exceed allocated_constraints %d", ErrInvalidConfiguration, rows, *args.AllocatedConstraints)
	}

	outputShapes := make([][]int, len(g.Outputs))
	for i, o := range g.Outputs {
		outputShapes[i] = g.Nodes[o].OutDims
	}

	s := &GraphSettings{
		Version:        settingsVersion,
		RunArgs:        args,
		NumConstraints: rows,
		InputShapes:    g.InputShapes,
		OutputShapes:   outputShapes,
		ModuleSizes:    ModuleSizes{Poseidon: g.poseidonLens(plans)},
	}
	s.NumInstances = instanceColumns(g, plans, args)
	return s, nil
}

// instanceColumns lays out the instance data as column sizes: public
// parameters first (shared across the batch), then one column per batch item
// holding that item's public inputs and outputs. Columns of size zero are
// omitted.
func instanceColumns(g *Graph, plans []nodePlan, args RunArgs) []int {
	var cols []int
	if args.ParamVisibility == VisibilityPublic {
		pc := 0
		for _, node := range g.Nodes {
			pc += paramCount(node)
		}
		if pc > 0 {
			cols = append(cols, pc)
		}
	}
	per := 0
	if args.InputVisibility == VisibilityPublic {
		for _, shape := range g.InputShapes {
			per += sizeOf(shape)
		}
	}
	if args.OutputVisibility == VisibilityPublic {
		for _, o := range g.Outputs {
			per += plans[o].size
		}
	}
	if per > 0 {
		for b := uint32(0); b < args.BatchSize; b++ {
			cols = append(cols, per)
		}
	}
	return cols
}

// totalInstances is the flattened public-instance count.
func (s *GraphSettings) totalInstances() int {
	n := 0
	for _, c := range s.NumInstances {
		n += c
	}
	return n
}

// paramCount is the number of parameter elements a node carries.
func paramCount(n Node) int {
	switch n.Op {
	case OpConst:
		return len(n.Value)
	case OpDot, OpAffine:
		c := 0
		for _, row := range n.Weights {
			c += len(row)
		}
		return c + len(n.Bias)
	}
	return 0
}

// SettingsFromBytes decodes the JSON encoding of settings, rejecting
// unknown versions.
func SettingsFromBytes(data []byte) (*GraphSettings, error) {
	var s GraphSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decoding settings: %v", ErrSerialization, err)
	}
	if s.Version != settingsVersion {
		return nil, fmt.Errorf("%w: settings version %q, want %q", ErrSerialization, s.Version, settingsVersion)
	}
	return &s, nil
}

// Bytes returns the canonical JSON encoding of the settings. Field order is
// fixed by the struct definition, so identical settings always serialize to
// identical bytes.
func (s *GraphSettings) Bytes() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding settings: %v", ErrSerialization, err)
	}
	return data, nil
}

// Digest is the canonical settings digest used to bind keys and proofs to
// the settings they were generated under.
func (s *GraphSettings) Digest() ([32]byte, error) {
	data, err := s.Bytes()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

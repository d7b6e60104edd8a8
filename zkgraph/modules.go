package zkgraph

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/elgamal"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/poseidon"
)

// Module is a cryptographic building block usable both inside and outside a
// circuit. Synthesize emits constraints tying output wires to input wires
// during circuit construction; Run computes the identical function natively,
// for witness pre-computation and testing. For every valid input, Run must
// equal the plain-value decoding of Synthesize under a satisfying witness;
// any divergence is a soundness bug.
//
// Which module a circuit instantiates is decided by the graph structure at
// construction time, never by runtime type inspection.
type Module interface {
	Synthesize(api frontend.API, inputs []frontend.Variable) ([]frontend.Variable, error)
	Run(inputs []fr.Element) ([][]fr.Element, error)
}

var (
	_ Module = (*poseidon.Chip)(nil)
	_ Module = (*elgamal.Chip)(nil)
)

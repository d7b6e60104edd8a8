package felt

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type fixedPointCircuit struct {
	A, B frontend.Variable
	Sum  frontend.Variable `gnark:",public"`
	Prod frontend.Variable `gnark:",public"`
	Relu frontend.Variable `gnark:",public"`
}

// A is quantized at scale 2, B at scale 4; the chip must align them before
// adding and track the product scale.
func (c *fixedPointCircuit) Define(api frontend.API) error {
	chip := NewChip(api, 8)
	a := NewF(c.A, 2)
	b := NewF(c.B, 4)

	sum := chip.AddF(a, b)
	chip.AssertIsEqualF(sum, NewF(c.Sum, 4))

	prod := chip.MulF(a, b)
	chip.AssertIsEqualF(prod, NewF(c.Prod, 6))

	relu := chip.ReluF(a)
	chip.AssertIsEqualF(relu, NewF(c.Relu, 2))
	return nil
}

func TestFixedPointOps(t *testing.T) {
	assert := test.NewAssert(t)

	var circuit fixedPointCircuit

	// a = 1.25 (5 at scale 2), b = 0.5 (8 at scale 4)
	// sum  = 1.75 -> 28 at scale 4
	// prod = 0.625 -> 40 at scale 6
	assert.ProverSucceeded(&circuit, &fixedPointCircuit{
		A: 5, B: 8, Sum: 28, Prod: 40, Relu: 5,
	}, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))

	// a = -0.75 (-3 at scale 2): relu clamps to zero
	assert.ProverSucceeded(&circuit, &fixedPointCircuit{
		A: -3, B: 8, Sum: -4, Prod: -24, Relu: 0,
	}, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))

	assert.ProverFailed(&circuit, &fixedPointCircuit{
		A: -3, B: 8, Sum: -4, Prod: -24, Relu: -3,
	}, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

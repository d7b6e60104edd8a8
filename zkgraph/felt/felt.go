// Package felt provides fixed-point arithmetic over circuit wires. A
// Variable carries the base-2 scale its integer wire was quantized at, and
// the Chip keeps scales consistent across operations: additions align
// operand scales, multiplications add them. Scales are static metadata
// resolved at circuit-construction time, never wires.
package felt

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// Variable is a quantized value: an integer wire and its fixed-point scale.
type Variable struct {
	Value frontend.Variable
	Scale uint32
}

// NewF wraps a wire at the given scale.
func NewF(value frontend.Variable, scale uint32) Variable {
	return Variable{Value: value, Scale: scale}
}

// NewFConst quantizes a decimal integer string constant at the given scale.
func NewFConst(value string, scale uint32) Variable {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("felt: string to int conversion failed")
	}
	return Variable{Value: frontend.Variable(v), Scale: scale}
}

type Chip struct {
	api  frontend.API
	bits uint32
}

// NewChip returns a fixed-point chip whose range-checked operations use the
// given bit width.
func NewChip(api frontend.API, bits uint32) *Chip {
	return &Chip{api: api, bits: bits}
}

// align lifts a to the target scale by multiplying with a power-of-two
// constant. The target must not be below a's scale.
func (c *Chip) align(a Variable, scale uint32) Variable {
	if a.Scale == scale {
		return a
	}
	shift := new(big.Int).Lsh(big.NewInt(1), uint(scale-a.Scale))
	return Variable{Value: c.api.Mul(a.Value, shift), Scale: scale}
}

func (c *Chip) AddF(a, b Variable) Variable {
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	a, b = c.align(a, scale), c.align(b, scale)
	return Variable{Value: c.api.Add(a.Value, b.Value), Scale: scale}
}

func (c *Chip) SubF(a, b Variable) Variable {
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	a, b = c.align(a, scale), c.align(b, scale)
	return Variable{Value: c.api.Sub(a.Value, b.Value), Scale: scale}
}

func (c *Chip) MulF(a, b Variable) Variable {
	return Variable{Value: c.api.Mul(a.Value, b.Value), Scale: a.Scale + b.Scale}
}

// ReluF returns max(a, 0). The operand is interpreted as a signed value in
// (-2^(bits-1), 2^(bits-1)); the shifted binary decomposition below both
// range-checks it and exposes its sign as the top bit.
func (c *Chip) ReluF(a Variable) Variable {
	shift := new(big.Int).Lsh(big.NewInt(1), uint(c.bits-1))
	shifted := c.api.Add(a.Value, shift)
	bits := c.api.ToBinary(shifted, int(c.bits))
	nonNegative := bits[c.bits-1]
	return Variable{Value: c.api.Mul(a.Value, nonNegative), Scale: a.Scale}
}

func (c *Chip) AssertIsEqualF(a, b Variable) {
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	a, b = c.align(a, scale), c.align(b, scale)
	c.api.AssertIsEqual(a.Value, b.Value)
}

// AssertWithinF asserts |a - b| <= tolerance after aligning scales. The
// tolerance is expressed in quantized units at the common scale.
func (c *Chip) AssertWithinF(a, b Variable, tolerance uint64) {
	if tolerance == 0 {
		c.AssertIsEqualF(a, b)
		return
	}
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	a, b = c.align(a, scale), c.align(b, scale)
	diff := c.api.Sub(a.Value, b.Value)
	// diff + tol must land in [0, 2*tol]
	shifted := c.api.Add(diff, tolerance)
	c.api.AssertIsLessOrEqual(shifted, 2*tolerance)
}

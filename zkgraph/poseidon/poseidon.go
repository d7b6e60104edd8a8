// Package poseidon implements a Poseidon2 hash chip over the BN254 scalar
// field with a width-3 state. The chip exposes two equivalent paths: Run
// computes the hash natively for witness generation and testing, and
// Synthesize emits the same computation as circuit constraints. Both absorb
// input through a sponge whose capacity element encodes the input length, so
// a short input can never collide with a zero-padded longer one.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
)

const (
	// Width is the permutation state size in field elements.
	Width = 3
	// Rate is the number of state elements absorbed per permutation.
	Rate = Width - 1
	// FullRounds is the number of external (full s-box) rounds.
	FullRounds = 8
	// PartialRounds is the number of internal (single s-box) rounds.
	PartialRounds = 56
)

// Round constants and the internal diffusion diagonal, in both native and
// circuit form, parsed once from the shared table in constants.go.
var (
	rcFr  [FullRounds + PartialRounds][Width]fr.Element
	rcVar [FullRounds + PartialRounds][Width]frontend.Variable
	diag  = [Width]int64{1, 1, 2}
)

func init() {
	for r := range roundConstants {
		for i, s := range roundConstants[r] {
			if _, err := rcFr[r][i].SetString(s); err != nil {
				panic(fmt.Sprintf("poseidon: bad round constant %q: %v", s, err))
			}
			rcVar[r][i] = frontend.Variable(s)
		}
	}
}

// Chip is a Poseidon hash instance with a fixed maximum input length. The
// length is a structural parameter: instantiating a chip with a different
// length changes the circuit shape and invalidates existing keys.
type Chip struct {
	Len int
}

func NewChip(length int) *Chip {
	return &Chip{Len: length}
}

// domainTag derives the sponge's initial capacity element from the input
// length, separating the hash domains of different lengths.
func domainTag(n int) fr.Element {
	var tag fr.Element
	t := new(big.Int).Lsh(big.NewInt(int64(n)), 64)
	tag.SetBigInt(t)
	return tag
}

// Run computes the hash natively. It returns one digest per call as a
// fixed-length vector of field elements, matching the output wires the
// in-circuit path exposes. Run is pure: identical inputs always yield
// identical output, independent of any circuit settings.
func (c *Chip) Run(inputs []fr.Element) ([][]fr.Element, error) {
	if len(inputs) > c.Len {
		return nil, fmt.Errorf("poseidon: input length %d exceeds chip length %d", len(inputs), c.Len)
	}

	var state [Width]fr.Element
	state[0] = domainTag(len(inputs))

	chunks := (len(inputs) + Rate - 1) / Rate
	if chunks == 0 {
		chunks = 1
	}
	for ci := 0; ci < chunks; ci++ {
		for j := 0; j < Rate; j++ {
			k := ci*Rate + j
			if k < len(inputs) {
				state[j+1].Add(&state[j+1], &inputs[k])
			}
		}
		Permute(&state)
	}

	return [][]fr.Element{{state[1]}}, nil
}

// Permute applies the Poseidon2 permutation to a native state.
func Permute(state *[Width]fr.Element) {
	matMulExternal(state)

	halfFull := FullRounds / 2
	for r := 0; r < halfFull; r++ {
		for i := 0; i < Width; i++ {
			state[i].Add(&state[i], &rcFr[r][i])
			sboxFr(&state[i])
		}
		matMulExternal(state)
	}

	pEnd := halfFull + PartialRounds
	for r := halfFull; r < pEnd; r++ {
		state[0].Add(&state[0], &rcFr[r][0])
		sboxFr(&state[0])
		matMulInternal(state)
	}

	for r := pEnd; r < FullRounds+PartialRounds; r++ {
		for i := 0; i < Width; i++ {
			state[i].Add(&state[i], &rcFr[r][i])
			sboxFr(&state[i])
		}
		matMulExternal(state)
	}
}

// sboxFr computes x^5 in place.
func sboxFr(x *fr.Element) {
	var sq, quad fr.Element
	sq.Square(x)
	quad.Square(&sq)
	x.Mul(&quad, x)
}

func matMulExternal(state *[Width]fr.Element) {
	var sum fr.Element
	sum.Add(&state[0], &state[1])
	sum.Add(&sum, &state[2])
	for i := 0; i < Width; i++ {
		state[i].Add(&state[i], &sum)
	}
}

func matMulInternal(state *[Width]fr.Element) {
	var sum fr.Element
	sum.Add(&state[0], &state[1])
	sum.Add(&sum, &state[2])
	for i := 0; i < Width; i++ {
		if diag[i] != 1 {
			var d fr.Element
			d.SetInt64(diag[i])
			state[i].Mul(&state[i], &d)
		}
		state[i].Add(&state[i], &sum)
	}
}

// Synthesize emits the sponge as circuit constraints and returns the digest
// wires. The constraint structure mirrors Run exactly; any divergence
// between the two paths is a soundness bug.
func (c *Chip) Synthesize(api frontend.API, inputs []frontend.Variable) ([]frontend.Variable, error) {
	if len(inputs) > c.Len {
		return nil, fmt.Errorf("poseidon: input length %d exceeds chip length %d", len(inputs), c.Len)
	}

	tag := domainTag(len(inputs))
	state := [Width]frontend.Variable{tag.BigInt(new(big.Int)), 0, 0}

	chunks := (len(inputs) + Rate - 1) / Rate
	if chunks == 0 {
		chunks = 1
	}
	for ci := 0; ci < chunks; ci++ {
		for j := 0; j < Rate; j++ {
			k := ci*Rate + j
			if k < len(inputs) {
				state[j+1] = api.Add(state[j+1], inputs[k])
			}
		}
		c.permuteVar(api, &state)
	}

	return []frontend.Variable{state[1]}, nil
}

func (c *Chip) permuteVar(api frontend.API, state *[Width]frontend.Variable) {
	c.matMulExternalVar(api, state)

	halfFull := FullRounds / 2
	for r := 0; r < halfFull; r++ {
		c.addRcVar(api, state, r)
		c.sboxVarAll(api, state)
		c.matMulExternalVar(api, state)
	}

	pEnd := halfFull + PartialRounds
	for r := halfFull; r < pEnd; r++ {
		state[0] = api.Add(state[0], rcVar[r][0])
		state[0] = sboxVar(api, state[0])
		c.matMulInternalVar(api, state)
	}

	for r := pEnd; r < FullRounds+PartialRounds; r++ {
		c.addRcVar(api, state, r)
		c.sboxVarAll(api, state)
		c.matMulExternalVar(api, state)
	}
}

func (c *Chip) addRcVar(api frontend.API, state *[Width]frontend.Variable, r int) {
	for i := 0; i < Width; i++ {
		state[i] = api.Add(state[i], rcVar[r][i])
	}
}

func sboxVar(api frontend.API, x frontend.Variable) frontend.Variable {
	sq := api.Mul(x, x)
	quad := api.Mul(sq, sq)
	return api.Mul(quad, x)
}

func (c *Chip) sboxVarAll(api frontend.API, state *[Width]frontend.Variable) {
	for i := 0; i < Width; i++ {
		state[i] = sboxVar(api, state[i])
	}
}

func (c *Chip) matMulExternalVar(api frontend.API, state *[Width]frontend.Variable) {
	sum := api.Add(state[0], state[1])
	sum = api.Add(sum, state[2])
	for i := 0; i < Width; i++ {
		state[i] = api.Add(state[i], sum)
	}
}

func (c *Chip) matMulInternalVar(api frontend.API, state *[Width]frontend.Variable) {
	sum := api.Add(state[0], state[1])
	sum = api.Add(sum, state[2])
	for i := 0; i < Width; i++ {
		if diag[i] != 1 {
			state[i] = api.Mul(state[i], diag[i])
		}
		state[i] = api.Add(state[i], sum)
	}
}

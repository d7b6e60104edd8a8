package elgamal

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bn254te "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Chip is the ElGamal encryption module. Len fixes the message length per
// instantiation; like the hash chip, changing it changes the circuit shape.
//
// The module's wire convention is [pk.x, pk.y, r, m_0 .. m_{Len-1}] in and
// [c1.x, c1.y, c2_0 .. c2_{Len-1}] out, for both the native and the circuit
// path.
type Chip struct {
	Len int
}

func NewChip(length int) *Chip {
	return &Chip{Len: length}
}

// Run computes encryption natively under the module wire convention. It is
// the reference path for Synthesize; the two must agree on every input.
func (c *Chip) Run(inputs []fr.Element) ([][]fr.Element, error) {
	if len(inputs) != 3+c.Len {
		return nil, fmt.Errorf("elgamal: got %d inputs, want %d", len(inputs), 3+c.Len)
	}
	var pk bn254te.PointAffine
	pk.X, pk.Y = inputs[0], inputs[1]

	var rEl fr.Element
	rEl.Set(&inputs[2])
	r := rEl.BigInt(new(big.Int))
	cipher, err := Encrypt(pk, inputs[3:], r)
	if err != nil {
		return nil, err
	}

	return [][]fr.Element{
		{cipher.C1.X, cipher.C1.Y},
		cipher.C2,
	}, nil
}

// Synthesize emits the encryption as circuit constraints under the module
// wire convention and returns the ciphertext wires.
func (c *Chip) Synthesize(api frontend.API, inputs []frontend.Variable) ([]frontend.Variable, error) {
	if len(inputs) != 3+c.Len {
		return nil, fmt.Errorf("elgamal: got %d inputs, want %d", len(inputs), 3+c.Len)
	}
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return nil, err
	}

	pk := twistededwards.Point{X: inputs[0], Y: inputs[1]}
	r := inputs[2]
	message := inputs[3:]

	curve.AssertIsOnCurve(pk)
	params := curve.Params()
	base := twistededwards.Point{X: params.Base[0], Y: params.Base[1]}

	c1 := curve.ScalarMul(base, r)
	shared := curve.ScalarMul(pk, r)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}

	out := make([]frontend.Variable, 0, 2+len(message))
	out = append(out, c1.X, c1.Y)
	for i := range message {
		h.Reset()
		h.Write(shared.X, shared.Y, i)
		out = append(out, api.Add(message[i], h.Sum()))
	}
	return out, nil
}

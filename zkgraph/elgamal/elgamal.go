// Package elgamal implements a hybrid ElGamal encryption chip over the
// twisted Edwards curve embedded in the BN254 scalar field. Encryption
// derives a Diffie-Hellman shared point s = r*pk and masks each message
// element additively with MiMC(s.X, s.Y, i), so variable-length messages map
// one-to-one to variable-length ciphertexts. The same construction is
// available natively (Encrypt/Decrypt) and as circuit constraints
// (Synthesize), using the curve and hash gadgets of the proving stack.
//
// The ephemeral randomness r must never be reused across two encryptions
// under the same public key: the masks would repeat and the difference of
// the two plaintexts would leak. The chip does not enforce single use;
// callers own that obligation.
package elgamal

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	bn254te "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

// Variables is a keypair plus the ephemeral randomness of one encryption
// session. All scalars are reduced modulo the embedded curve's subgroup
// order, which fits in the proving system's scalar field.
type Variables struct {
	Sk *big.Int
	R  *big.Int
	Pk bn254te.PointAffine
}

type variablesJSON struct {
	Sk string    `json:"sk"`
	R  string    `json:"r"`
	Pk [2]string `json:"pk"`
}

func (v Variables) MarshalJSON() ([]byte, error) {
	return json.Marshal(variablesJSON{
		Sk: v.Sk.String(),
		R:  v.R.String(),
		Pk: [2]string{v.Pk.X.String(), v.Pk.Y.String()},
	})
}

func (v *Variables) UnmarshalJSON(data []byte) error {
	var raw variablesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var ok bool
	if v.Sk, ok = new(big.Int).SetString(raw.Sk, 10); !ok {
		return fmt.Errorf("elgamal: bad sk %q", raw.Sk)
	}
	if v.R, ok = new(big.Int).SetString(raw.R, 10); !ok {
		return fmt.Errorf("elgamal: bad r %q", raw.R)
	}
	if _, err := v.Pk.X.SetString(raw.Pk[0]); err != nil {
		return fmt.Errorf("elgamal: bad pk.x: %v", err)
	}
	if _, err := v.Pk.Y.SetString(raw.Pk[1]); err != nil {
		return fmt.Errorf("elgamal: bad pk.y: %v", err)
	}
	return nil
}

// Ciphertext carries the ephemeral public point and the masked message.
type Ciphertext struct {
	C1 bn254te.PointAffine
	C2 []fr.Element
}

type ciphertextJSON struct {
	C1 [2]string `json:"c1"`
	C2 []string  `json:"c2"`
}

func (c Ciphertext) MarshalJSON() ([]byte, error) {
	c2 := make([]string, len(c.C2))
	for i := range c.C2 {
		c2[i] = c.C2[i].String()
	}
	return json.Marshal(ciphertextJSON{
		C1: [2]string{c.C1.X.String(), c.C1.Y.String()},
		C2: c2,
	})
}

func (c *Ciphertext) UnmarshalJSON(data []byte) error {
	var raw ciphertextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, err := c.C1.X.SetString(raw.C1[0]); err != nil {
		return fmt.Errorf("elgamal: bad c1.x: %v", err)
	}
	if _, err := c.C1.Y.SetString(raw.C1[1]); err != nil {
		return fmt.Errorf("elgamal: bad c1.y: %v", err)
	}
	c.C2 = make([]fr.Element, len(raw.C2))
	for i, s := range raw.C2 {
		if _, err := c.C2[i].SetString(s); err != nil {
			return fmt.Errorf("elgamal: bad c2[%d]: %v", i, err)
		}
	}
	return nil
}

// PointFromStrings builds a curve point from decimal coordinate strings,
// rejecting points off the curve.
func PointFromStrings(x, y string) (bn254te.PointAffine, error) {
	var p bn254te.PointAffine
	if _, err := p.X.SetString(x); err != nil {
		return p, fmt.Errorf("elgamal: bad x coordinate: %v", err)
	}
	if _, err := p.Y.SetString(y); err != nil {
		return p, fmt.Errorf("elgamal: bad y coordinate: %v", err)
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("elgamal: point is not on the curve")
	}
	return p, nil
}

// GenRandom samples a fresh keypair and ephemeral randomness from rng, or
// from crypto/rand when rng is nil.
func GenRandom(rng io.Reader) (*Variables, error) {
	if rng == nil {
		rng = rand.Reader
	}
	params := bn254te.GetEdwardsCurve()

	sk, err := randScalar(rng, &params.Order)
	if err != nil {
		return nil, err
	}
	r, err := randScalar(rng, &params.Order)
	if err != nil {
		return nil, err
	}

	var pk bn254te.PointAffine
	pk.ScalarMultiplication(&params.Base, sk)

	return &Variables{Sk: sk, R: r, Pk: pk}, nil
}

// randScalar samples a uniform nonzero scalar below order.
func randScalar(rng io.Reader, order *big.Int) (*big.Int, error) {
	for {
		s, err := rand.Int(rng, order)
		if err != nil {
			return nil, fmt.Errorf("elgamal: sampling scalar: %w", err)
		}
		if s.Sign() != 0 {
			return s, nil
		}
	}
}

// Encrypt masks message under pk with ephemeral randomness r. The returned
// ciphertext embeds the ephemeral public point needed for decryption.
func Encrypt(pk bn254te.PointAffine, message []fr.Element, r *big.Int) (*Ciphertext, error) {
	params := bn254te.GetEdwardsCurve()
	if r == nil || r.Sign() == 0 || r.Cmp(&params.Order) >= 0 {
		return nil, fmt.Errorf("elgamal: ephemeral randomness out of range")
	}

	var c1, shared bn254te.PointAffine
	c1.ScalarMultiplication(&params.Base, r)
	shared.ScalarMultiplication(&pk, r)

	c2 := make([]fr.Element, len(message))
	for i := range message {
		m := mask(&shared, uint64(i))
		c2[i].Add(&message[i], &m)
	}
	return &Ciphertext{C1: c1, C2: c2}, nil
}

// Decrypt re-derives the shared point from the embedded ephemeral value and
// sk and strips the masks. An sk that does not match the pk used for
// encryption yields a well-defined but meaningless message; the chip cannot
// detect that.
func Decrypt(cipher *Ciphertext, sk *big.Int) []fr.Element {
	var shared bn254te.PointAffine
	shared.ScalarMultiplication(&cipher.C1, sk)

	message := make([]fr.Element, len(cipher.C2))
	for i := range cipher.C2 {
		m := mask(&shared, uint64(i))
		message[i].Sub(&cipher.C2[i], &m)
	}
	return message
}

// mask derives the additive pad for message element i from the shared point.
func mask(shared *bn254te.PointAffine, i uint64) fr.Element {
	h := mimc.NewMiMC()
	var idx fr.Element
	idx.SetUint64(i)

	b := shared.X.Bytes()
	h.Write(b[:])
	b = shared.Y.Bytes()
	h.Write(b[:])
	b = idx.Bytes()
	h.Write(b[:])

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

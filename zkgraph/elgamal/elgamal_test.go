package elgamal

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

func randomMessage(t *testing.T, n int) []fr.Element {
	t.Helper()
	msg := make([]fr.Element, n)
	for i := range msg {
		_, err := msg[i].SetRandom()
		require.NoError(t, err)
	}
	return msg
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	vars, err := GenRandom(nil)
	require.NoError(t, err)

	msg := randomMessage(t, 32)
	cipher, err := Encrypt(vars.Pk, msg, vars.R)
	require.NoError(t, err)

	got := Decrypt(cipher, vars.Sk)
	require.Len(t, got, len(msg))
	for i := range msg {
		require.True(t, msg[i].Equal(&got[i]), "element %d", i)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	vars, err := GenRandom(nil)
	require.NoError(t, err)

	msg := randomMessage(t, 4)
	cipher, err := Encrypt(vars.Pk, msg, vars.R)
	require.NoError(t, err)

	wrong := new(big.Int).Add(vars.Sk, big.NewInt(1))
	got := Decrypt(cipher, wrong)

	same := true
	for i := range msg {
		if !msg[i].Equal(&got[i]) {
			same = false
		}
	}
	require.False(t, same, "a wrong key must not reproduce the message")
}

func TestEncryptRejectsBadRandomness(t *testing.T) {
	vars, err := GenRandom(nil)
	require.NoError(t, err)
	msg := randomMessage(t, 1)

	_, err = Encrypt(vars.Pk, msg, big.NewInt(0))
	require.Error(t, err)
	_, err = Encrypt(vars.Pk, msg, nil)
	require.Error(t, err)
}

func TestVariablesJSONRoundTrip(t *testing.T) {
	vars, err := GenRandom(nil)
	require.NoError(t, err)

	data, err := json.Marshal(vars)
	require.NoError(t, err)

	var got Variables
	require.NoError(t, json.Unmarshal(data, &got))
	require.Zero(t, vars.Sk.Cmp(got.Sk))
	require.Zero(t, vars.R.Cmp(got.R))
	require.True(t, vars.Pk.Equal(&got.Pk))
}

const testLen = 2

type encryptCircuit struct {
	Pk      [2]frontend.Variable
	R       frontend.Variable
	Message [testLen]frontend.Variable
	Cipher  [2 + testLen]frontend.Variable `gnark:",public"`
}

func (c *encryptCircuit) Define(api frontend.API) error {
	chip := NewChip(testLen)
	in := make([]frontend.Variable, 0, 3+testLen)
	in = append(in, c.Pk[0], c.Pk[1], c.R)
	in = append(in, c.Message[:]...)

	out, err := chip.Synthesize(api, in)
	if err != nil {
		return err
	}
	for i := range out {
		api.AssertIsEqual(c.Cipher[i], out[i])
	}
	return nil
}

func TestSynthesizeMatchesRun(t *testing.T) {
	assert := test.NewAssert(t)

	vars, err := GenRandom(nil)
	require.NoError(t, err)
	msg := randomMessage(t, testLen)

	chip := NewChip(testLen)
	in := make([]fr.Element, 0, 3+testLen)
	var rEl fr.Element
	rEl.SetBigInt(vars.R)
	in = append(in, vars.Pk.X, vars.Pk.Y, rEl)
	in = append(in, msg...)
	native, err := chip.Run(in)
	require.NoError(t, err)

	var circuit, witness encryptCircuit
	witness.Pk = [2]frontend.Variable{vars.Pk.X, vars.Pk.Y}
	witness.R = vars.R
	witness.Message = [testLen]frontend.Variable{msg[0], msg[1]}
	witness.Cipher = [2 + testLen]frontend.Variable{
		native[0][0], native[0][1], native[1][0], native[1][1],
	}

	assert.ProverSucceeded(&circuit, &witness, test.WithCurves(ecc.BN254), test.WithBackends(backend.PLONK))
}

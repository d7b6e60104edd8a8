package zkgraph

import (
	"encoding/json"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/elgamal"
	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph/poseidon"
)

func frSlice3(vals ...int64) []fr.Element {
	out := make([]fr.Element, len(vals))
	for i, v := range vals {
		out[i].SetInt64(v)
	}
	return out
}

func TestGenSettingsBytes(t *testing.T) {
	g := affineReluGraph()
	model, err := g.Bytes()
	require.NoError(t, err)
	runArgs, err := testArgs().Bytes()
	require.NoError(t, err)

	s1, err := GenSettingsBytes(model, runArgs)
	require.NoError(t, err)
	s2, err := GenSettingsBytes(model, runArgs)
	require.NoError(t, err)
	require.Equal(t, s1, s2)

	settings, err := SettingsFromBytes(s1)
	require.NoError(t, err)
	require.Equal(t, testArgs(), settings.RunArgs)

	_, err = GenSettingsBytes([]byte("{"), runArgs)
	require.ErrorIs(t, err, ErrSerialization)
}

func TestPoseidonHashBytes(t *testing.T) {
	out, err := PoseidonHashBytes([]byte(`["1","2","3"]`))
	require.NoError(t, err)

	var digest [][]string
	require.NoError(t, json.Unmarshal(out, &digest))
	require.Len(t, digest, 1)
	require.Len(t, digest[0], 1)

	chip := poseidon.NewChip(PoseidonLenGraph)
	want, err := chip.Run(frSlice3(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, want[0][0].Text(10), digest[0][0])

	_, err = PoseidonHashBytes([]byte(`["not a number"]`))
	require.ErrorIs(t, err, ErrMalformedWitness)
}

func TestElgamalBytesRoundTrip(t *testing.T) {
	varsData, err := ElgamalGenRandomBytes()
	require.NoError(t, err)
	var vars elgamal.Variables
	require.NoError(t, json.Unmarshal(varsData, &vars))

	req, err := json.Marshal(map[string]any{
		"pk":      []string{vars.Pk.X.String(), vars.Pk.Y.String()},
		"message": []string{"7", "11"},
		"r":       vars.R.String(),
	})
	require.NoError(t, err)
	cipherData, err := ElgamalEncryptBytes(req)
	require.NoError(t, err)

	decReq, err := json.Marshal(map[string]any{
		"cipher": json.RawMessage(cipherData),
		"sk":     vars.Sk.String(),
	})
	require.NoError(t, err)
	msgData, err := ElgamalDecryptBytes(decReq)
	require.NoError(t, err)

	var msg []string
	require.NoError(t, json.Unmarshal(msgData, &msg))
	require.Equal(t, []string{"7", "11"}, msg)
}

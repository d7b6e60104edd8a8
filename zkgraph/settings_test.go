package zkgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveSettingsDeterministic(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()

	s1, err := DeriveSettings(g, args)
	require.NoError(t, err)
	s2, err := DeriveSettings(g, args)
	require.NoError(t, err)

	b1, err := s1.Bytes()
	require.NoError(t, err)
	b2, err := s2.Bytes()
	require.NoError(t, err)
	require.Equal(t, b1, b2, "identical inputs must serialize to identical bytes")
}

func TestDeriveSettingsLayout(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	args.BatchSize = 3

	s, err := DeriveSettings(g, args)
	require.NoError(t, err)

	// inputs private, outputs public: one column of 2 per batch item
	require.Equal(t, []int{2, 2, 2}, s.NumInstances)
	require.Equal(t, [][]int{{2}}, s.InputShapes)
	require.Equal(t, [][]int{{2}}, s.OutputShapes)
	require.Empty(t, s.ModuleSizes.Poseidon)
}

func TestDeriveSettingsAllocatedConstraints(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	args.Scale = 7
	args.Bits = 16
	args.Logrows = 17
	budget := uint64(1000)
	args.AllocatedConstraints = &budget

	s, err := DeriveSettings(g, args)
	require.NoError(t, err)
	require.LessOrEqual(t, s.NumConstraints, budget)

	tight := uint64(10)
	args.AllocatedConstraints = &tight
	_, err = DeriveSettings(g, args)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestDeriveSettingsCapacity(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()
	args.Scale = 0
	args.Bits = 5
	args.Logrows = 5

	// 2^5 rows cannot hold the affine layer plus relu decomposition
	_, err := DeriveSettings(g, args)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestDeriveSettingsRejectsBadArgs(t *testing.T) {
	g := affineReluGraph()

	args := testArgs()
	args.Bits = 0
	_, err := DeriveSettings(g, args)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	args = testArgs()
	args.InputVisibility = VisibilityFixed
	_, err = DeriveSettings(g, args)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	args = testArgs()
	args.OutputVisibility = "shiny"
	_, err = DeriveSettings(g, args)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSettingsDigestBindsArgs(t *testing.T) {
	g := affineReluGraph()
	args := testArgs()

	s1, err := DeriveSettings(g, args)
	require.NoError(t, err)
	args.Tolerance = 1
	s2, err := DeriveSettings(g, args)
	require.NoError(t, err)

	d1, err := s1.Digest()
	require.NoError(t, err)
	d2, err := s2.Digest()
	require.NoError(t, err)
	require.NotEqual(t, d1, d2)
}

func TestSettingsBytesRoundTrip(t *testing.T) {
	g := affineReluGraph()
	s, err := DeriveSettings(g, testArgs())
	require.NoError(t, err)

	data, err := s.Bytes()
	require.NoError(t, err)
	got, err := SettingsFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, s, got)

	_, err = SettingsFromBytes([]byte(`{"version":"0"}`))
	require.ErrorIs(t, err, ErrSerialization)
}

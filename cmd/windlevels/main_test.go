package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windglobe/wind"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		spec string
		want []int
	}{
		{"0-3", []int{0, 1, 2, 3}},
		{"0,1, 2,10", []int{0, 1, 2, 10}},
		{"7", []int{7}},
		{" 4-4 ", []int{4}},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := parseLevels(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "a-3", "3-1", "1,x"} {
		_, err := parseLevels(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteLevels(t *testing.T) {
	base, err := wind.NewGrid(
		[]float64{-10, 10}, []float64{0, 10},
		[][]float64{{1, 2}, {math.NaN(), 4}},
		[][]float64{{0, 0}, {0, -1}},
		wind.Meta{},
	)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, writeLevels(base, []int{0, 5}, dir, 0.2))

	m, err := wind.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, m.Levels)

	g, err := wind.LoadGrid(filepath.Join(dir, wind.LevelFile(5)))
	require.NoError(t, err)
	assert.Equal(t, "5", g.Meta.LevelLabel())
	u, v, ok := g.At(1, 1)
	require.True(t, ok)
	assert.InDelta(t, 8, u, 1e-9)
	assert.InDelta(t, -2, v, 1e-9)
	_, _, ok = g.At(1, 0)
	assert.False(t, ok, "missing stays missing")

	// the template is untouched
	u, _, _ = base.At(1, 1)
	assert.Equal(t, 4.0, u)
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/lateral/lateral"
)

func sample() (lateral.Trajectory, []lateral.Bound) {
	traj := lateral.Trajectory{
		Offsets:           []float64{0, 0.1, 0.3, 0.4},
		Derivatives:       []float64{0, 0.15, 0.15, 0},
		SecondDerivatives: []float64{0, 0.1, -0.1, 0},
	}
	bounds := []lateral.Bound{{Lower: -1, Upper: 1}, {Lower: -1, Upper: 1}, {Lower: 0.2, Upper: 1}, {Lower: 0.2, Upper: 1}}
	return traj, bounds
}

func TestPlot(t *testing.T) {
	traj, bounds := sample()
	p, err := Plot("lateral", traj, bounds, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "lateral", p.Title.Text)
	assert.InDelta(t, 0, p.X.Min, 1e-12)
	assert.InDelta(t, 1.5, p.X.Max, 1e-12)
	assert.InDelta(t, -1, p.Y.Min, 1e-12)
	assert.InDelta(t, 1, p.Y.Max, 1e-12)

	_, err = Plot("short", traj, bounds[:2], 0.5)
	assert.ErrorIs(t, err, ErrLength)

	traj.Offsets[1] = math.NaN()
	_, err = Plot("nan", traj, bounds, 0.5)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	traj, bounds := sample()
	for _, name := range []string{"lateral.svg", "lateral.png"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, Render(path, "lateral", traj, bounds, 0.5))
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
}

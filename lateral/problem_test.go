// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLayout(t *testing.T) {
	l := Layout{N: 3}
	assert.Equal(t, 9, l.NumParam())
	assert.Equal(t, 18, l.NumConstraint())
	assert.Equal(t, 2, l.Offset(2))
	assert.Equal(t, 3, l.Derivative(0))
	assert.Equal(t, 8, l.SecondDerivative(2))
	assert.Panics(t, func() { l.Offset(3) })
	assert.Panics(t, func() { l.Derivative(-1) })

	one := Layout{N: 1}
	assert.Equal(t, 3, one.NumParam())
	assert.Equal(t, 6, one.NumConstraint())
}

func TestDecision(t *testing.T) {
	l := Layout{N: 2}
	x := []float64{1, 2, 3, 4, 5, 6}
	d, err := NewDecision(l, x)
	require.NoError(t, err)
	x[0] = 100
	assert.Equal(t, []float64{1, 2}, d.Offsets())
	assert.Equal(t, []float64{3, 4}, d.Derivatives())
	assert.Equal(t, []float64{5, 6}, d.SecondDerivatives())
	assert.Len(t, d.Vector(), 6)
	assert.Equal(t, l, d.Layout())

	_, err = NewDecision(l, x[:5])
	assert.Error(t, err)
}

func TestKernel(t *testing.T) {
	cfg := Config{WeightOffset: 1, WeightObstacleDistance: 0.5, WeightDerivative: 500, WeightSecondDerivative: 1000}
	l := Layout{N: 2}
	p := kernel(l, &cfg)
	diag := make([]float64, p.Diag())
	for i := range diag {
		diag[i] = p.At(i, i)
	}
	assert.Equal(t, []float64{3, 3, 1000, 1000, 2000, 2000}, diag)

	q := linearTerm(l, &cfg, []Bound{{-1, 3}, {0, 0}})
	assert.Equal(t, []float64{-2, 0, 0, 0, 0, 0}, q)
}

func TestConstraints(t *testing.T) {
	cfg := Config{ThirdDerivativeMax: 0.1}
	l := Layout{N: 3}
	init := State{Offset: 0.1, Derivative: 0.2, SecondDerivative: 0.3}
	bounds := []Bound{{-1, 1}, {-2, 2}, {-3, 3}}
	b, err := constraints(l, &cfg, init, 0.5, bounds)
	require.NoError(t, err)

	a := b.a
	r, c := a.Dims()
	require.Equal(t, 18, r)
	require.Equal(t, 9, c)

	// jerk
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, -1, 1, 0}, mat.Row(nil, 0, a))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, -1, 1}, mat.Row(nil, 1, a))
	assert.InDelta(t, -0.05, b.lower[0], 1e-15)
	assert.InDelta(t, 0.05, b.upper[0], 1e-15)

	// velocity continuity
	assert.Equal(t, []float64{0, 0, 0, -1, 1, 0, -0.25, -0.25, 0}, mat.Row(nil, 2, a))
	// position continuity
	assert.InDeltaSlice(t, []float64{0, -1, 1, 0, -0.5, 0, 0, -0.25 / 3, -0.25 / 6}, mat.Row(nil, 5, a), 1e-15)
	for i := 2; i < 6; i++ {
		assert.Zero(t, b.lower[i])
		assert.Zero(t, b.upper[i])
	}

	// initial state
	assert.Equal(t, 1.0, a.At(6, 0))
	assert.Equal(t, 1.0, a.At(7, 3))
	assert.Equal(t, 1.0, a.At(8, 6))
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, b.lower[6:9])
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, b.upper[6:9])

	// boxes
	for i := 0; i < 9; i++ {
		assert.Equal(t, 1.0, a.At(9+i, i))
	}
	assert.Equal(t, []float64{-1, -2, -3, -2, -2, -2, -2, -2, -2}, b.lower[9:])
	assert.Equal(t, []float64{1, 2, 3, 2, 2, 2, 2, 2, 2}, b.upper[9:])
}

func TestConstraintCount(t *testing.T) {
	l := Layout{N: 1}
	b := newConstraintBuilder(l, 2)
	b.add(0, 0, term{0, 1})
	b.add(0, 0, term{1, 1})
	b.add(0, 0, term{2, 1})
	assert.ErrorIs(t, b.finish(), ErrConstraintCount)

	b = newConstraintBuilder(l, 2)
	b.add(0, 0, term{0, 1})
	assert.ErrorIs(t, b.finish(), ErrConstraintCount)
}

func TestFormulate(t *testing.T) {
	cfg := Config{WeightOffset: 1, WeightDerivative: 500, WeightSecondDerivative: 1000, ThirdDerivativeMax: 0.1}

	_, err := Formulate(cfg, State{}, 1, nil)
	assert.ErrorIs(t, err, ErrNoStations)

	prob, err := Formulate(cfg, State{}, 1, []Bound{{-1, 1}, {-1, 1}, {-1, 1}, {-1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 4, prob.Layout.N)

	data := prob.Data()
	assert.Equal(t, 12, data.N)
	assert.Equal(t, 24, data.M)
	assert.Equal(t, 12, data.P.NNZ())
	assert.True(t, mat.Equal(prob.Kernel, data.P.ToDense()))
	assert.True(t, mat.Equal(prob.Constraint, data.A.ToDense()))
	assert.NoError(t, data.A.Validate())
	assert.Equal(t, prob.Lower, data.L)
	assert.Equal(t, prob.Upper, data.U)
}

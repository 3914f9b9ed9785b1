// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsqp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quadStop = Termination{
	Accuracy:      1e-10,
	MaxIterations: 100,
}

// TestQuadraticEquality solves
//
//	𝚖𝚒𝚗 ½𝐱ᵀ⎡4 1⎤𝐱 + ⎡1⎤ᵀ𝐱  s.t.  𝐱₁ + 𝐱₂ = 1,  0 ≤ 𝐱 ≤ 0.7
//	       ⎣1 2⎦    ⎣1⎦
func TestQuadraticEquality(t *testing.T) {
	p := Problem{
		N: 2,
		Object: func(x, g []float64) float64 {
			if g != nil {
				g[0] = 4*x[0] + x[1] + 1
				g[1] = x[0] + 2*x[1] + 1
			}
			return 2*x[0]*x[0] + x[0]*x[1] + x[1]*x[1] + x[0] + x[1]
		},
		EqCons: []Evaluation{
			func(x, g []float64) float64 {
				if g != nil {
					g[0], g[1] = 1, 1
				}
				return x[0] + x[1] - 1
			},
		},
		Bounds: []Bound{{0, 0.7}, {0, 0.7}},
		Stop:   quadStop,
	}
	opt, err := p.New()
	require.NoError(t, err)
	r := opt.Fit([]float64{0, 0}, opt.Init())
	require.True(t, r.OK, r.Status.String())
	assert.InDeltaSlice(t, []float64{0.3, 0.7}, r.X, 1e-6)
	assert.InDelta(t, 1.88, r.F, 1e-8)
	assert.Positive(t, r.NumIter)
}

// 𝚖𝚒𝚗 ½‖ 𝐱 ‖² - 𝐱₁ - 𝐱₂  s.t.  1 - 𝐱₁ - 𝐱₂ ≥ 0
func TestQuadraticInequality(t *testing.T) {
	p := Problem{
		N: 2,
		Object: func(x, g []float64) float64 {
			if g != nil {
				g[0] = x[0] - 1
				g[1] = x[1] - 1
			}
			return 0.5*(x[0]*x[0]+x[1]*x[1]) - x[0] - x[1]
		},
		NeqCons: []Evaluation{
			func(x, g []float64) float64 {
				if g != nil {
					g[0], g[1] = -1, -1
				}
				return 1 - x[0] - x[1]
			},
		},
		Stop: quadStop,
	}
	opt, err := p.New()
	require.NoError(t, err)
	r := opt.Fit([]float64{2, -1}, opt.Init())
	require.True(t, r.OK, r.Status.String())
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, r.X, 1e-6)
}

func TestExceedMaxIterations(t *testing.T) {
	rosen := func(x, g []float64) float64 {
		if g != nil {
			g[0] = -400*(x[1]-x[0]*x[0])*x[0] - 2*(1-x[0])
			g[1] = 200 * (x[1] - x[0]*x[0])
		}
		return 100*math.Pow(x[1]-x[0]*x[0], 2) + math.Pow(1-x[0], 2)
	}
	p := Problem{
		N:      2,
		Object: rosen,
		Stop:   Termination{Accuracy: 1e-10, MaxIterations: 2},
	}
	opt, err := p.New()
	require.NoError(t, err)
	r := opt.Fit([]float64{-1.2, 1}, opt.Init())
	assert.False(t, r.OK)
	assert.Equal(t, SQPExceedMaxIter, r.Status)
	assert.Equal(t, 2, r.NumIter)
}

func TestInvalidProblem(t *testing.T) {
	obj := func(x, g []float64) float64 { return 0 }
	eq := func(x, g []float64) float64 { return 0 }
	tests := []struct {
		name string
		p    Problem
	}{
		{"dimension", Problem{N: 0, Object: obj, Stop: quadStop}},
		{"objective", Problem{N: 1, Stop: quadStop}},
		{"iterations", Problem{N: 1, Object: obj, Stop: Termination{Accuracy: 1e-8}}},
		{"accuracy", Problem{N: 1, Object: obj, Stop: Termination{MaxIterations: 10}}},
		{"equalities", Problem{N: 1, Object: obj, EqCons: []Evaluation{eq, eq}, Stop: quadStop}},
		{"nil constraint", Problem{N: 1, Object: obj, NeqCons: []Evaluation{nil}, Stop: quadStop}},
		{"bound size", Problem{N: 2, Object: obj, Bounds: []Bound{{0, 1}}, Stop: quadStop}},
		{"inverted bound", Problem{N: 1, Object: obj, Bounds: []Bound{{1, 0}}, Stop: quadStop}},
		{"eval tolerance", Problem{N: 1, Object: obj, Stop: Termination{Accuracy: 1e-8, MaxIterations: 10, FEvalTolerance: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.New()
			assert.ErrorIs(t, err, ErrInvalidProblem)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "converged", OK.String())
	assert.Equal(t, "incompatible constraints", ConsIncompatible.String())
	assert.Equal(t, "sqp iteration limit", SQPExceedMaxIter.String())
	assert.Equal(t, "unknown", sqpMode(99).String())
}

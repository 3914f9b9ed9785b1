// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/lateral/qp"
	"github.com/curioloop/lateral/sparse"
)

var (
	ErrNoStations      = errors.New("lateral: no station bounds")
	ErrConstraintCount = errors.New("lateral: constraint row count mismatch")
	ErrNoSolution      = errors.New("lateral: solver returned no solution")
)

// Problem is the quadratic program of one optimization:
//
//	𝚖𝚒𝚗 ½𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱  subject to  𝐥 ≤ 𝐀𝐱 ≤ 𝐮
type Problem struct {
	Layout     Layout
	Kernel     *mat.DiagDense // 𝐏 : 3N × 3N
	Linear     []float64      // 𝐪 : 3N
	Constraint *mat.Dense     // 𝐀 : M × 3N
	Lower      []float64      // 𝐥 : M
	Upper      []float64      // 𝐮 : M
}

// Formulate builds the problem for the given initial state, station spacing and station bounds.
// Bounds are ordered by increasing arc length; deltaS > 0 and Lower ≤ Upper are the caller's duty.
func Formulate(cfg Config, init State, deltaS float64, bounds []Bound) (*Problem, error) {
	if len(bounds) == 0 {
		return nil, ErrNoStations
	}
	l := Layout{N: len(bounds)}
	b, err := constraints(l, &cfg, init, deltaS, bounds)
	if err != nil {
		return nil, err
	}
	return &Problem{
		Layout:     l,
		Kernel:     kernel(l, &cfg),
		Linear:     linearTerm(l, &cfg, bounds),
		Constraint: b.a,
		Lower:      b.lower,
		Upper:      b.upper,
	}, nil
}

// Data converts the problem into solver input with both matrices in CSC layout.
func (p *Problem) Data() *qp.Data {
	return &qp.Data{
		N: p.Layout.NumParam(),
		M: p.Layout.NumConstraint(),
		P: sparse.FromDense(p.Kernel),
		Q: p.Linear,
		A: sparse.FromDense(p.Constraint),
		L: p.Lower,
		U: p.Upper,
	}
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"fmt"
	"slices"
)

// Layout maps station quantities onto the flattened decision vector of N stations:
//
//	┌──── N ────┐┌──── N ────┐┌──── N ────┐
//	 𝐝₀ ··· 𝐝ₙ₋₁  𝐝′₀ ··· 𝐝′ₙ₋₁  𝐝″₀ ··· 𝐝″ₙ₋₁
type Layout struct {
	N int // number of stations
}

// NumParam returns the length of the decision vector.
func (l Layout) NumParam() int { return 3 * l.N }

// NumConstraint returns the number of rows of the constraint matrix:
// (N-1) jerk, (N-1) velocity continuity, (N-1) position continuity, 3 initial pins and 3N boxes.
func (l Layout) NumConstraint() int { return l.NumParam() + 3*(l.N-1) + 3 }

// Offset returns the column of 𝐝ᵢ.
func (l Layout) Offset(i int) int { return l.col(0, i) }

// Derivative returns the column of 𝐝′ᵢ.
func (l Layout) Derivative(i int) int { return l.col(1, i) }

// SecondDerivative returns the column of 𝐝″ᵢ.
func (l Layout) SecondDerivative(i int) int { return l.col(2, i) }

func (l Layout) col(block, i int) int {
	if uint(i) >= uint(l.N) {
		panic(fmt.Sprintf("station %d out of range [0,%d)", i, l.N))
	}
	return block*l.N + i
}

// Decision owns a decision vector laid out by Layout.
type Decision struct {
	layout Layout
	x      []float64
}

// NewDecision copies x into a decision vector of the given layout.
func NewDecision(l Layout, x []float64) (*Decision, error) {
	if len(x) != l.NumParam() {
		return nil, fmt.Errorf("decision vector has %d values, want %d", len(x), l.NumParam())
	}
	return &Decision{layout: l, x: slices.Clone(x)}, nil
}

// Layout returns the layout of the vector.
func (d *Decision) Layout() Layout { return d.layout }

// Offsets returns the view 𝐝₀ ··· 𝐝ₙ₋₁.
func (d *Decision) Offsets() []float64 { return d.block(0) }

// Derivatives returns the view 𝐝′₀ ··· 𝐝′ₙ₋₁.
func (d *Decision) Derivatives() []float64 { return d.block(1) }

// SecondDerivatives returns the view 𝐝″₀ ··· 𝐝″ₙ₋₁.
func (d *Decision) SecondDerivatives() []float64 { return d.block(2) }

// Vector returns the whole vector.
func (d *Decision) Vector() []float64 { return d.x }

func (d *Decision) block(b int) []float64 {
	n := d.layout.N
	return d.x[b*n : (b+1)*n : (b+1)*n]
}

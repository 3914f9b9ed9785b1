// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// largeBound is the box of derivatives and second derivatives, finite since every row needs bounds.
const largeBound = 2.0

type term struct {
	col int
	val float64
}

// constraintBuilder fills the rows 𝐥ᵢ ≤ 𝐀ᵢ𝐱 ≤ 𝐮ᵢ one by one.
type constraintBuilder struct {
	rows  int
	row   int
	a     *mat.Dense
	lower []float64
	upper []float64
}

func newConstraintBuilder(l Layout, rows int) *constraintBuilder {
	return &constraintBuilder{
		rows:  rows,
		a:     mat.NewDense(rows, l.NumParam(), nil),
		lower: make([]float64, rows),
		upper: make([]float64, rows),
	}
}

// add appends the row lo ≤ Σ term.val × 𝐱[term.col] ≤ up.
// Rows past the expected count are counted but dropped, finish reports them.
func (b *constraintBuilder) add(lo, up float64, terms ...term) {
	if b.row < b.rows {
		for _, t := range terms {
			b.a.Set(b.row, t.col, t.val)
		}
		b.lower[b.row] = lo
		b.upper[b.row] = up
	}
	b.row++
}

func (b *constraintBuilder) finish() error {
	if b.row != b.rows {
		return fmt.Errorf("%w: built %d rows, want %d", ErrConstraintCount, b.row, b.rows)
	}
	return nil
}

// constraints builds the affine constraints of the problem in this order:
//   - jerk: -𝐉ₘₐₓ𝚫𝐬 ≤ 𝐝″ᵢ₊₁ - 𝐝″ᵢ ≤ 𝐉ₘₐₓ𝚫𝐬
//   - velocity continuity: 𝐝′ᵢ₊₁ - 𝐝′ᵢ - ½𝚫𝐬(𝐝″ᵢ + 𝐝″ᵢ₊₁) = 0
//   - position continuity: 𝐝ᵢ₊₁ - 𝐝ᵢ - 𝚫𝐬𝐝′ᵢ - ⅓𝚫𝐬²𝐝″ᵢ - ⅙𝚫𝐬²𝐝″ᵢ₊₁ = 0
//   - initial state: 𝐝₀, 𝐝′₀, 𝐝″₀ pinned to the given state
//   - box: 𝐥ᵢ ≤ 𝐝ᵢ ≤ 𝐮ᵢ from the station bounds, ±2 for every other variable
func constraints(l Layout, cfg *Config, init State, ds float64, bounds []Bound) (*constraintBuilder, error) {
	n := l.N
	b := newConstraintBuilder(l, l.NumConstraint())

	jerk := cfg.ThirdDerivativeMax * ds
	for i := 0; i+1 < n; i++ {
		b.add(-jerk, jerk,
			term{l.SecondDerivative(i), -1},
			term{l.SecondDerivative(i + 1), 1},
		)
	}

	for i := 0; i+1 < n; i++ {
		b.add(0, 0,
			term{l.Derivative(i), -1},
			term{l.Derivative(i + 1), 1},
			term{l.SecondDerivative(i), -0.5 * ds},
			term{l.SecondDerivative(i + 1), -0.5 * ds},
		)
	}

	ds2 := ds * ds
	for i := 0; i+1 < n; i++ {
		b.add(0, 0,
			term{l.Offset(i), -1},
			term{l.Offset(i + 1), 1},
			term{l.Derivative(i), -ds},
			term{l.SecondDerivative(i), -ds2 / 3},
			term{l.SecondDerivative(i + 1), -ds2 / 6},
		)
	}

	b.add(init.Offset, init.Offset, term{l.Offset(0), 1})
	b.add(init.Derivative, init.Derivative, term{l.Derivative(0), 1})
	b.add(init.SecondDerivative, init.SecondDerivative, term{l.SecondDerivative(0), 1})

	for i := 0; i < n; i++ {
		b.add(bounds[i].Lower, bounds[i].Upper, term{l.Offset(i), 1})
	}
	for i := 0; i < n; i++ {
		b.add(-largeBound, largeBound, term{l.Derivative(i), 1})
	}
	for i := 0; i < n; i++ {
		b.add(-largeBound, largeBound, term{l.SecondDerivative(i), 1})
	}

	return b, b.finish()
}

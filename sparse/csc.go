// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse stores matrices in compressed sparse column (CSC) layout.
//
// A CSC matrix of r × c keeps only its nonzero entries, enumerated column by column:
//   - Data[k] is the value of the k-th nonzero
//   - Indices[k] is the row of the k-th nonzero
//   - IndPtr[j] : IndPtr[j+1] is the range of nonzeros belong to column j
//
// CSC implements mat.Matrix, so any gonum routine accepting a matrix can read it.
package sparse

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape   = errors.New("sparse: invalid shape")
	ErrPointer = errors.New("sparse: column pointer out of order")
	ErrIndex   = errors.New("sparse: row index out of range")
)

// CSC is a matrix in compressed sparse column layout.
type CSC struct {
	Rows, Cols int
	Data       []float64 // nnz
	Indices    []int     // nnz
	IndPtr     []int     // Cols + 1
}

var _ mat.Matrix = (*CSC)(nil)

// FromDense converts a dense matrix into CSC layout.
// Exact zeros are dropped, every other entry is kept in column-major order.
func FromDense(a mat.Matrix) *CSC {
	r, c := a.Dims()
	m := &CSC{
		Rows:   r,
		Cols:   c,
		IndPtr: make([]int, c+1),
	}
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			if v := a.At(i, j); v != 0 {
				m.Data = append(m.Data, v)
				m.Indices = append(m.Indices, i)
			}
		}
		m.IndPtr[j+1] = len(m.Data)
	}
	return m
}

// Identity returns the n × n identity in CSC layout scaled by s.
func Identity(n int, s float64) *CSC {
	m := &CSC{
		Rows:    n,
		Cols:    n,
		Data:    make([]float64, n),
		Indices: make([]int, n),
		IndPtr:  make([]int, n+1),
	}
	for j := 0; j < n; j++ {
		m.Data[j] = s
		m.Indices[j] = j
		m.IndPtr[j+1] = j + 1
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *CSC) Dims() (r, c int) { return m.Rows, m.Cols }

// At returns the element at row i and column j.
func (m *CSC) At(i, j int) float64 {
	if uint(i) >= uint(m.Rows) || uint(j) >= uint(m.Cols) {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.IndPtr[j], m.IndPtr[j+1]
	rows := m.Indices[lo:hi]
	k := sort.SearchInts(rows, i)
	if k < len(rows) && rows[k] == i {
		return m.Data[lo+k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *CSC) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ returns the number of stored entries.
func (m *CSC) NNZ() int { return len(m.Data) }

// ToDense reconstructs the dense matrix.
func (m *CSC) ToDense() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.Rows, m.Cols, nil)
	m.Do(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}

// Do calls fn for every stored entry in column-major order.
func (m *CSC) Do(fn func(i, j int, v float64)) {
	for j := 0; j < m.Cols; j++ {
		for k := m.IndPtr[j]; k < m.IndPtr[j+1]; k++ {
			fn(m.Indices[k], j, m.Data[k])
		}
	}
}

// MulVec computes y = 𝐀x.
func (m *CSC) MulVec(y, x []float64) {
	if len(x) != m.Cols || len(y) != m.Rows {
		panic("bound check error")
	}
	clear(y)
	for j := 0; j < m.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := m.IndPtr[j]; k < m.IndPtr[j+1]; k++ {
			y[m.Indices[k]] += m.Data[k] * xj
		}
	}
}

// MulVecTrans computes y = 𝐀ᵀx.
func (m *CSC) MulVecTrans(y, x []float64) {
	if len(x) != m.Rows || len(y) != m.Cols {
		panic("bound check error")
	}
	for j := 0; j < m.Cols; j++ {
		var s float64
		for k := m.IndPtr[j]; k < m.IndPtr[j+1]; k++ {
			s += m.Data[k] * x[m.Indices[k]]
		}
		y[j] = s
	}
}

// Validate checks the structural consistency of the layout.
func (m *CSC) Validate() error {
	switch {
	case m.Rows < 0 || m.Cols < 0:
		return fmt.Errorf("%w: %d × %d", ErrShape, m.Rows, m.Cols)
	case len(m.IndPtr) != m.Cols+1:
		return fmt.Errorf("%w: %d column pointers for %d columns", ErrShape, len(m.IndPtr), m.Cols)
	case len(m.Data) != len(m.Indices):
		return fmt.Errorf("%w: %d values but %d row indices", ErrShape, len(m.Data), len(m.Indices))
	case m.IndPtr[0] != 0 || m.IndPtr[m.Cols] != len(m.Data):
		return fmt.Errorf("%w: pointers span [%d, %d) over %d values", ErrPointer, m.IndPtr[0], m.IndPtr[m.Cols], len(m.Data))
	}
	for j := 0; j < m.Cols; j++ {
		lo, hi := m.IndPtr[j], m.IndPtr[j+1]
		if lo > hi {
			return fmt.Errorf("%w: column %d", ErrPointer, j)
		}
		for k := lo; k < hi; k++ {
			i := m.Indices[k]
			if i < 0 || i >= m.Rows {
				return fmt.Errorf("%w: row %d in column %d", ErrIndex, i, j)
			}
			if k > lo && m.Indices[k-1] >= i {
				return fmt.Errorf("%w: rows not increasing in column %d", ErrIndex, j)
			}
		}
	}
	return nil
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFromDense(t *testing.T) {
	// 𝐀 = ⎡ 1 0 2 ⎤
	//     ⎣ 0 3 4 ⎦
	a := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0, 3, 4,
	})
	m := FromDense(a)
	require.NoError(t, m.Validate())
	assert.Equal(t, []float64{1, 3, 2, 4}, m.Data)
	assert.Equal(t, []int{0, 1, 0, 1}, m.Indices)
	assert.Equal(t, []int{0, 1, 2, 4}, m.IndPtr)
	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, 0.0, m.At(1, 0))
	assert.Equal(t, 4.0, m.At(1, 2))
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		a    mat.Matrix
	}{
		{"diagonal", mat.NewDiagDense(4, []float64{2, 0, 6, 8})},
		{"tall", mat.NewDense(4, 2, []float64{
			-1, 0,
			0, 0.5,
			1, -1,
			0, 0,
		})},
		{"zero column", mat.NewDense(2, 3, []float64{
			1, 0, 0,
			0, 0, 1,
		})},
		{"empty", mat.NewDense(2, 2, nil)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := FromDense(c.a)
			require.NoError(t, m.Validate())
			assert.True(t, mat.Equal(c.a, m.ToDense()))
			assert.True(t, mat.Equal(c.a, m))
			assert.True(t, mat.Equal(c.a.T(), m.T()))
		})
	}
}

func TestMulVec(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 2,
		0, -1,
		4, 0,
	})
	m := FromDense(a)

	y := make([]float64, 3)
	m.MulVec(y, []float64{1, 1})
	assert.Equal(t, []float64{3, -1, 4}, y)

	z := make([]float64, 2)
	m.MulVecTrans(z, []float64{1, 1, 1})
	assert.Equal(t, []float64{5, 1}, z)

	assert.Panics(t, func() { m.MulVec(y, []float64{1}) })
}

func TestIdentity(t *testing.T) {
	m := Identity(3, 2)
	require.NoError(t, m.Validate())
	assert.True(t, mat.Equal(mat.NewDiagDense(3, []float64{2, 2, 2}), m))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		m    *CSC
		err  error
	}{
		{"pointer length", &CSC{Rows: 1, Cols: 2, IndPtr: []int{0, 0}}, ErrShape},
		{"value length", &CSC{Rows: 1, Cols: 1, Data: []float64{1}, IndPtr: []int{0, 1}}, ErrShape},
		{"pointer span", &CSC{Rows: 1, Cols: 1, Data: []float64{1}, Indices: []int{0}, IndPtr: []int{0, 0}}, ErrPointer},
		{"row range", &CSC{Rows: 1, Cols: 1, Data: []float64{1}, Indices: []int{3}, IndPtr: []int{0, 1}}, ErrIndex},
		{"row order", &CSC{Rows: 2, Cols: 1, Data: []float64{1, 1}, Indices: []int{1, 0}, IndPtr: []int{0, 2}}, ErrIndex},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.ErrorIs(t, c.m.Validate(), c.err)
		})
	}
}

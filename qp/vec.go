// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// dnrmInf computes the infinity norm of a vector x, propagating NaN.
func dnrmInf(x []float64) (nrm float64) {
	for _, v := range x {
		if a := math.Abs(v); a > nrm || math.IsNaN(a) {
			nrm = a
		}
	}
	return
}

// dclip projects every x[i] onto [l[i], u[i]].
func dclip(x, l, u []float64) {
	if len(l) != len(x) || len(u) != len(x) {
		panic("bound check error")
	}
	for i, v := range x {
		x[i] = min(max(v, l[i]), u[i])
	}
}

// dposdot computes Σ 𝚖𝚊𝚡(𝐲ᵢ,0)𝐮ᵢ + 𝚖𝚒𝚗(𝐲ᵢ,0)𝐥ᵢ skipping absent bounds.
func dposdot(y, l, u []float64) (s float64) {
	for i, v := range y {
		switch {
		case v > 0 && u[i] < Infinity:
			s += v * u[i]
		case v < 0 && l[i] > -Infinity:
			s += v * l[i]
		}
	}
	return
}

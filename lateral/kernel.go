// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import "gonum.org/v1/gonum/mat"

// kernel builds the diagonal objective matrix
//
//	𝐏 = 2 × 𝚍𝚒𝚊𝚐(𝐰ₒ + 𝐰ₒₛ ··· , 𝐰′ ··· , 𝐰″ ··· )
//
// penalizing offset, derivative and second derivative of each station.
func kernel(l Layout, cfg *Config) *mat.DiagDense {
	diag := make([]float64, l.NumParam())
	for i := 0; i < l.N; i++ {
		diag[l.Offset(i)] = 2*cfg.WeightOffset + 2*cfg.WeightObstacleDistance
		diag[l.Derivative(i)] = 2 * cfg.WeightDerivative
		diag[l.SecondDerivative(i)] = 2 * cfg.WeightSecondDerivative
	}
	return mat.NewDiagDense(len(diag), diag)
}

// linearTerm builds 𝐪 with 𝐪ᵢ = -2𝐰ₒₛ(𝐥ᵢ + 𝐮ᵢ) on offsets and zero elsewhere,
// which centers the obstacle distance penalty around the middle of each bound.
func linearTerm(l Layout, cfg *Config, bounds []Bound) []float64 {
	q := make([]float64, l.NumParam())
	for i, b := range bounds {
		q[l.Offset(i)] = -2 * cfg.WeightObstacleDistance * (b.Lower + b.Upper)
	}
	return q
}

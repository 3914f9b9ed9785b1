// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

// State is the lateral state at the first station.
type State struct {
	Offset           float64 // 𝐝
	Derivative       float64 // 𝐝′ = ∂𝐝/∂𝐬
	SecondDerivative float64 // 𝐝″ = ∂²𝐝/∂𝐬²
}

// Bound is the permissible lateral offset at a station. Lower ≤ Upper is expected but not checked.
type Bound struct {
	Lower, Upper float64
}

// Config holds the resolved weights and limits of the objective.
type Config struct {
	// Weight of the offset 𝐝ᵢ.
	WeightOffset float64
	// Weight pulling 𝐝ᵢ towards the middle of its bound.
	WeightObstacleDistance float64
	// Weight of the derivative 𝐝′ᵢ.
	WeightDerivative float64
	// Weight of the second derivative 𝐝″ᵢ.
	WeightSecondDerivative float64
	// Limit of the third derivative: |𝐝″ᵢ₊₁ - 𝐝″ᵢ| ≤ 𝐉ₘₐₓ × 𝚫𝐬.
	ThirdDerivativeMax float64
	// Log solver iterations.
	Debug bool
}

// Trajectory is the lateral profile sampled at every station.
type Trajectory struct {
	Offsets           []float64
	Derivatives       []float64
	SecondDerivatives []float64
}

// Len returns the number of stations.
func (t *Trajectory) Len() int { return len(t.Offsets) }

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"errors"
	"math"
)

// Infinity is the magnitude beyond which a bound is treated as absent.
const Infinity = 1e30

const (
	rhoMin        = 1e-6
	rhoMax        = 1e6
	rhoEqOverIneq = 1e3
	rhoTol        = 1e-4
	divisionTol   = 1e-20
	scalingTiny   = 1e-10
)

// Settings controls the ADMM iteration.
type Settings struct {
	// Step size 𝛒 of the augmented Lagrangian.
	Rho float64
	// Regularization 𝛔 added to the 𝐱 block of the linear system.
	Sigma float64
	// Over-relaxation parameter 𝛂 ∈ (0,2).
	Alpha float64
	// Absolute and relative tolerances of the residuals:
	//   ‖ 𝐀𝐱 - 𝐳 ‖∞ ≤ 𝚎𝚙𝚜_𝚊𝚋𝚜 + 𝚎𝚙𝚜_𝚛𝚎𝚕 × 𝚖𝚊𝚡(‖ 𝐀𝐱 ‖∞, ‖ 𝐳 ‖∞)
	//   ‖ 𝐏𝐱 + 𝐪 + 𝐀ᵀ𝐲 ‖∞ ≤ 𝚎𝚙𝚜_𝚊𝚋𝚜 + 𝚎𝚙𝚜_𝚛𝚎𝚕 × 𝚖𝚊𝚡(‖ 𝐏𝐱 ‖∞, ‖ 𝐀ᵀ𝐲 ‖∞, ‖ 𝐪 ‖∞)
	EpsAbs, EpsRel float64
	// Tolerances of the primal and dual infeasibility certificates.
	EpsPrimInf, EpsDualInf float64
	// The iteration stop when the number of iteration exceeds limit.
	MaxIter int
	// Check termination every CheckTermination iterations (0 checks only at MaxIter).
	CheckTermination int
	// Rescale 𝛒 from the residual ratio every AdaptiveRhoInterval iterations,
	// refactoring only when the new value differs by more than AdaptiveRhoTolerance times.
	AdaptiveRho          bool
	AdaptiveRhoInterval  int
	AdaptiveRhoTolerance float64
	// Polish the solution on the detected active set.
	Polish bool
	// Regularization 𝛅 of the polishing system.
	Delta float64
	// Iterative refinement steps of the polishing system.
	PolishRefineIter int
	// Log iteration progress.
	Verbose bool
}

// DefaultSettings returns the settings a solve starts from.
func DefaultSettings() Settings {
	return Settings{
		Rho:                  0.1,
		Sigma:                1e-6,
		Alpha:                1.6,
		EpsAbs:               1e-3,
		EpsRel:               1e-3,
		EpsPrimInf:           1e-4,
		EpsDualInf:           1e-4,
		MaxIter:              4000,
		CheckTermination:     25,
		AdaptiveRho:          true,
		AdaptiveRhoInterval:  25,
		AdaptiveRhoTolerance: 5,
		Polish:               false,
		Delta:                1e-6,
		PolishRefineIter:     3,
		Verbose:              false,
	}
}

func (s *Settings) validate() (err error) {
	switch {
	case !(s.Rho > 0):
		err = errors.New("rho must be positive")
	case !(s.Sigma > 0):
		err = errors.New("sigma must be positive")
	case !(s.Alpha > 0 && s.Alpha < 2):
		err = errors.New("alpha must be in (0,2)")
	case !(s.EpsAbs >= 0) || !(s.EpsRel >= 0):
		err = errors.New("residual tolerance must not less than 0")
	case s.EpsAbs == 0 && s.EpsRel == 0:
		err = errors.New("at least one residual tolerance must be positive")
	case !(s.EpsPrimInf >= 0) || !(s.EpsDualInf >= 0):
		err = errors.New("infeasibility tolerance must not less than 0")
	case s.MaxIter <= 0:
		err = errors.New("max iteration must greater than 0")
	case s.CheckTermination < 0:
		err = errors.New("termination check interval must not less than 0")
	case s.AdaptiveRho && s.AdaptiveRhoInterval <= 0:
		err = errors.New("adaptive rho interval must greater than 0")
	case s.AdaptiveRho && !(s.AdaptiveRhoTolerance >= 1):
		err = errors.New("adaptive rho tolerance must not less than 1")
	case s.Polish && !(s.Delta > 0):
		err = errors.New("polish delta must be positive")
	case s.PolishRefineIter < 0:
		err = errors.New("polish refine iteration must not less than 0")
	case math.IsInf(s.Rho, 0) || math.IsInf(s.Sigma, 0):
		err = errors.New("step size must be finite")
	}
	return
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

// Status reports the outcome of a solve.
type Status int

const (
	// Unsolved problem has not been solved yet.
	Unsolved Status = iota
	// Solved primal and dual residuals satisfy the tolerances.
	Solved
	// SolvedInaccurate residuals only satisfy ten times the tolerances when iterations ran out.
	SolvedInaccurate
	// MaxIterReached iteration limit exceeded before convergence.
	MaxIterReached
	// PrimalInfeasible a certificate of primal infeasibility was found: no 𝐱 satisfies 𝐥 ≤ 𝐀𝐱 ≤ 𝐮.
	PrimalInfeasible
	// DualInfeasible a certificate of dual infeasibility was found: the objective is unbounded below.
	DualInfeasible
)

func (s Status) String() string {
	switch s {
	case Unsolved:
		return "unsolved"
	case Solved:
		return "solved"
	case SolvedInaccurate:
		return "solved inaccurate"
	case MaxIterReached:
		return "maximum iterations reached"
	case PrimalInfeasible:
		return "primal infeasible"
	case DualInfeasible:
		return "dual infeasible"
	}
	return "unknown"
}

// PolishStatus reports the outcome of solution polishing.
type PolishStatus int

const (
	// PolishSkipped polishing disabled or status not solved.
	PolishSkipped PolishStatus = iota
	// Polished the polished solution replaced the ADMM one.
	Polished
	// PolishFailed the polished solution was not more accurate and was discarded.
	PolishFailed
)

func (s PolishStatus) String() string {
	switch s {
	case PolishSkipped:
		return "skipped"
	case Polished:
		return "polished"
	case PolishFailed:
		return "failed"
	}
	return "unknown"
}

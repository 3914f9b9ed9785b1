// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"github.com/go-logr/logr"

	"github.com/curioloop/lateral/qp"
)

// Solver sets up the quadratic program
//
//	𝚖𝚒𝚗 ½𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱  subject to  𝐥 ≤ 𝐀𝐱 ≤ 𝐮
//
// for one solve. Only the upper triangle of 𝐏 is read.
type Solver interface {
	Setup(data *qp.Data, settings *qp.Settings, log logr.Logger) (Session, error)
}

// Session holds the resources of one set up problem until Cleanup.
type Session interface {
	Solve() (*qp.Info, error)
	// Solution returns nil before Solve and after Cleanup.
	Solution() *qp.Solution
	Cleanup()
}

// ADMM is the default Solver, backed by package qp.
type ADMM struct{}

// Setup implements Solver.
func (ADMM) Setup(data *qp.Data, settings *qp.Settings, log logr.Logger) (Session, error) {
	w, err := qp.Setup(data, settings, qp.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return w, nil
}

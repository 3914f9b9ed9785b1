// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/lateral/qp"
)

var errFake = errors.New("fake solver failure")

// fakeSolver hands out a session with a scripted outcome.
type fakeSolver struct {
	setupErr error
	session  *fakeSession
	setups   int
}

func (f *fakeSolver) Setup(data *qp.Data, _ *qp.Settings, _ logr.Logger) (Session, error) {
	f.setups++
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	f.session.n = data.N
	return f.session, nil
}

type fakeSession struct {
	n        int
	status   qp.Status
	solveErr error
	noSol    bool
	solved   bool
	cleanups int
}

func (s *fakeSession) Solve() (*qp.Info, error) {
	if s.solveErr != nil {
		return nil, s.solveErr
	}
	s.solved = true
	return &qp.Info{Status: s.status, Iter: 7}, nil
}

func (s *fakeSession) Solution() *qp.Solution {
	if !s.solved || s.noSol || s.cleanups > 0 {
		return nil
	}
	x := make([]float64, s.n)
	for i := range x {
		x[i] = 0.25
	}
	return &qp.Solution{X: x}
}

func (s *fakeSession) Cleanup() { s.cleanups++ }

func TestOptimizeSolverErrors(t *testing.T) {
	tests := []struct {
		name     string
		solver   *fakeSolver
		want     error
		cleanups int
	}{
		{"setup fails", &fakeSolver{setupErr: errFake, session: &fakeSession{}}, errFake, 0},
		{"solve fails", &fakeSolver{session: &fakeSession{solveErr: errFake}}, errFake, 1},
		{"no solution", &fakeSolver{session: &fakeSession{status: qp.Solved, noSol: true}}, ErrNoSolution, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recorder{}
			o := New(defaultConfig(), WithSolver(tt.solver), WithObserver(obs))
			res, err := o.Optimize(State{}, 1, uniformBounds(3, -1, 1))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
			assert.Equal(t, 1, tt.solver.setups)
			assert.Equal(t, tt.cleanups, tt.solver.session.cleanups)
			assert.Empty(t, o.D())
		})
	}
}

func TestOptimizeNotConverged(t *testing.T) {
	for _, status := range []qp.Status{qp.MaxIterReached, qp.SolvedInaccurate, qp.PrimalInfeasible} {
		t.Run(status.String(), func(t *testing.T) {
			s := &fakeSolver{session: &fakeSession{status: status}}
			obs := &recorder{}
			o := New(defaultConfig(), WithSolver(s), WithObserver(obs))
			res, err := o.Optimize(State{}, 1, uniformBounds(3, -1, 1))
			require.NoError(t, err)
			assert.Equal(t, status, res.Status())
			assert.False(t, res.Solved())
			assert.Equal(t, 7, res.Info.Iter)
			assert.Equal(t, 1, s.session.cleanups)

			assert.Equal(t, []float64{0.25, 0.25, 0.25}, res.Trajectory.Offsets)
			assert.Equal(t, []float64{0.25, 0.25, 0}, res.Trajectory.Derivatives)
			assert.Equal(t, []float64{0.25, 0.25, 0}, res.Trajectory.SecondDerivatives)
			assert.Len(t, o.D(), 3)

			require.Len(t, obs.infos, 1)
			assert.Equal(t, status, obs.infos[0].Status)
		})
	}
}

// tracking keeps the sessions of the wrapped solver.
type tracking struct {
	Solver
	sessions []Session
}

func (t *tracking) Setup(data *qp.Data, settings *qp.Settings, log logr.Logger) (Session, error) {
	s, err := t.Solver.Setup(data, settings, log)
	if err == nil {
		t.sessions = append(t.sessions, s)
	}
	return s, err
}

func TestOptimizeReleasesWorkspace(t *testing.T) {
	tr := &tracking{Solver: ADMM{}}
	o := New(defaultConfig(), WithSolver(tr))

	_, err := o.Optimize(State{}, 1, uniformBounds(3, -1, 1))
	require.NoError(t, err)
	_, err = o.Optimize(State{Offset: 5}, 1, uniformBounds(3, -1, 1))
	require.NoError(t, err)

	require.Len(t, tr.sessions, 2)
	for _, s := range tr.sessions {
		w, ok := s.(*qp.Workspace)
		require.True(t, ok)
		assert.True(t, w.Released())
		assert.Nil(t, w.Solution())
	}
}

func TestADMMSetupError(t *testing.T) {
	_, err := ADMM{}.Setup(nil, nil, logr.Discard())
	assert.ErrorIs(t, err, qp.ErrMissingData)
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lateral smooths a lateral offset profile 𝐝(𝐬) along the arc length
// by solving one convex quadratic program over N uniformly spaced stations.
//
// The decision vector holds offset, derivative and second derivative of every station.
// Consecutive stations are tied by a piecewise cubic with bounded jerk:
//
//	𝐝′ᵢ₊₁ = 𝐝′ᵢ + ½𝚫𝐬(𝐝″ᵢ + 𝐝″ᵢ₊₁)
//	𝐝ᵢ₊₁  = 𝐝ᵢ + 𝚫𝐬𝐝′ᵢ + ⅓𝚫𝐬²𝐝″ᵢ + ⅙𝚫𝐬²𝐝″ᵢ₊₁
//
// while the offsets stay inside the corridor of each station.
package lateral

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/curioloop/lateral/qp"
)

// Observer receives the summary of every solve.
type Observer interface {
	ObserveSolve(info qp.Info, stations int)
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger of the optimizer and its solver.
func WithLogger(log logr.Logger) Option {
	return func(o *Optimizer) {
		o.log = log
	}
}

// WithSolver replaces the default ADMM solver.
func WithSolver(s Solver) Option {
	return func(o *Optimizer) {
		o.solver = s
	}
}

// WithObserver registers an observer of solve outcomes.
func WithObserver(obs Observer) Option {
	return func(o *Optimizer) {
		o.observer = obs
	}
}

// Optimizer accumulates the trajectories of successive Optimize calls.
// It is not safe for concurrent use.
type Optimizer struct {
	cfg      Config
	log      logr.Logger
	solver   Solver
	observer Observer

	d, dPrime, dPPrime []float64
}

// Result describes one Optimize call.
type Result struct {
	// Trajectory of this call with the terminal derivative and second derivative set to zero.
	Trajectory Trajectory
	// Raw primal solution before the terminal override.
	Raw *Decision
	// Solver summary, including the status which must be checked by the caller.
	Info qp.Info
}

// Status returns the solver status.
func (r *Result) Status() qp.Status { return r.Info.Status }

// Solved reports whether the solver converged within tolerance.
func (r *Result) Solved() bool { return r.Info.Status == qp.Solved }

// New creates an optimizer using the given configuration.
func New(cfg Config, opts ...Option) *Optimizer {
	o := &Optimizer{cfg: cfg, log: logr.Discard(), solver: ADMM{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the configuration of the optimizer.
func (o *Optimizer) Config() Config { return o.cfg }

// Settings returns the solver settings used by Optimize.
func (o *Optimizer) Settings() qp.Settings {
	s := qp.DefaultSettings()
	s.Alpha = 1.0
	s.EpsAbs = 1e-5
	s.EpsRel = 1e-5
	s.MaxIter = 5000
	s.Polish = true
	s.Verbose = o.cfg.Debug
	return s
}

// Optimize solves the problem and appends the trajectory of every station to the accumulated sequences.
//
// An error is returned only when the problem cannot be formulated, or the solver fails to run.
// The solver session is cleaned up on every path once it has been set up.
// A solve that does not converge, or is infeasible, still produces a Result whose status tells so;
// its trajectory is appended as well.
//
// The derivative and second derivative of the last station are always set to zero
// after the solve, as terminal boundary condition.
func (o *Optimizer) Optimize(init State, deltaS float64, bounds []Bound) (*Result, error) {
	prob, err := Formulate(o.cfg, init, deltaS, bounds)
	if err != nil {
		return nil, err
	}
	n := prob.Layout.N
	o.log.V(1).Info("formulated lateral qp", "stations", n, "deltaS", deltaS,
		"params", prob.Layout.NumParam(), "constraints", prob.Layout.NumConstraint())

	settings := o.Settings()
	work, err := o.solver.Setup(prob.Data(), &settings, o.log.WithName("qp"))
	if err != nil {
		return nil, fmt.Errorf("setup lateral qp: %w", err)
	}
	defer work.Cleanup()

	info, err := work.Solve()
	if err != nil {
		return nil, fmt.Errorf("solve lateral qp: %w", err)
	}
	if o.observer != nil {
		o.observer.ObserveSolve(*info, n)
	}

	sol := work.Solution()
	if sol == nil {
		return nil, ErrNoSolution
	}
	raw, err := NewDecision(prob.Layout, sol.X)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Trajectory: o.extract(raw),
		Raw:        raw,
		Info:       *info,
	}

	if res.Solved() {
		o.log.V(1).Info("lateral qp solved", "iter", info.Iter, "obj", info.ObjVal,
			"polish", info.Polish.String(), "solveTime", info.SolveTime)
	} else {
		o.log.Info("lateral qp not solved", "status", info.Status.String(), "iter", info.Iter,
			"priRes", info.PriRes, "duaRes", info.DuaRes)
	}
	return res, nil
}

// extract appends the solution to the accumulated sequences and returns this call's segment.
func (o *Optimizer) extract(raw *Decision) Trajectory {
	start := len(o.d)
	o.d = append(o.d, raw.Offsets()...)
	o.dPrime = append(o.dPrime, raw.Derivatives()...)
	o.dPPrime = append(o.dPPrime, raw.SecondDerivatives()...)

	last := len(o.d) - 1
	o.dPrime[last] = 0
	o.dPPrime[last] = 0

	return Trajectory{
		Offsets:           append([]float64(nil), o.d[start:]...),
		Derivatives:       append([]float64(nil), o.dPrime[start:]...),
		SecondDerivatives: append([]float64(nil), o.dPPrime[start:]...),
	}
}

// D returns the accumulated offsets.
func (o *Optimizer) D() []float64 { return o.d }

// DPrime returns the accumulated derivatives.
func (o *Optimizer) DPrime() []float64 { return o.dPrime }

// DPPrime returns the accumulated second derivatives.
func (o *Optimizer) DPPrime() []float64 { return o.dPPrime }

// Reset drops the accumulated sequences.
func (o *Optimizer) Reset() {
	o.d, o.dPrime, o.dPPrime = nil, nil, nil
}

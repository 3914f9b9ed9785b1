// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qp solves convex quadratic programs
//
//	𝚖𝚒𝚗 ½𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱  subject to  𝐥 ≤ 𝐀𝐱 ≤ 𝐮
//
// with the operator splitting (ADMM) scheme of OSQP.
//
// Introducing 𝐳 = 𝐀𝐱 the iteration alternates
//   - 𝐱̃ from the linear system (𝐏 + 𝛔𝐈 + 𝐀ᵀ𝐑𝐀)𝐱̃ = 𝛔𝐱ᵏ - 𝐪 + 𝐀ᵀ(𝐑𝐳ᵏ - 𝐲ᵏ)
//   - 𝐳̃ = 𝐀𝐱̃
//   - 𝐱ᵏ⁺¹ = 𝛂𝐱̃ + (1-𝛂)𝐱ᵏ
//   - 𝐳ᵏ⁺¹ = 𝚷[𝐥,𝐮](𝛂𝐳̃ + (1-𝛂)𝐳ᵏ + 𝐑⁻¹𝐲ᵏ)
//   - 𝐲ᵏ⁺¹ = 𝐲ᵏ + 𝐑(𝛂𝐳̃ + (1-𝛂)𝐳ᵏ - 𝐳ᵏ⁺¹)
//
// where 𝐑 = 𝚍𝚒𝚊𝚐(𝛒ᵢ) uses a larger step on equality rows.
// The matrix 𝐏 + 𝛔𝐈 + 𝐀ᵀ𝐑𝐀 is factorized once (and again when 𝛒 adapts).
//
// # References
//
//	B. Stellato, G. Banjac, P. Goulart, A. Bemporad, S. Boyd,
//	'OSQP: an operator splitting solver for quadratic programs',
//	Mathematical Programming Computation, 2020.
package qp

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/lateral/sparse"
)

var (
	ErrDimension   = errors.New("qp: dimension mismatch")
	ErrBounds      = errors.New("qp: lower bound exceeds upper bound")
	ErrSettings    = errors.New("qp: invalid settings")
	ErrNonConvex   = errors.New("qp: linear system not positive definite")
	ErrCleanedUp   = errors.New("qp: workspace already cleaned up")
	ErrMissingData = errors.New("qp: missing problem data")
)

// Data specifies a quadratic program.
// Only the upper triangle (𝑖 ≤ 𝑗) of 𝐏 is read, so either a full symmetric 𝐏 or its upper triangle works.
type Data struct {
	N, M int         // number of variables and constraints
	P    *sparse.CSC // N × N positive semi-definite
	Q    []float64   // N
	A    *sparse.CSC // M × N
	L, U []float64   // M
}

func (d *Data) validate() error {
	if d == nil || d.P == nil || d.A == nil {
		return ErrMissingData
	}
	n, m := d.N, d.M
	if n <= 0 || m < 0 {
		return fmt.Errorf("%w: n=%d m=%d", ErrDimension, n, m)
	}
	if r, c := d.P.Dims(); r != n || c != n {
		return fmt.Errorf("%w: P is %d × %d, want %d × %d", ErrDimension, r, c, n, n)
	}
	if r, c := d.A.Dims(); r != m || c != n {
		return fmt.Errorf("%w: A is %d × %d, want %d × %d", ErrDimension, r, c, m, n)
	}
	if len(d.Q) != n || len(d.L) != m || len(d.U) != m {
		return fmt.Errorf("%w: len(q)=%d len(l)=%d len(u)=%d", ErrDimension, len(d.Q), len(d.L), len(d.U))
	}
	if err := d.P.Validate(); err != nil {
		return err
	}
	if err := d.A.Validate(); err != nil {
		return err
	}
	for i := range d.L {
		if math.IsNaN(d.L[i]) || math.IsNaN(d.U[i]) || d.L[i] > d.U[i] {
			return fmt.Errorf("%w: row %d [%g, %g]", ErrBounds, i, d.L[i], d.U[i])
		}
	}
	return nil
}

// Solution holds the primal and dual variables.
type Solution struct {
	X []float64 // N
	Y []float64 // M
}

// Info summarizes a solve.
type Info struct {
	Status     Status
	Iter       int
	ObjVal     float64
	PriRes     float64
	DuaRes     float64
	Rho        float64
	RhoUpdates int
	Polish     PolishStatus
	SetupTime  time.Duration
	SolveTime  time.Duration
	PolishTime time.Duration
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger receiving verbose progress.
func WithLogger(log logr.Logger) Option {
	return func(w *Workspace) {
		w.log = log
	}
}

type rowEntry struct {
	col int
	val float64
}

// Workspace owns every buffer of one quadratic program.
// It is not safe for concurrent use.
type Workspace struct {
	n, m     int
	settings Settings
	log      logr.Logger

	p    *sparse.CSC
	a    *sparse.CSC
	rows [][]rowEntry
	q    []float64
	l, u []float64

	rho    float64
	rhoVec []float64
	kkt    mat.Cholesky

	x, z, y       []float64
	xPrev, zPrev  []float64
	xt, zt        []float64
	dx, dy        []float64
	rhs, tmpN     []float64
	tmpM          []float64
	ax, px, aty   []float64
	xSol, ySol    []float64
	info          Info
	residualsDone bool
	released      bool
}

// Setup validates the problem, allocates the workspace and factorizes the linear system.
func Setup(data *Data, settings *Settings, opts ...Option) (w *Workspace, err error) {
	start := time.Now()
	if err = data.validate(); err != nil {
		return nil, err
	}
	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}
	if err = s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettings, err)
	}

	n, m := data.N, data.M
	w = &Workspace{
		n:        n,
		m:        m,
		settings: s,
		log:      logr.Discard(),
		p:        data.P,
		a:        data.A,
		q:        slices.Clone(data.Q),
		l:        make([]float64, m),
		u:        make([]float64, m),
		rho:      s.Rho,
		rhoVec:   make([]float64, m),
	}
	for _, opt := range opts {
		opt(w)
	}

	for i := 0; i < m; i++ {
		w.l[i] = max(data.L[i], -Infinity)
		w.u[i] = min(data.U[i], Infinity)
	}

	w.rows = make([][]rowEntry, m)
	w.a.Do(func(i, j int, v float64) {
		w.rows[i] = append(w.rows[i], rowEntry{col: j, val: v})
	})

	w.x = make([]float64, n)
	w.xPrev = make([]float64, n)
	w.xt = make([]float64, n)
	w.dx = make([]float64, n)
	w.rhs = make([]float64, n)
	w.tmpN = make([]float64, n)
	w.px = make([]float64, n)
	w.aty = make([]float64, n)
	w.z = make([]float64, m)
	w.y = make([]float64, m)
	w.zPrev = make([]float64, m)
	w.zt = make([]float64, m)
	w.dy = make([]float64, m)
	w.tmpM = make([]float64, m)
	w.ax = make([]float64, m)

	w.setRho(w.rho)
	if err = w.factorize(); err != nil {
		return nil, err
	}
	w.info = Info{Status: Unsolved, Rho: w.rho, SetupTime: time.Since(start)}
	return w, nil
}

// Solve runs ADMM until convergence, infeasibility detection or the iteration limit.
func (w *Workspace) Solve() (*Info, error) {
	if w.released {
		return nil, ErrCleanedUp
	}
	start := time.Now()
	s := &w.settings
	if s.Verbose {
		w.log.Info("qp setup", "n", w.n, "m", w.m, "nnzP", w.p.NNZ(), "nnzA", w.a.NNZ(),
			"rho", s.Rho, "sigma", s.Sigma, "alpha", s.Alpha,
			"epsAbs", s.EpsAbs, "epsRel", s.EpsRel, "maxIter", s.MaxIter, "polish", s.Polish)
	}

	status := Unsolved
	iter := 0
	for iter = 1; iter <= s.MaxIter; iter++ {
		copy(w.xPrev, w.x)
		copy(w.zPrev, w.z)
		if err := w.step(); err != nil {
			return nil, err
		}
		w.residualsDone = false

		if (s.CheckTermination > 0 && iter%s.CheckTermination == 0) || iter == s.MaxIter {
			w.residuals()
			if s.Verbose {
				w.log.Info("qp iteration", "iter", iter, "obj", w.info.ObjVal,
					"priRes", w.info.PriRes, "duaRes", w.info.DuaRes, "rho", w.rho)
			}
			if status = w.terminated(iter == s.MaxIter); status != Unsolved {
				break
			}
		}

		if s.AdaptiveRho && iter%s.AdaptiveRhoInterval == 0 && iter < s.MaxIter {
			if err := w.adaptRho(); err != nil {
				return nil, err
			}
		}
	}
	w.info.Iter = min(iter, s.MaxIter)
	w.info.Status = status

	w.xSol = slices.Clone(w.x)
	w.ySol = slices.Clone(w.y)
	switch status {
	case PrimalInfeasible, DualInfeasible:
		w.info.ObjVal = math.NaN()
		// certificates are normalized search directions
		for i := range w.xSol {
			w.xSol[i] = math.NaN()
		}
		for i := range w.ySol {
			w.ySol[i] = math.NaN()
		}
	}

	if s.Polish && status == Solved {
		polishStart := time.Now()
		w.info.Polish = w.polish()
		w.info.PolishTime = time.Since(polishStart)
	}

	w.info.Rho = w.rho
	w.info.SolveTime = time.Since(start)
	if s.Verbose {
		w.log.Info("qp solved", "status", w.info.Status.String(), "iter", w.info.Iter,
			"obj", w.info.ObjVal, "priRes", w.info.PriRes, "duaRes", w.info.DuaRes,
			"rhoUpdates", w.info.RhoUpdates, "polish", w.info.Polish.String(),
			"solveTime", w.info.SolveTime)
	}
	info := w.info
	return &info, nil
}

// Solution returns a copy of the last primal and dual variables, or nil before Solve or after Cleanup.
func (w *Workspace) Solution() *Solution {
	if w.released || w.xSol == nil {
		return nil
	}
	return &Solution{X: slices.Clone(w.xSol), Y: slices.Clone(w.ySol)}
}

// Info returns the summary of the last solve.
func (w *Workspace) Info() Info { return w.info }

// Cleanup releases every buffer held by the workspace. Calling it more than once is harmless.
func (w *Workspace) Cleanup() {
	if w.released {
		return
	}
	w.released = true
	w.p, w.a, w.rows = nil, nil, nil
	w.q, w.l, w.u = nil, nil, nil
	w.rhoVec = nil
	w.kkt = mat.Cholesky{}
	w.x, w.z, w.y = nil, nil, nil
	w.xPrev, w.zPrev, w.xt, w.zt = nil, nil, nil, nil
	w.dx, w.dy, w.rhs, w.tmpN, w.tmpM = nil, nil, nil, nil, nil
	w.ax, w.px, w.aty = nil, nil, nil
	w.xSol, w.ySol = nil, nil
}

// Released reports whether Cleanup has run.
func (w *Workspace) Released() bool { return w.released }

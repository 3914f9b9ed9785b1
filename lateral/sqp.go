// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/curioloop/lateral/qp"
	"github.com/curioloop/lateral/slsqp"
)

// SQP is a Solver backed by sequential least squares quadratic programming.
//
// Rows of 𝐀 holding a single entry become variable bounds, rows with 𝐥ᵢ = 𝐮ᵢ become
// equality constraints and every finite side of the remaining rows becomes an inequality.
// Dual variables are not reported: Solution().Y is nil and Info.DuaRes is NaN.
type SQP struct {
	// Accuracy of the objective at convergence, 1e-10 when zero.
	Accuracy float64
}

type rowTerm struct {
	col int
	val float64
}

type sqpSession struct {
	opt        *slsqp.Optimizer
	x0         []float64
	a          [][]rowTerm
	l, u       []float64
	n          int
	log        logr.Logger
	verbose    bool
	infeasible bool
	setupTime  time.Duration
	info       qp.Info
	sol        *qp.Solution
	released   bool
}

// Setup implements Solver.
func (s SQP) Setup(data *qp.Data, settings *qp.Settings, log logr.Logger) (Session, error) {
	start := time.Now()
	if err := checkData(data); err != nil {
		return nil, err
	}
	cfg := qp.DefaultSettings()
	if settings != nil {
		cfg = *settings
	}
	acc := s.Accuracy
	if acc <= 0 {
		acc = 1e-10
	}

	n, m := data.N, data.M
	rows := make([][]rowTerm, m)
	data.A.Do(func(i, j int, v float64) {
		rows[i] = append(rows[i], rowTerm{j, v})
	})

	ss := &sqpSession{
		a:       rows,
		l:       make([]float64, m),
		u:       make([]float64, m),
		n:       n,
		log:     log,
		verbose: cfg.Verbose,
	}

	bounds := make([]slsqp.Bound, n)
	for i := range bounds {
		bounds[i] = slsqp.Bound{Lower: math.Inf(-1), Upper: math.Inf(1)}
	}
	var eq, neq []slsqp.Evaluation
	for i, row := range rows {
		lo, up := data.L[i], data.U[i]
		if lo > up {
			return nil, fmt.Errorf("%w: row %d has lower %g > upper %g", qp.ErrBounds, i, lo, up)
		}
		if lo <= -qp.Infinity {
			lo = math.Inf(-1)
		}
		if up >= qp.Infinity {
			up = math.Inf(1)
		}
		ss.l[i], ss.u[i] = lo, up

		switch {
		case len(row) == 0:
			ss.infeasible = ss.infeasible || lo > 0 || up < 0
		case len(row) == 1:
			t := row[0]
			blo, bup := lo/t.val, up/t.val
			if t.val < 0 {
				blo, bup = bup, blo
			}
			b := &bounds[t.col]
			b.Lower, b.Upper = max(b.Lower, blo), min(b.Upper, bup)
			ss.infeasible = ss.infeasible || b.Lower > b.Upper
		case lo == up:
			eq = append(eq, affine(row, 1, lo))
		default:
			if !math.IsInf(lo, 0) {
				neq = append(neq, affine(row, 1, lo))
			}
			if !math.IsInf(up, 0) {
				neq = append(neq, affine(row, -1, up))
			}
		}
	}

	ss.x0 = make([]float64, n)
	for i, b := range bounds {
		ss.x0[i] = min(max(0, b.Lower), b.Upper)
	}
	if ss.infeasible {
		ss.setupTime = time.Since(start)
		return ss, nil
	}

	prob := slsqp.Problem{
		N:       n,
		Object:  quadratic(data),
		EqCons:  eq,
		NeqCons: neq,
		Bounds:  bounds,
		Stop: slsqp.Termination{
			Accuracy:       acc,
			MaxIterations:  cfg.MaxIter,
			FEvalTolerance: math.NaN(),
			FDiffTolerance: math.NaN(),
			XDiffTolerance: math.NaN(),
		},
	}
	opt, err := prob.New()
	if err != nil {
		return nil, err
	}
	ss.opt = opt
	ss.setupTime = time.Since(start)
	return ss, nil
}

func checkData(d *qp.Data) error {
	switch {
	case d == nil || d.P == nil || d.A == nil:
		return qp.ErrMissingData
	case d.N <= 0 || d.M < 0:
		return fmt.Errorf("%w: n = %d, m = %d", qp.ErrDimension, d.N, d.M)
	}
	pr, pc := d.P.Dims()
	ar, ac := d.A.Dims()
	if pr != d.N || pc != d.N || ar != d.M || ac != d.N ||
		len(d.Q) != d.N || len(d.L) != d.M || len(d.U) != d.M {
		return fmt.Errorf("%w: inconsistent sizes for n = %d, m = %d", qp.ErrDimension, d.N, d.M)
	}
	return nil
}

// affine evaluates 𝐜(𝐱) = sign × (𝐚ᵀ𝐱 - b).
func affine(row []rowTerm, sign, b float64) slsqp.Evaluation {
	return func(x, g []float64) float64 {
		if g != nil {
			clear(g)
			for _, t := range row {
				g[t.col] = sign * t.val
			}
		}
		var ax float64
		for _, t := range row {
			ax += t.val * x[t.col]
		}
		return sign * (ax - b)
	}
}

// quadratic evaluates ½𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 and its gradient 𝐏𝐱 + 𝐪 from the upper triangle of 𝐏.
func quadratic(data *qp.Data) slsqp.Evaluation {
	type entry struct {
		i, j int
		v    float64
	}
	var upper []entry
	data.P.Do(func(i, j int, v float64) {
		if i <= j {
			upper = append(upper, entry{i, j, v})
		}
	})
	q := slices.Clone(data.Q)
	px := make([]float64, data.N)
	return func(x, g []float64) float64 {
		clear(px)
		for _, e := range upper {
			px[e.i] += e.v * x[e.j]
			if e.i != e.j {
				px[e.j] += e.v * x[e.i]
			}
		}
		var f float64
		for i, xi := range x {
			f += xi * (0.5*px[i] + q[i])
		}
		if g != nil {
			for i := range g {
				g[i] = px[i] + q[i]
			}
		}
		return f
	}
}

func (s *sqpSession) Solve() (*qp.Info, error) {
	if s.released {
		return nil, qp.ErrCleanedUp
	}
	start := time.Now()
	s.info = qp.Info{Status: qp.PrimalInfeasible, SetupTime: s.setupTime, DuaRes: math.NaN()}

	x := make([]float64, s.n)
	if s.infeasible {
		for i := range x {
			x[i] = math.NaN()
		}
		s.info.ObjVal = math.NaN()
		s.info.PriRes = math.NaN()
	} else {
		r := s.opt.Fit(s.x0, s.opt.Init())
		copy(x, r.X)
		s.info.Status = sqpStatus(r)
		s.info.Iter = r.NumIter
		s.info.ObjVal = r.F
		s.info.PriRes = s.violation(x)
		if s.verbose {
			s.log.Info("sqp solved", "mode", r.Status.String(), "iter", r.NumIter, "obj", r.F,
				"priRes", s.info.PriRes)
		}
	}
	s.info.SolveTime = time.Since(start)
	s.sol = &qp.Solution{X: x}
	info := s.info
	return &info, nil
}

func sqpStatus(r *slsqp.Result) qp.Status {
	switch r.Status {
	case slsqp.OK:
		return qp.Solved
	case slsqp.SQPExceedMaxIter:
		return qp.MaxIterReached
	case slsqp.ConsIncompatible:
		return qp.PrimalInfeasible
	}
	return qp.Unsolved
}

// violation returns the largest distance of 𝐀𝐱 outside [𝐥, 𝐮].
func (s *sqpSession) violation(x []float64) (v float64) {
	for i, row := range s.a {
		var ax float64
		for _, t := range row {
			ax += t.val * x[t.col]
		}
		v = max(v, s.l[i]-ax, ax-s.u[i])
	}
	return
}

func (s *sqpSession) Solution() *qp.Solution {
	if s.released || s.sol == nil {
		return nil
	}
	return &qp.Solution{X: slices.Clone(s.sol.X)}
}

func (s *sqpSession) Cleanup() {
	s.released = true
	s.opt, s.sol, s.a, s.x0 = nil, nil, nil, nil
}

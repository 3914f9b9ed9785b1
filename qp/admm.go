// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/lateral/sparse"
)

// setRho assigns the per-row step sizes:
//   - 𝛒ᵢ = 𝛒ₘᵢₙ for free rows (-∞ < 𝐀ᵢ𝐱 < +∞)
//   - 𝛒ᵢ = 10³𝛒 for equality rows (𝐥ᵢ = 𝐮ᵢ)
//   - 𝛒ᵢ = 𝛒 otherwise
func (w *Workspace) setRho(rho float64) {
	w.rho = rho
	for i := range w.rhoVec {
		l, u := w.l[i], w.u[i]
		switch {
		case l <= -Infinity && u >= Infinity:
			w.rhoVec[i] = rhoMin
		case u-l < rhoTol:
			w.rhoVec[i] = rhoEqOverIneq * rho
		default:
			w.rhoVec[i] = rho
		}
	}
}

// factorize computes the cholesky factor of 𝐏 + 𝛔𝐈 + 𝐀ᵀ𝐑𝐀.
func (w *Workspace) factorize() error {
	k := mat.NewSymDense(w.n, nil)
	w.p.Do(func(i, j int, v float64) {
		if i <= j {
			k.SetSym(i, j, k.At(i, j)+v)
		}
	})
	for j := 0; j < w.n; j++ {
		k.SetSym(j, j, k.At(j, j)+w.settings.Sigma)
	}
	for i, row := range w.rows {
		r := w.rhoVec[i]
		// entries of a row are ordered by column
		for a := range row {
			for b := a; b < len(row); b++ {
				ca, cb := row[a].col, row[b].col
				k.SetSym(ca, cb, k.At(ca, cb)+r*row[a].val*row[b].val)
			}
		}
	}
	if !w.kkt.Factorize(k) {
		return ErrNonConvex
	}
	return nil
}

// step performs one ADMM iteration.
func (w *Workspace) step() error {
	alpha, sigma := w.settings.Alpha, w.settings.Sigma

	for i := range w.tmpM { // 𝐑𝐳ᵏ - 𝐲ᵏ
		w.tmpM[i] = w.rhoVec[i]*w.z[i] - w.y[i]
	}
	w.a.MulVecTrans(w.tmpN, w.tmpM)
	for j := range w.rhs { // 𝛔𝐱ᵏ - 𝐪 + 𝐀ᵀ(𝐑𝐳ᵏ - 𝐲ᵏ)
		w.rhs[j] = sigma*w.x[j] - w.q[j] + w.tmpN[j]
	}

	xt := mat.NewVecDense(w.n, w.xt)
	if err := ignoreCondition(w.kkt.SolveVecTo(xt, mat.NewVecDense(w.n, w.rhs))); err != nil {
		return err
	}
	w.a.MulVec(w.zt, w.xt)

	for j := range w.x {
		w.x[j] = alpha*w.xt[j] + (1-alpha)*w.xPrev[j]
		w.dx[j] = w.x[j] - w.xPrev[j]
	}
	for i := range w.z {
		zr := alpha*w.zt[i] + (1-alpha)*w.zPrev[i]
		w.z[i] = min(max(zr+w.y[i]/w.rhoVec[i], w.l[i]), w.u[i])
		w.dy[i] = w.rhoVec[i] * (zr - w.z[i])
		w.y[i] += w.dy[i]
	}
	return nil
}

// residuals computes
//   - primal residual ‖ 𝐀𝐱 - 𝐳 ‖∞
//   - dual residual ‖ 𝐏𝐱 + 𝐪 + 𝐀ᵀ𝐲 ‖∞
//   - objective ½𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱
func (w *Workspace) residuals() {
	if w.residualsDone {
		return
	}
	w.a.MulVec(w.ax, w.x)
	symMulVec(w.p, w.px, w.x)
	w.a.MulVecTrans(w.aty, w.y)

	floats.SubTo(w.tmpM, w.ax, w.z)
	w.info.PriRes = dnrmInf(w.tmpM)
	for j := range w.tmpN {
		w.tmpN[j] = w.px[j] + w.q[j] + w.aty[j]
	}
	w.info.DuaRes = dnrmInf(w.tmpN)
	w.info.ObjVal = 0.5*floats.Dot(w.x, w.px) + floats.Dot(w.q, w.x)
	w.residualsDone = true
}

// terminated decides the status after residuals have been computed.
func (w *Workspace) terminated(last bool) Status {
	s := &w.settings
	priTol := s.EpsAbs + s.EpsRel*max(dnrmInf(w.ax), dnrmInf(w.z))
	duaTol := s.EpsAbs + s.EpsRel*max(dnrmInf(w.px), dnrmInf(w.aty), dnrmInf(w.q))
	pri, dua := w.info.PriRes, w.info.DuaRes

	switch {
	case pri <= priTol && dua <= duaTol:
		return Solved
	case w.primalInfeasible():
		return PrimalInfeasible
	case w.dualInfeasible():
		return DualInfeasible
	case last && pri <= 10*priTol && dua <= 10*duaTol:
		return SolvedInaccurate
	case last:
		return MaxIterReached
	}
	return Unsolved
}

// primalInfeasible checks whether 𝛅𝐲 certifies 𝐥 ≤ 𝐀𝐱 ≤ 𝐮 has no solution:
//
//	‖ 𝐀ᵀ𝛅𝐲 ‖∞ ≤ 𝛆‖ 𝛅𝐲 ‖∞  and  𝐮ᵀ𝚖𝚊𝚡(𝛅𝐲,0) + 𝐥ᵀ𝚖𝚒𝚗(𝛅𝐲,0) < -𝛆‖ 𝛅𝐲 ‖∞
//
// after projecting 𝛅𝐲 onto the polar of the recession cone of [𝐥,𝐮].
func (w *Workspace) primalInfeasible() bool {
	if w.m == 0 {
		return false
	}
	eps := w.settings.EpsPrimInf
	for i, v := range w.dy {
		lInf, uInf := w.l[i] <= -Infinity, w.u[i] >= Infinity
		switch {
		case lInf && uInf:
			w.tmpM[i] = 0
		case uInf:
			w.tmpM[i] = min(v, 0)
		case lInf:
			w.tmpM[i] = max(v, 0)
		default:
			w.tmpM[i] = v
		}
	}
	nrm := dnrmInf(w.tmpM)
	if nrm <= divisionTol || dposdot(w.tmpM, w.l, w.u) >= -eps*nrm {
		return false
	}
	w.a.MulVecTrans(w.tmpN, w.tmpM)
	return dnrmInf(w.tmpN) <= eps*nrm
}

// dualInfeasible checks whether 𝛅𝐱 certifies the objective is unbounded below:
//
//	‖ 𝐏𝛅𝐱 ‖∞ ≤ 𝛆‖ 𝛅𝐱 ‖∞,  𝐪ᵀ𝛅𝐱 < -𝛆‖ 𝛅𝐱 ‖∞  and  𝐀𝛅𝐱 inside the recession cone of [𝐥,𝐮].
func (w *Workspace) dualInfeasible() bool {
	eps := w.settings.EpsDualInf
	nrm := dnrmInf(w.dx)
	if nrm <= divisionTol || floats.Dot(w.q, w.dx) >= -eps*nrm {
		return false
	}
	symMulVec(w.p, w.tmpN, w.dx)
	if dnrmInf(w.tmpN) > eps*nrm {
		return false
	}
	w.a.MulVec(w.tmpM, w.dx)
	for i, v := range w.tmpM {
		if w.u[i] < Infinity && v > eps*nrm {
			return false
		}
		if w.l[i] > -Infinity && v < -eps*nrm {
			return false
		}
	}
	return true
}

// adaptRho rescales 𝛒 by the square root of the normalized residual ratio
// and refactors the linear system when the change is significant.
func (w *Workspace) adaptRho() error {
	w.residuals()
	priNorm := max(dnrmInf(w.ax), dnrmInf(w.z))
	duaNorm := max(dnrmInf(w.px), dnrmInf(w.aty), dnrmInf(w.q))
	pri := w.info.PriRes / (priNorm + scalingTiny)
	dua := w.info.DuaRes / (duaNorm + scalingTiny)

	rho := w.rho * math.Sqrt(pri/(dua+scalingTiny))
	if math.IsNaN(rho) {
		return nil
	}
	rho = min(max(rho, rhoMin), rhoMax)

	tol := w.settings.AdaptiveRhoTolerance
	if rho > w.rho*tol || rho < w.rho/tol {
		w.setRho(rho)
		if err := w.factorize(); err != nil {
			return err
		}
		w.info.RhoUpdates++
	}
	return nil
}

// symMulVec computes y = 𝐏x reading only the upper triangle of 𝐏.
func symMulVec(p *sparse.CSC, y, x []float64) {
	clear(y)
	p.Do(func(i, j int, v float64) {
		switch {
		case i < j:
			y[i] += v * x[j]
			y[j] += v * x[i]
		case i == j:
			y[i] += v * x[i]
		}
	})
}

// ignoreCondition drops the ill-conditioning warning gonum attaches to a computed solution.
func ignoreCondition(err error) error {
	var c mat.Condition
	if errors.As(err, &c) && !math.IsInf(float64(c), 0) {
		return nil
	}
	return err
}

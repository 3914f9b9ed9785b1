// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type activeRow struct {
	row   int
	bound float64
}

// polish guesses the active set from the ADMM iterate and solves the equality constrained problem
//
//	⎡ 𝐏 + 𝛅𝐈   𝐀ᵣᵀ ⎤⎡ 𝐱 ⎤   ⎡ -𝐪 ⎤
//	⎣ 𝐀ᵣ     -𝛅𝐈  ⎦⎣ 𝐲ᵣ⎦ = ⎣ 𝐛ᵣ ⎦
//
// where row i is active at its lower bound when 𝐳ᵢ - 𝐥ᵢ < -𝐲ᵢ and at its upper bound when 𝐮ᵢ - 𝐳ᵢ < 𝐲ᵢ.
// The regularization 𝛅 is removed by iterative refinement against the plain system.
// The polished point replaces the ADMM one only when it has smaller residuals.
func (w *Workspace) polish() PolishStatus {
	n, delta := w.n, w.settings.Delta

	var active []activeRow
	for i := 0; i < w.m; i++ {
		switch {
		case w.z[i]-w.l[i] < -w.y[i]:
			active = append(active, activeRow{i, w.l[i]})
		case w.u[i]-w.z[i] < w.y[i]:
			active = append(active, activeRow{i, w.u[i]})
		}
	}

	k := n + len(active)
	plain := mat.NewDense(k, k, nil)
	w.p.Do(func(i, j int, v float64) {
		if i <= j {
			plain.Set(i, j, plain.At(i, j)+v)
			if i != j {
				plain.Set(j, i, plain.At(j, i)+v)
			}
		}
	})
	rhs := mat.NewVecDense(k, nil)
	for j := 0; j < n; j++ {
		rhs.SetVec(j, -w.q[j])
	}
	for r, act := range active {
		for _, e := range w.rows[act.row] {
			plain.Set(n+r, e.col, e.val)
			plain.Set(e.col, n+r, e.val)
		}
		rhs.SetVec(n+r, act.bound)
	}

	reg := mat.DenseCopyOf(plain)
	for j := 0; j < n; j++ {
		reg.Set(j, j, reg.At(j, j)+delta)
	}
	for r := n; r < k; r++ {
		reg.Set(r, r, -delta)
	}

	var lu mat.LU
	lu.Factorize(reg)
	sol := mat.NewVecDense(k, nil)
	if err := ignoreCondition(lu.SolveVecTo(sol, false, rhs)); err != nil {
		return PolishFailed
	}
	res := mat.NewVecDense(k, nil)
	corr := mat.NewVecDense(k, nil)
	for it := 0; it < w.settings.PolishRefineIter; it++ {
		res.MulVec(plain, sol)
		res.SubVec(rhs, res)
		if err := ignoreCondition(lu.SolveVecTo(corr, false, res)); err != nil {
			return PolishFailed
		}
		sol.AddVec(sol, corr)
	}

	raw := sol.RawVector().Data
	x := slices.Clone(raw[:n])
	y := make([]float64, w.m)
	for r, act := range active {
		y[act.row] = raw[n+r]
	}
	if slices.ContainsFunc(x, math.IsNaN) || slices.ContainsFunc(y, math.IsNaN) {
		return PolishFailed
	}

	pri, dua, obj := w.evaluate(x, y)
	admmPri, admmDua := w.info.PriRes, w.info.DuaRes
	better := (pri < admmPri && dua < admmDua) ||
		(pri < admmPri && admmDua < scalingTiny) ||
		(dua < admmDua && admmPri < scalingTiny)
	if !better {
		return PolishFailed
	}

	w.xSol, w.ySol = x, y
	w.info.PriRes, w.info.DuaRes, w.info.ObjVal = pri, dua, obj
	return Polished
}

// evaluate computes the residuals and objective at (𝐱, 𝐲) with 𝐳 = 𝚷[𝐥,𝐮](𝐀𝐱),
// so the primal residual measures the bound violation of 𝐀𝐱.
func (w *Workspace) evaluate(x, y []float64) (pri, dua, obj float64) {
	ax := make([]float64, w.m)
	w.a.MulVec(ax, x)
	z := slices.Clone(ax)
	dclip(z, w.l, w.u)
	floats.SubTo(z, ax, z)
	pri = dnrmInf(z)

	px := make([]float64, w.n)
	symMulVec(w.p, px, x)
	aty := make([]float64, w.n)
	w.a.MulVecTrans(aty, y)
	for j := range aty {
		aty[j] += px[j] + w.q[j]
	}
	dua = dnrmInf(aty)
	obj = 0.5*floats.Dot(x, px) + floats.Dot(w.q, x)
	return
}

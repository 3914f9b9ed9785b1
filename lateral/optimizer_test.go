// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lateral

import (
	"math"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/lateral/qp"
)

func defaultConfig() Config {
	return Config{
		WeightOffset:           1,
		WeightDerivative:       500,
		WeightSecondDerivative: 1000,
		ThirdDerivativeMax:     0.1,
	}
}

func uniformBounds(n int, lo, up float64) []Bound {
	b := make([]Bound, n)
	for i := range b {
		b[i] = Bound{lo, up}
	}
	return b
}

type recorder struct {
	infos    []qp.Info
	stations []int
}

func (r *recorder) ObserveSolve(info qp.Info, stations int) {
	r.infos = append(r.infos, info)
	r.stations = append(r.stations, stations)
}

func TestOptimizeAtRest(t *testing.T) {
	obs := &recorder{}
	o := New(defaultConfig(), WithObserver(obs))
	res, err := o.Optimize(State{}, 1, uniformBounds(3, -1, 1))
	require.NoError(t, err)
	require.True(t, res.Solved())
	assert.Equal(t, qp.Solved, res.Status())

	zeros := []float64{0, 0, 0}
	approx := cmpopts.EquateApprox(0, 1e-4)
	assert.Empty(t, cmp.Diff(zeros, res.Trajectory.Offsets, approx))
	assert.Empty(t, cmp.Diff(zeros, res.Trajectory.Derivatives, approx))
	assert.Empty(t, cmp.Diff(zeros, res.Trajectory.SecondDerivatives, approx))
	assert.Equal(t, 3, res.Trajectory.Len())

	require.Len(t, obs.stations, 1)
	assert.Equal(t, 3, obs.stations[0])
	assert.Equal(t, qp.Solved, obs.infos[0].Status)
}

func TestOptimizeInitialState(t *testing.T) {
	const n, ds = 10, 1.0
	init := State{Offset: 0.5, Derivative: 0.1, SecondDerivative: 0.01}
	o := New(defaultConfig())
	res, err := o.Optimize(init, ds, uniformBounds(n, -2, 2))
	require.NoError(t, err)
	require.Equal(t, qp.Solved, res.Status())

	const tol = 1e-3
	d, d1, d2 := res.Raw.Offsets(), res.Raw.Derivatives(), res.Raw.SecondDerivatives()
	assert.InDelta(t, init.Offset, d[0], tol)
	assert.InDelta(t, init.Derivative, d1[0], tol)
	assert.InDelta(t, init.SecondDerivative, d2[0], tol)

	for i := 0; i+1 < n; i++ {
		assert.LessOrEqual(t, math.Abs(d2[i+1]-d2[i]), 0.1*ds+tol, "jerk %d", i)
		assert.InDelta(t, d1[i+1], d1[i]+0.5*ds*(d2[i]+d2[i+1]), tol, "velocity %d", i)
		assert.InDelta(t, d[i+1], d[i]+ds*d1[i]+ds*ds*d2[i]/3+ds*ds*d2[i+1]/6, tol, "position %d", i)
	}
	for i := 0; i < n; i++ {
		assert.LessOrEqual(t, math.Abs(d[i]), 2+tol)
	}

	// terminal condition overrides the raw solution
	last := n - 1
	assert.Zero(t, res.Trajectory.Derivatives[last])
	assert.Zero(t, res.Trajectory.SecondDerivatives[last])
	assert.Equal(t, d[:last], res.Trajectory.Offsets[:last])
	assert.Equal(t, d1[:last], res.Trajectory.Derivatives[:last])
	assert.Equal(t, d, res.Trajectory.Offsets)
}

func TestOptimizeDegenerateBounds(t *testing.T) {
	o := New(defaultConfig())
	res, err := o.Optimize(State{Offset: 0.3}, 0.5, uniformBounds(5, 0.3, 0.3))
	require.NoError(t, err)
	require.Equal(t, qp.Solved, res.Status())
	assert.InDeltaSlice(t, []float64{0.3, 0.3, 0.3, 0.3, 0.3}, res.Trajectory.Offsets, 1e-3)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0}, res.Trajectory.Derivatives, 1e-3)
}

func TestOptimizeSingleStation(t *testing.T) {
	o := New(defaultConfig())
	res, err := o.Optimize(State{Offset: 0.2, Derivative: 0.1, SecondDerivative: 0.05}, 1, []Bound{{-1, 1}})
	require.NoError(t, err)
	require.Equal(t, qp.Solved, res.Status())
	assert.InDelta(t, 0.2, res.Trajectory.Offsets[0], 1e-3)
	assert.InDelta(t, 0.1, res.Raw.Derivatives()[0], 1e-3)
	assert.Zero(t, res.Trajectory.Derivatives[0])
	assert.Zero(t, res.Trajectory.SecondDerivatives[0])
}

func TestOptimizeAppends(t *testing.T) {
	o := New(defaultConfig())
	first, err := o.Optimize(State{}, 1, uniformBounds(4, -1, 1))
	require.NoError(t, err)
	second, err := o.Optimize(State{Offset: 0.2}, 1, uniformBounds(4, -1, 1))
	require.NoError(t, err)

	require.Len(t, o.D(), 8)
	require.Len(t, o.DPrime(), 8)
	require.Len(t, o.DPPrime(), 8)
	assert.Equal(t, first.Trajectory.Offsets, o.D()[:4])
	assert.Equal(t, second.Trajectory.Offsets, o.D()[4:])
	assert.Equal(t, second.Trajectory.Derivatives, o.DPrime()[4:])

	// every segment ends at rest
	assert.Zero(t, o.DPrime()[3])
	assert.Zero(t, o.DPPrime()[3])
	assert.Zero(t, o.DPrime()[7])
	assert.Zero(t, o.DPPrime()[7])

	o.Reset()
	assert.Empty(t, o.D())
	assert.Empty(t, o.DPrime())
	assert.Empty(t, o.DPPrime())
}

func TestOptimizeNoStations(t *testing.T) {
	o := New(defaultConfig())
	res, err := o.Optimize(State{}, 1, nil)
	assert.ErrorIs(t, err, ErrNoStations)
	assert.Nil(t, res)
	assert.Empty(t, o.D())
}

func TestOptimizeInfeasible(t *testing.T) {
	obs := &recorder{}
	o := New(defaultConfig(), WithObserver(obs))
	res, err := o.Optimize(State{Offset: 5}, 1, uniformBounds(3, -1, 1))
	require.NoError(t, err)
	assert.False(t, res.Solved())
	assert.NotEqual(t, qp.Solved, res.Status())
	assert.Len(t, o.D(), 3)
	require.Len(t, obs.infos, 1)
	assert.Equal(t, res.Status(), obs.infos[0].Status)
}

// A heavier weight on the second derivative never yields a more curved profile.
func TestCurvatureMonotonic(t *testing.T) {
	const n = 20
	bounds := uniformBounds(n, -2, 2)
	for i := n / 2; i < n; i++ {
		bounds[i] = Bound{0.5, 1.5}
	}

	curvature := func(w float64) float64 {
		cfg := Config{WeightOffset: 1, WeightDerivative: 1, WeightSecondDerivative: w, ThirdDerivativeMax: 0.1}
		res, err := New(cfg).Optimize(State{}, 1, bounds)
		require.NoError(t, err)
		require.Equal(t, qp.Solved, res.Status(), "weight %g", w)
		var s float64
		for _, v := range res.Raw.SecondDerivatives() {
			s += v * v
		}
		return s
	}

	prev := math.Inf(1)
	for _, w := range []float64{1, 10, 100, 1000} {
		c := curvature(w)
		assert.LessOrEqual(t, c, prev*(1+1e-3)+1e-6, "weight %g", w)
		prev = c
	}
}

func TestOptimizeDebugLogging(t *testing.T) {
	var out strings.Builder
	log := funcr.New(func(prefix, args string) {
		out.WriteString(prefix)
		out.WriteString(" ")
		out.WriteString(args)
		out.WriteString("\n")
	}, funcr.Options{Verbosity: 1})

	cfg := defaultConfig()
	cfg.Debug = true
	o := New(cfg, WithLogger(log))
	assert.True(t, o.Settings().Verbose)
	assert.Equal(t, 5000, o.Settings().MaxIter)
	assert.Equal(t, cfg, o.Config())

	_, err := o.Optimize(State{}, 1, uniformBounds(3, -1, 1))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, `"msg"="formulated lateral qp"`)
	assert.Contains(t, text, `"msg"="qp iteration"`)
	assert.Contains(t, text, "qp")
}

func TestOptimizeObstacleDistance(t *testing.T) {
	const n = 10
	bounds := uniformBounds(n, -0.2, 1.0)
	cfg := Config{WeightOffset: 1, WeightObstacleDistance: 1, WeightDerivative: 1, WeightSecondDerivative: 1, ThirdDerivativeMax: 0.1}

	// (𝐰ₒ + 𝐰ₒₛ)𝐝 = 𝐰ₒₛ(𝐥 + 𝐮) holds at 0.4 on every station
	res, err := New(cfg).Optimize(State{Offset: 0.4}, 1, bounds)
	require.NoError(t, err)
	require.Equal(t, qp.Solved, res.Status())
	for i, d := range res.Trajectory.Offsets {
		assert.InDelta(t, 0.4, d, 1e-3, "station %d", i)
	}
	assert.InDelta(t, -0.32*n, res.Info.ObjVal, 1e-3)

	last := func(w float64) float64 {
		c := cfg
		c.WeightObstacleDistance = w
		res, err := New(c).Optimize(State{Offset: 0.4}, 1, bounds)
		require.NoError(t, err)
		require.Equal(t, qp.Solved, res.Status(), "weight %g", w)
		return res.Trajectory.Offsets[n-1]
	}
	// without the obstacle term the offset decays towards zero, a heavier one pulls it towards 0.6
	assert.Less(t, last(0), 0.399)
	heavy := last(3)
	assert.Greater(t, heavy, 0.401)
	assert.LessOrEqual(t, heavy, 0.6+1e-3)
}

func TestOptimizeJerkActive(t *testing.T) {
	const n, ds, jerk = 8, 1.0, 0.1
	cfg := Config{WeightOffset: 1, WeightDerivative: 1, WeightSecondDerivative: 1000, ThirdDerivativeMax: jerk}
	init := State{SecondDerivative: 0.5}

	for name, s := range map[string]Solver{"admm": ADMM{}, "sqp": SQP{}} {
		t.Run(name, func(t *testing.T) {
			res, err := New(cfg, WithSolver(s)).Optimize(init, ds, uniformBounds(n, -10, 10))
			require.NoError(t, err)
			require.Equal(t, qp.Solved, res.Status())

			d2 := res.Raw.SecondDerivatives()
			assert.InDelta(t, 0.5, d2[0], 1e-3)
			var steepest float64
			for i := 0; i+1 < n; i++ {
				step := math.Abs(d2[i+1] - d2[i])
				assert.LessOrEqual(t, step, jerk*ds+1e-4, "jerk %d", i)
				steepest = max(steepest, step)
			}
			assert.GreaterOrEqual(t, steepest, jerk*ds-1e-3)
			// the second derivative cannot leave 0.5 faster than the limit allows
			assert.InDelta(t, 0.4, d2[1], 1e-3)
		})
	}
}

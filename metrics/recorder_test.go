// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/lateral/lateral"
	"github.com/curioloop/lateral/qp"
)

var _ lateral.Observer = (*Recorder)(nil)

func TestObserveSolve(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveSolve(qp.Info{Status: qp.Solved, Iter: 50, Polish: qp.Polished, SolveTime: time.Millisecond}, 30)
	r.ObserveSolve(qp.Info{Status: qp.Solved, Iter: 75, Polish: qp.PolishFailed}, 30)
	r.ObserveSolve(qp.Info{Status: qp.PrimalInfeasible, Iter: 200}, 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.solves.WithLabelValues("solved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.solves.WithLabelValues("primal infeasible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.polishes.WithLabelValues("skipped")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.solves))
	assert.Equal(t, 3, testutil.CollectAndCount(r.polishes))

	expected := `
# HELP lateral_qp_stations Stations per solve.
# TYPE lateral_qp_stations histogram
lateral_qp_stations_bucket{le="10"} 1
lateral_qp_stations_bucket{le="30"} 3
lateral_qp_stations_bucket{le="50"} 3
lateral_qp_stations_bucket{le="70"} 3
lateral_qp_stations_bucket{le="90"} 3
lateral_qp_stations_bucket{le="110"} 3
lateral_qp_stations_bucket{le="130"} 3
lateral_qp_stations_bucket{le="150"} 3
lateral_qp_stations_bucket{le="170"} 3
lateral_qp_stations_bucket{le="190"} 3
lateral_qp_stations_bucket{le="+Inf"} 3
lateral_qp_stations_sum 70
lateral_qp_stations_count 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "lateral_qp_stations"))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	assert.Error(t, err)

	r, err := NewRecorder(nil)
	require.NoError(t, err)
	assert.Len(t, r.Collectors(), 5)
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports solve outcomes of the lateral optimizer to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curioloop/lateral/qp"
)

const namespace = "lateral_qp"

// Recorder counts solves by status and tracks their iterations, duration and size.
// It satisfies lateral.Observer.
type Recorder struct {
	solves     *prometheus.CounterVec
	polishes   *prometheus.CounterVec
	iterations prometheus.Histogram
	duration   prometheus.Histogram
	stations   prometheus.Histogram
}

// NewRecorder creates the collectors and registers them with reg when it is not nil.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Number of lateral QP solves by solver status.",
		}, []string{"status"}),
		polishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polish_total",
			Help:      "Number of lateral QP solves by polish outcome.",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iterations",
			Help:      "ADMM iterations per solve.",
			Buckets:   prometheus.ExponentialBuckets(25, 2, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Setup and solve time per solve.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 8),
		}),
		stations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stations",
			Help:      "Stations per solve.",
			Buckets:   prometheus.LinearBuckets(10, 20, 10),
		}),
	}
	if reg != nil {
		for _, c := range r.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Collectors returns every collector of the recorder.
func (r *Recorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.solves, r.polishes, r.iterations, r.duration, r.stations}
}

// ObserveSolve records one solve.
func (r *Recorder) ObserveSolve(info qp.Info, stations int) {
	r.solves.WithLabelValues(info.Status.String()).Inc()
	r.polishes.WithLabelValues(info.Polish.String()).Inc()
	r.iterations.Observe(float64(info.Iter))
	r.duration.Observe((info.SetupTime + info.SolveTime).Seconds())
	r.stations.Observe(float64(stations))
}

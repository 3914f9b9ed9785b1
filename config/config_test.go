// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/lateral/lateral"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, lateral.Config{
		WeightOffset:           1,
		WeightDerivative:       500,
		WeightSecondDerivative: 1000,
		ThirdDerivativeMax:     0.1,
	}, cfg)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "lateral.yaml", strings.Join([]string{
		"weight_lateral_offset: 2",
		"weight_lateral_derivative: 50",
		"weight_lateral_obstacle_distance: 0.5",
		"enable_osqp_debug: true",
	}, "\n"))
	t.Setenv("LATQP_WEIGHT_LATERAL_DERIVATIVE", "60")
	t.Setenv("LATQP_LATERAL_THIRD_ORDER_DERIVATIVE_MAX", "0.2")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--lateral-third-order-derivative-max=0.3"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.WeightOffset)              // file
	assert.Equal(t, 60.0, cfg.WeightDerivative)         // env over file
	assert.Equal(t, 1000.0, cfg.WeightSecondDerivative) // default
	assert.Equal(t, 0.5, cfg.WeightObstacleDistance)
	assert.Equal(t, 0.3, cfg.ThirdDerivativeMax) // flag over env
	assert.True(t, cfg.Debug)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "weight_lateral_offset: -1\n")
	_, err = Load(path, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*lateral.Config)
		ok   bool
	}{
		{"default", func(*lateral.Config) {}, true},
		{"zero weights", func(c *lateral.Config) { c.WeightOffset, c.WeightDerivative = 0, 0 }, true},
		{"negative second derivative weight", func(c *lateral.Config) { c.WeightSecondDerivative = -1 }, false},
		{"negative obstacle weight", func(c *lateral.Config) { c.WeightObstacleDistance = -0.1 }, false},
		{"zero jerk", func(c *lateral.Config) { c.ThirdDerivativeMax = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestDecodeProblem(t *testing.T) {
	doc := `
state:
  offset: 0.1
  derivative: 0.02
  second_derivative: -0.01
delta_s: 0.5
bounds:
  - {lower: -1, upper: 1}
  - {lower: -0.5, upper: 2}
`
	p, err := DecodeProblem(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.DeltaS)
	assert.Equal(t, lateral.State{Offset: 0.1, Derivative: 0.02, SecondDerivative: -0.01}, p.InitialState())
	assert.Equal(t, []lateral.Bound{{Lower: -1, Upper: 1}, {Lower: -0.5, Upper: 2}}, p.StationBounds())

	path := writeFile(t, "problem.yaml", doc)
	q, err := LoadProblem(path)
	require.NoError(t, err)
	assert.Equal(t, p, q)
}

func TestDecodeProblemErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":   "delta_s: 1\nbounds: [{lower: 0, upper: 1}]\nextra: 1\n",
		"no bounds":       "delta_s: 1\n",
		"zero spacing":    "bounds: [{lower: 0, upper: 1}]\n",
		"inverted bounds": "delta_s: 1\nbounds: [{lower: 1, upper: 0}]\n",
		"nan spacing":     "delta_s: .nan\nbounds: [{lower: 0, upper: 1}]\n",
		"inf spacing":     "delta_s: .inf\nbounds: [{lower: 0, upper: 1}]\n",
		"nan lower":       "delta_s: 1\nbounds: [{lower: .nan, upper: 1}]\n",
		"nan upper":       "delta_s: 1\nbounds: [{lower: 0, upper: .nan}]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProblem(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadProblem(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProblemValidate(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		p    Problem
		ok   bool
	}{
		{"valid", Problem{DeltaS: 0.5, Bounds: []Bound{{-1, 1}}}, true},
		{"degenerate bound", Problem{DeltaS: 0.5, Bounds: []Bound{{0.3, 0.3}}}, true},
		{"infinite bound", Problem{DeltaS: 0.5, Bounds: []Bound{{math.Inf(-1), math.Inf(1)}}}, true},
		{"zero spacing", Problem{Bounds: []Bound{{-1, 1}}}, false},
		{"negative spacing", Problem{DeltaS: -1, Bounds: []Bound{{-1, 1}}}, false},
		{"nan spacing", Problem{DeltaS: nan, Bounds: []Bound{{-1, 1}}}, false},
		{"inf spacing", Problem{DeltaS: math.Inf(1), Bounds: []Bound{{-1, 1}}}, false},
		{"nan lower", Problem{DeltaS: 0.5, Bounds: []Bound{{-1, 1}, {nan, 1}}}, false},
		{"nan upper", Problem{DeltaS: 0.5, Bounds: []Bound{{-1, nan}}}, false},
		{"inverted", Problem{DeltaS: 0.5, Bounds: []Bound{{1, -1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

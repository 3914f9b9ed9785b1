// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/lateral/config"
)

const problemDoc = `
state: {offset: 0, derivative: 0, second_derivative: 0}
delta_s: 1
bounds:
  - {lower: -1, upper: 1}
  - {lower: -1, upper: 1}
  - {lower: -1, upper: 1}
`

func writeProblem(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	problem := writeProblem(t, dir, problemDoc)
	prom := filepath.Join(dir, "solve.prom")
	svg := filepath.Join(dir, "solve.svg")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"solve", problem, "--metrics-out", prom, "--plot", svg, "--weight-lateral-offset", "2"})
	require.NoError(t, cmd.Execute())

	var res result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "solved", res.Status)
	assert.Positive(t, res.Iterations)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, res.Offsets, 1e-4)
	assert.Len(t, res.Derivatives, 3)
	assert.Len(t, res.SecondDerivatives, 3)

	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `lateral_qp_solves_total{status="solved"} 1`)

	st, err := os.Stat(svg)
	require.NoError(t, err)
	assert.Positive(t, st.Size())
}

func TestSolveToFile(t *testing.T) {
	dir := t.TempDir()
	problem := writeProblem(t, dir, problemDoc)
	dest := filepath.Join(dir, "result.yaml")

	err := solve(logr.Discard(), config.Default(), problem, options{}, &bytes.Buffer{})
	require.NoError(t, err)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"solve", problem, "-o", dest})
	require.NoError(t, cmd.Execute())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "status: solved"))
}

func TestSolveWithSQP(t *testing.T) {
	dir := t.TempDir()
	problem := writeProblem(t, dir, problemDoc)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"solve", problem, "--solver", "sqp"})
	require.NoError(t, cmd.Execute())

	var res result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "solved", res.Status)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, res.Offsets, 1e-6)

	err := solve(logr.Discard(), config.Default(), problem, options{solver: "simplex"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUnknownSolver)
}

// A failed solve leaves no output file behind.
func TestSolveFailureKeepsOutputAbsent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "result.yaml")
	bad := writeProblem(t, dir, "delta_s: 0\nbounds: [{lower: 0, upper: 1}]\n")

	for _, args := range [][]string{
		{"solve", bad, "-o", dest},
		{"solve", filepath.Join(dir, "missing.yaml"), "-o", dest},
		{"solve", bad, "-o", dest, "--solver", "simplex"},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute())
		_, err := os.Stat(dest)
		assert.True(t, os.IsNotExist(err), "args %v", args)
	}
}

func TestWriteOutputErrors(t *testing.T) {
	err := writeOutput(filepath.Join(t.TempDir(), "missing", "result.yaml"), []byte("status: solved\n"))
	assert.Error(t, err)
}

func TestSolveCommandErrors(t *testing.T) {
	dir := t.TempDir()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"solve"})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"solve", filepath.Join(dir, "missing.yaml")})
	assert.Error(t, cmd.Execute())

	problem := writeProblem(t, dir, problemDoc)
	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"solve", problem, "--lateral-third-order-derivative-max", "0"})
	assert.ErrorIs(t, cmd.Execute(), config.ErrInvalid)
}

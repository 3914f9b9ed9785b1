// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/curioloop/lateral/lateral"
)

// Problem is one optimization request read from YAML:
//
//	state:
//	  offset: 0.1
//	  derivative: 0
//	  second_derivative: 0
//	delta_s: 0.5
//	bounds:
//	  - {lower: -1, upper: 1}
type Problem struct {
	State  State   `yaml:"state"`
	DeltaS float64 `yaml:"delta_s"`
	Bounds []Bound `yaml:"bounds"`
}

type State struct {
	Offset           float64 `yaml:"offset"`
	Derivative       float64 `yaml:"derivative"`
	SecondDerivative float64 `yaml:"second_derivative"`
}

type Bound struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// LoadProblem reads and validates a problem file.
func LoadProblem(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := DecodeProblem(f)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", path, err)
	}
	return p, nil
}

// DecodeProblem reads and validates a problem document.
func DecodeProblem(r io.Reader) (*Problem, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Problem
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return &p, p.Validate()
}

// Validate checks what the optimizer leaves to its caller.
func (p *Problem) Validate() error {
	if !(p.DeltaS > 0) || math.IsInf(p.DeltaS, 0) {
		return fmt.Errorf("%w: delta_s = %g", ErrInvalid, p.DeltaS)
	}
	if len(p.Bounds) == 0 {
		return fmt.Errorf("%w: no bounds", ErrInvalid)
	}
	for i, b := range p.Bounds {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			return fmt.Errorf("%w: bound %d is not a number", ErrInvalid, i)
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("%w: bound %d has lower %g > upper %g", ErrInvalid, i, b.Lower, b.Upper)
		}
	}
	return nil
}

// InitialState converts the state for the optimizer.
func (p *Problem) InitialState() lateral.State {
	return lateral.State{
		Offset:           p.State.Offset,
		Derivative:       p.State.Derivative,
		SecondDerivative: p.State.SecondDerivative,
	}
}

// StationBounds converts the bounds for the optimizer.
func (p *Problem) StationBounds() []lateral.Bound {
	bounds := make([]lateral.Bound, len(p.Bounds))
	for i, b := range p.Bounds {
		bounds[i] = lateral.Bound{Lower: b.Lower, Upper: b.Upper}
	}
	return bounds
}

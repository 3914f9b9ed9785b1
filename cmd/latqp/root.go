// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/lateral/chart"
	"github.com/curioloop/lateral/config"
	"github.com/curioloop/lateral/lateral"
	"github.com/curioloop/lateral/metrics"
)

type options struct {
	configPath string
	output     string
	plotPath   string
	metricsOut string
	solver     string
	debug      bool
}

var errUnknownSolver = errors.New("unknown solver")

// backend maps the --solver flag to a lateral solver.
func backend(name string) (lateral.Solver, error) {
	switch name {
	case "", "admm":
		return lateral.ADMM{}, nil
	case "sqp":
		return lateral.SQP{}, nil
	}
	return nil, fmt.Errorf("%w %q, want admm or sqp", errUnknownSolver, name)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "latqp",
		Short:        "Lateral trajectory smoothing by quadratic programming",
		SilenceUsage: true,
	}
	root.AddCommand(newSolveCmd())
	return root
}

func newSolveCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "solve PROBLEM",
		Short: "Optimize the lateral profile of a problem file and print it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, sync, err := newLogger(opts.debug)
			if err != nil {
				return err
			}
			defer sync()

			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if opts.output == "" {
				return solve(log, cfg, args[0], opts, cmd.OutOrStdout())
			}
			var buf bytes.Buffer
			if err = solve(log, cfg, args[0], opts, &buf); err != nil {
				return err
			}
			return writeOutput(opts.output, buf.Bytes())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	fs.StringVar(&opts.plotPath, "plot", "", "render the trajectory to this image (png, svg, pdf)")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "write solve metrics in Prometheus text format to this file")
	fs.StringVar(&opts.solver, "solver", "admm", "quadratic program solver: admm or sqp")
	fs.BoolVar(&opts.debug, "debug", false, "development logging at debug level")
	config.BindFlags(fs)
	return cmd
}

// writeOutput stores a finished result so that a failed solve never leaves a file behind.
func writeOutput(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLogger(debug bool) (logr.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc = zap.NewDevelopmentConfig()
	}
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(zl).WithName("latqp"), func() { _ = zl.Sync() }, nil
}

// result is the YAML document printed by solve.
type result struct {
	Status            string    `yaml:"status"`
	Iterations        int       `yaml:"iterations"`
	Objective         float64   `yaml:"objective"`
	Polish            string    `yaml:"polish"`
	Offsets           []float64 `yaml:"offsets,flow"`
	Derivatives       []float64 `yaml:"derivatives,flow"`
	SecondDerivatives []float64 `yaml:"second_derivatives,flow"`
}

func solve(log logr.Logger, cfg lateral.Config, problemPath string, opts options, out io.Writer) error {
	solver, err := backend(opts.solver)
	if err != nil {
		return err
	}
	prob, err := config.LoadProblem(problemPath)
	if err != nil {
		return err
	}

	lopts := []lateral.Option{lateral.WithLogger(log), lateral.WithSolver(solver)}
	reg := prometheus.NewRegistry()
	if opts.metricsOut != "" {
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return err
		}
		lopts = append(lopts, lateral.WithObserver(rec))
	}

	opt := lateral.New(cfg, lopts...)
	res, err := opt.Optimize(prob.InitialState(), prob.DeltaS, prob.StationBounds())
	if err != nil {
		return err
	}
	log.Info("optimized", "stations", res.Trajectory.Len(), "status", res.Status().String(),
		"iter", res.Info.Iter)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err = enc.Encode(result{
		Status:            res.Status().String(),
		Iterations:        res.Info.Iter,
		Objective:         res.Info.ObjVal,
		Polish:            res.Info.Polish.String(),
		Offsets:           res.Trajectory.Offsets,
		Derivatives:       res.Trajectory.Derivatives,
		SecondDerivatives: res.Trajectory.SecondDerivatives,
	}); err != nil {
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}

	if opts.metricsOut != "" {
		if err = prometheus.WriteToTextfile(opts.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if opts.plotPath != "" {
		if !res.Solved() {
			log.Info("skip plot of unsolved problem", "status", res.Status().String())
			return nil
		}
		if err = chart.Render(opts.plotPath, "lateral offset", res.Trajectory, prob.StationBounds(), prob.DeltaS); err != nil {
			return fmt.Errorf("render plot: %w", err)
		}
	}
	return nil
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config resolves the optimizer configuration from defaults,
// an optional YAML file, LATQP_ environment variables and command line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/curioloop/lateral/lateral"
)

const EnvPrefix = "LATQP"

const (
	KeyWeightOffset           = "weight_lateral_offset"
	KeyWeightDerivative       = "weight_lateral_derivative"
	KeyWeightSecondDerivative = "weight_lateral_second_order_derivative"
	KeyWeightObstacleDistance = "weight_lateral_obstacle_distance"
	KeyThirdDerivativeMax     = "lateral_third_order_derivative_max"
	KeyDebug                  = "enable_osqp_debug"
)

var ErrInvalid = errors.New("config: invalid value")

// file mirrors the keys of a configuration file.
type file struct {
	WeightOffset           float64 `mapstructure:"weight_lateral_offset"`
	WeightDerivative       float64 `mapstructure:"weight_lateral_derivative"`
	WeightSecondDerivative float64 `mapstructure:"weight_lateral_second_order_derivative"`
	WeightObstacleDistance float64 `mapstructure:"weight_lateral_obstacle_distance"`
	ThirdDerivativeMax     float64 `mapstructure:"lateral_third_order_derivative_max"`
	Debug                  bool    `mapstructure:"enable_osqp_debug"`
}

// Default returns the built-in configuration.
func Default() lateral.Config {
	return lateral.Config{
		WeightOffset:           1.0,
		WeightDerivative:       500.0,
		WeightSecondDerivative: 1000.0,
		WeightObstacleDistance: 0.0,
		ThirdDerivativeMax:     0.1,
		Debug:                  false,
	}
}

// flagName turns a key into its flag spelling.
func flagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// BindFlags registers one flag per key, defaulting to the built-in configuration.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Float64(flagName(KeyWeightOffset), d.WeightOffset, "weight of the lateral offset")
	fs.Float64(flagName(KeyWeightDerivative), d.WeightDerivative, "weight of the lateral derivative")
	fs.Float64(flagName(KeyWeightSecondDerivative), d.WeightSecondDerivative, "weight of the lateral second derivative")
	fs.Float64(flagName(KeyWeightObstacleDistance), d.WeightObstacleDistance, "weight pulling the offset to the middle of its bound")
	fs.Float64(flagName(KeyThirdDerivativeMax), d.ThirdDerivativeMax, "limit of the lateral third derivative")
	fs.Bool(flagName(KeyDebug), d.Debug, "log solver iterations")
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyWeightOffset, d.WeightOffset)
	v.SetDefault(KeyWeightDerivative, d.WeightDerivative)
	v.SetDefault(KeyWeightSecondDerivative, d.WeightSecondDerivative)
	v.SetDefault(KeyWeightObstacleDistance, d.WeightObstacleDistance)
	v.SetDefault(KeyThirdDerivativeMax, d.ThirdDerivativeMax)
	v.SetDefault(KeyDebug, d.Debug)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. An empty path skips the file and a nil flag set skips the flags.
// Only flags registered by BindFlags and changed on the command line take part.
func Load(path string, flags *pflag.FlagSet) (lateral.Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return lateral.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if flags != nil {
		for _, key := range v.AllKeys() {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return lateral.Config{}, err
				}
			}
		}
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return lateral.Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg := lateral.Config{
		WeightOffset:           f.WeightOffset,
		WeightDerivative:       f.WeightDerivative,
		WeightSecondDerivative: f.WeightSecondDerivative,
		WeightObstacleDistance: f.WeightObstacleDistance,
		ThirdDerivativeMax:     f.ThirdDerivativeMax,
		Debug:                  f.Debug,
	}
	return cfg, Validate(cfg)
}

// Validate rejects negative weights and a non-positive jerk limit.
func Validate(cfg lateral.Config) error {
	switch {
	case cfg.WeightOffset < 0:
		return fmt.Errorf("%w: %s = %g", ErrInvalid, KeyWeightOffset, cfg.WeightOffset)
	case cfg.WeightDerivative < 0:
		return fmt.Errorf("%w: %s = %g", ErrInvalid, KeyWeightDerivative, cfg.WeightDerivative)
	case cfg.WeightSecondDerivative < 0:
		return fmt.Errorf("%w: %s = %g", ErrInvalid, KeyWeightSecondDerivative, cfg.WeightSecondDerivative)
	case cfg.WeightObstacleDistance < 0:
		return fmt.Errorf("%w: %s = %g", ErrInvalid, KeyWeightObstacleDistance, cfg.WeightObstacleDistance)
	case cfg.ThirdDerivativeMax <= 0:
		return fmt.Errorf("%w: %s = %g", ErrInvalid, KeyThirdDerivativeMax, cfg.ThirdDerivativeMax)
	}
	return nil
}

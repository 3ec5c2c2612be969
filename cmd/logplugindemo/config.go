// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// runConfig holds the demo CLI's tunables: the pressure monitor's
// threshold and sampling frequency, loaded from an optional YAML file and
// overlaid with command-line flags.
type runConfig struct {
	ShortCircuitThreshold        int    `koanf:"short_circuit_threshold"`
	ShortCircuitMonitorFrequency string `koanf:"short_circuit_monitor_frequency"`
	StepsFile                    string `koanf:"steps_file"`
}

var defaults = map[string]interface{}{
	"short_circuit_threshold":         1000,
	"short_circuit_monitor_frequency": "10s",
	"steps_file":                      "",
}

// loadRunConfig merges defaults, an optional YAML config file, and any
// pflags whose names already match a config key (koanf's posflag provider
// passes those straight through). The run command's --threshold/--frequency/
// --steps-file flags don't share names with the config keys they
// correspond to, so the caller applies those overrides itself once this
// returns, gated on pflag.Flag.Changed.
func loadRunConfig(configFile string, flags *pflag.FlagSet) (runConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return runConfig{}, err
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return runConfig{}, err
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return runConfig{}, err
	}

	var out runConfig
	if err := k.Unmarshal("", &out); err != nil {
		return runConfig{}, err
	}
	return out, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

// stepFile is the on-disk shape of a --steps-file YAML document: a flat
// list of id/name/type triples describing the job's steps.
type stepFile struct {
	Steps []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"steps"`
}

// loadSteps reads and parses a step table from path. An empty path returns
// an empty step list, not an error.
func loadSteps(path string) ([]*logplugin.Step, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sf stepFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, err
	}

	steps := make([]*logplugin.Step, 0, len(sf.Steps))
	for _, s := range sf.Steps {
		steps = append(steps, &logplugin.Step{ID: s.ID, Name: s.Name, Type: s.Type})
	}
	return steps, nil
}

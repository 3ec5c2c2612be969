// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the log plugin host demo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logplugindemo",
		Short: "Drive the Azure Pipelines log plugin host against stdin",
		Long: `logplugindemo reads newline-delimited "stepID:message" lines from
stdin, feeds them to the example failure-annotator log plugin, and reports
the plugin's final output once the input is exhausted.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeMetricsCmd())

	return cmd
}

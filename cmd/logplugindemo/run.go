// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/demoplugin"
	"github.com/Melon-Tropics/azure-pipelines-agent/internal/host"
	"github.com/Melon-Tropics/azure-pipelines-agent/internal/logging"
	"github.com/Melon-Tropics/azure-pipelines-agent/internal/obs"
	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

// NewRunCmd creates the run subcommand: read stdin line by line, feed it to
// the host, and print each plugin's output once stdin is exhausted.
func NewRunCmd() *cobra.Command {
	var threshold int
	var frequency time.Duration
	var stepsFile string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the log plugin host against stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rcfg, err := loadRunConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				rcfg.ShortCircuitThreshold = threshold
			}
			if cmd.Flags().Changed("frequency") {
				rcfg.ShortCircuitMonitorFrequency = frequency.String()
			}
			if cmd.Flags().Changed("steps-file") {
				rcfg.StepsFile = stepsFile
			}

			period, err := time.ParseDuration(rcfg.ShortCircuitMonitorFrequency)
			if err != nil {
				return err
			}

			steps, err := loadSteps(rcfg.StepsFile)
			if err != nil {
				return err
			}

			logger := logging.Setup("logplugindemo", version, "text", os.Stderr)

			var metrics *obs.Metrics
			if metricsAddr != "" {
				srv := obs.NewServer(metricsAddr, func() bool { return true })
				if _, err := srv.Start(); err != nil {
					return err
				}
				defer func() { _ = srv.Stop(cmd.Context()) }()
				metrics = srv.Metrics()
			}

			h := host.New([]logplugin.Plugin{demoplugin.NewFailureAnnotator()}, host.Config{
				Steps: steps,
				Monitor: host.MonitorConfig{
					Threshold: rcfg.ShortCircuitThreshold,
					Period:    period,
				},
				Logger:  logger,
				Metrics: metrics,
			})

			ctx := cmd.Context()
			runDone := make(chan error, 1)
			go func() { runDone <- h.Run(ctx) }()

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				h.Enqueue(scanner.Text())
			}
			h.Finish()

			return <-runDone
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 1000, "queue depth above which a sample counts as overflow")
	cmd.Flags().DurationVar(&frequency, "frequency", 10*time.Second, "pressure monitor sampling period")
	cmd.Flags().StringVar(&stepsFile, "steps-file", "", "YAML file describing the job's steps")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics and /healthz on while running (empty disables)")

	return cmd
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/obs"
)

// NewServeMetricsCmd creates the serve-metrics subcommand: a standalone
// /metrics + /healthz listener, useful for poking at the obs.Server outside
// of a real run.
func NewServeMetricsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve an empty metrics/health endpoint and block until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := obs.NewServer(addr, func() bool { return true })
			errCh, err := srv.Start()
			if err != nil {
				return err
			}
			cmd.Printf("serving metrics on %s\n", srv.Addr())

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Stop(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "address to listen on")

	return cmd
}

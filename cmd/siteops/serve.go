package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/siteops/siteops/httpapi"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "", "Listen address (overrides server.address)")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.orchestrator.Available(ctx) {
		a.logger.Warn().Str("url", a.gateway.BaseURL).Msg("Inference runtime is not reachable; chat requests will fail until it is")
	}

	addr := serveAddress
	if addr == "" {
		addr = a.cfg.Server.Address
	}
	server := httpapi.NewServer(a.orchestrator, a.logger.With().Str("component", "http").Logger(), a.cfg.Server.Mode)
	return server.Run(ctx, addr)
}

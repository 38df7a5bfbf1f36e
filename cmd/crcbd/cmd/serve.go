/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/crcbd/pkg/api"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the debug REST API",
		Long: `Start a device and expose it over the debug REST API until interrupted.

Blocks can be read, programmed and erased over HTTP, and bits of the backing
memory flipped to inject faults. Prometheus metrics are served on /metrics.

Examples:
  crcbd serve
  crcbd serve --port 9000 --api-key mysecretkey`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireContainer(); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			// Override config with command line flags if provided
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
			}

			metrics := api.NewMetrics(nil)
			dev, err := container.GetDeviceFactory().CreateDevice(
				cfg.Device.Geometry(), cfg.Device.ECC(), cfg.Device.MemoryLimit, metrics, logger)
			if err != nil {
				return err
			}
			defer dev.Close()

			server := container.GetServerFactory().CreateServer(dev, api.ServerConfig{
				Port:           cfg.Server.Port,
				Bind:           cfg.Server.Bind,
				APIKey:         cfg.Server.APIKey,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}, metrics, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.Printf("Serving device %s on %s\n", dev.ID(), server.Addr())
			return server.Run(ctx)
		},
	}

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key required on /api/v1 routes")
	return serveCmd
}

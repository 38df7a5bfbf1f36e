// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

// DeviceFactory creates block devices
type DeviceFactory interface {
	// CreateDevice builds a device; memoryLimit of 0 means no limit
	CreateDevice(geom blockdev.Geometry, cfg blockdev.ECCConfig, memoryLimit uint64,
		metrics *Metrics, logger *slog.Logger) (*blockdev.Device, error)
}

// ServerRunner defines the interface for running the API server
type ServerRunner interface {
	// Routes returns the HTTP handler
	Routes() http.Handler

	// Addr returns the listen address
	Addr() string

	// Run serves until ctx is cancelled
	Run(ctx context.Context) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServer creates an API server for device
	CreateServer(device IBlockDevice, config ServerConfig, metrics *Metrics, logger *slog.Logger) ServerRunner
}

package api

import (
	"fmt"
	"log/slog"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

// DefaultDeviceFactory is the default implementation of DeviceFactory
type DefaultDeviceFactory struct{}

// NewDeviceFactory creates a new device factory
func NewDeviceFactory() DeviceFactory {
	return &DefaultDeviceFactory{}
}

// CreateDevice builds a device that reports correction events to metrics
func (f *DefaultDeviceFactory) CreateDevice(
	geom blockdev.Geometry,
	cfg blockdev.ECCConfig,
	memoryLimit uint64,
	metrics *Metrics,
	logger *slog.Logger,
) (*blockdev.Device, error) {
	opts := []blockdev.Option{
		blockdev.WithLogger(logger),
		blockdev.WithMemoryLimit(memoryLimit),
	}
	if metrics != nil {
		opts = append(opts, blockdev.WithEventSink(metrics))
	}

	dev, err := blockdev.New(geom, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return dev, nil
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServer creates an API server for device
func (f *DefaultServerFactory) CreateServer(
	device IBlockDevice,
	config ServerConfig,
	metrics *Metrics,
	logger *slog.Logger,
) ServerRunner {
	return NewServer(device, config, metrics, logger)
}

// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/crcbd/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	deviceFactory api.DeviceFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		deviceFactory: api.NewDeviceFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetDeviceFactory returns the device factory
func (c *Container) GetDeviceFactory() api.DeviceFactory {
	return c.deviceFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetDeviceFactory allows overriding the device factory (for testing)
func (c *Container) SetDeviceFactory(factory api.DeviceFactory) {
	c.deviceFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

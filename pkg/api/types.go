package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/crcbd/pkg/blockdev"
	"github.com/ssargent/crcbd/pkg/ecc"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FaultRequest asks the server to flip one bit of the backing memory
type FaultRequest struct {
	Addr uint64 `json:"addr"`
	Bit  uint   `json:"bit"`
}

// DeviceInfo describes the device behind the server
type DeviceInfo struct {
	ID             string             `json:"id"`
	Geometry       blockdev.Geometry  `json:"geometry"`
	Config         blockdev.ECCConfig `json:"config"`
	PayloadSize    uint32             `json:"payload_size"`
	Size           uint64             `json:"size"`
	Ownership      string             `json:"ownership"`
	MaxCorrectable int                `json:"max_correctable_bits"`
	Stats          blockdev.Stats     `json:"stats"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string // Empty disables authentication
	AllowedOrigins []string
}

// IBlockDevice is the device surface the server drives
type IBlockDevice interface {
	blockdev.BlockDevice

	ID() ksuid.KSUID
	Geometry() blockdev.Geometry
	Config() blockdev.ECCConfig
	Ownership() blockdev.Ownership
	Policy() ecc.Policy
	Size() uint64
	Stats() blockdev.Stats

	// Fault injection
	FlipBit(addr uint64, bit uint) error
}

var _ IBlockDevice = (*blockdev.Device)(nil)

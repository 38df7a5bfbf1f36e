/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

// Config represents the crcbd configuration
type Config struct {
	Device  Device  `yaml:"device"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Device describes the simulated block device
type Device struct {
	ReadSize           uint32 `yaml:"read_size"`
	ProgSize           uint32 `yaml:"prog_size"`
	BlockSize          uint32 `yaml:"block_size"`
	BlockCount         uint32 `yaml:"block_count"`
	CodeSize           uint32 `yaml:"code_size"`
	EraseSize          uint32 `yaml:"erase_size"`
	EraseCount         uint32 `yaml:"erase_count"`
	CorrectionStrength int    `yaml:"correction_strength"`
	MemoryLimit        uint64 `yaml:"memory_limit,omitempty"`
}

// Geometry returns the caller geometry of the device
func (d Device) Geometry() blockdev.Geometry {
	return blockdev.Geometry{
		ReadSize:   d.ReadSize,
		ProgSize:   d.ProgSize,
		BlockSize:  d.BlockSize,
		BlockCount: d.BlockCount,
	}
}

// ECC returns the error correction layout of the device
func (d Device) ECC() blockdev.ECCConfig {
	return blockdev.ECCConfig{
		CodeSize:           d.CodeSize,
		EraseSize:          d.EraseSize,
		EraseCount:         d.EraseCount,
		CorrectionStrength: d.CorrectionStrength,
	}
}

// Server contains debug HTTP server configuration
type Server struct {
	Port           int      `yaml:"port"`
	Bind           string   `yaml:"bind"`
	APIKey         string   `yaml:"api_key"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level. An empty level means info.
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// DefaultConfig returns a default configuration: 256 blocks of 3584 bytes
// stored in 32 byte codewords, 1 MiB of backing memory.
func DefaultConfig() *Config {
	return &Config{
		Device: Device{
			ReadSize:           28,
			ProgSize:           28,
			BlockSize:          3584,
			BlockCount:         256,
			CodeSize:           32,
			EraseSize:          4096,
			EraseCount:         256,
			CorrectionStrength: 0,
		},
		Server: Server{
			Port:   8080,
			Bind:   "127.0.0.1",
			APIKey: "",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600, the file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration to configPath. When withKey
// is set the debug server gets a generated API key.
func BootstrapConfig(configPath string, withKey bool) (*Config, error) {
	config := DefaultConfig()

	if withKey {
		key, err := GenerateSecureKey(32) // 256 bits
		if err != nil {
			return nil, fmt.Errorf("failed to generate API key: %w", err)
		}
		config.Server.APIKey = key
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./crcbd.yaml"
	}

	// ~/.config/crcbd/config.yaml
	configDir := filepath.Join(homeDir, ".config", "crcbd")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

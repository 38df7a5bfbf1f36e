/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/crcbd/pkg/config"
	"github.com/ssargent/crcbd/pkg/di"
)

var container *di.Container

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crcbd",
		Short: "crcbd - CRC-32 error correcting RAM block device",
		Long: `crcbd simulates a block device in memory. Every payload is stored in a
codeword protected by a CRC-32, and reads repair small numbers of flipped
bits when the read size makes that safe.

Use it to check how a filesystem or a workload copes with media errors.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(
		newInitCmd(),
		newValidateCmd(),
		newSimulateCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig reads the config file, falling back to defaults when none exists
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)
	if !config.ConfigExists(path) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

// newLogger builds a text logger on stderr at the configured level
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logging := cfg.Logging
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logging.Level = lvl
	}
	level, err := logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func requireContainer() error {
	if container == nil {
		return fmt.Errorf("dependency container not initialized")
	}
	return nil
}

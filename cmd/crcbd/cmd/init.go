/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/crcbd/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a default crcbd configuration file.

The default device has 256 blocks of 3584 bytes stored in 32 byte codewords.
Edit the device section to try other geometries, then check them with
'crcbd validate'.

Examples:
  crcbd init
  crcbd init --config ./crcbd.yaml --with-key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			withKey, _ := cmd.Flags().GetBool("with-key")
			path := configPath(cmd)

			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, withKey)
			if err != nil {
				return err
			}

			cmd.Printf("Configuration created at %s\n", path)
			if cfg.Server.APIKey != "" {
				cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("with-key", false, "Generate an API key for the debug server")
	return initCmd
}

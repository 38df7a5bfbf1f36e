/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/crcbd/pkg/ecc"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the device configuration and print its layout",
		Long: `Build a device from the configuration file and print the derived layout:
payload per codeword, usable bytes per erase unit, memory used and the bit
errors that reads will try to correct.`,
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

			dev, err := container.GetDeviceFactory().CreateDevice(
				cfg.Device.Geometry(), cfg.Device.ECC(), cfg.Device.MemoryLimit, nil, logger)
			if err != nil {
				return err
			}
			defer dev.Close()

			geom := dev.Geometry()
			ecfg := dev.Config()
			policy := dev.Policy()

			cmd.Printf("Device %s is valid\n", dev.ID())
			cmd.Printf("  blocks:             %d x %d bytes\n", geom.BlockCount, geom.BlockSize)
			cmd.Printf("  read/prog size:     %d / %d bytes\n", geom.ReadSize, geom.ProgSize)
			cmd.Printf("  codeword:           %d bytes (%d payload + 4 crc32)\n", ecfg.CodeSize, ecfg.PayloadSize())
			cmd.Printf("  erase units:        %d x %d bytes (%d usable)\n", ecfg.EraseCount, ecfg.EraseSize, ecfg.UsableEraseSize())
			cmd.Printf("  memory:             %d bytes\n", dev.Size())
			cmd.Printf("  correction:         up to %d bit(s)\n", policy.MaxAllowed())
			for n := 1; n <= ecc.MaxBits; n++ {
				state := "off"
				if policy.Allows(n) {
					state = "on"
				}
				cmd.Printf("    %d-bit search:     %s (read size limit %d)\n", n, state, ecc.SafeLimit(n))
			}
			return nil
		},
	}
}

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/daily-motivation/internal/config"
	"github.com/SanjoDeundiak/daily-motivation/internal/host"
	"github.com/SanjoDeundiak/daily-motivation/internal/log"
)

func newRunCmd() *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host and its animated background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// the terminal UI owns the screen, so it only logs to the file
			logger, closer, err := log.New(log.Options{
				File:    cfg.Log.File,
				Level:   cfg.Log.Level,
				Console: headless,
				Out:     cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return host.Run(ctx, host.Options{
				Config:   cfg,
				Headless: headless,
				Out:      cmd.OutOrStdout(),
				Logger:   logger,
			})
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "print quotes instead of showing the terminal UI")
	cmd.Flags().String(config.KeyLogLevel, "info", "log level: trace, debug, info, warn, error")
	cmd.Flags().Bool(config.KeyCompanionEnabled, true, "launch the animated background")
	return cmd
}

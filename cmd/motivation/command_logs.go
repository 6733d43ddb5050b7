package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/daily-motivation/internal/statusapi"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream the companion output (stdout/stderr) from the beginning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := statusapi.Dial(cfg.Status.Socket)
			if err != nil {
				return err
			}
			defer client.Close()

			return client.Logs(cmd.Context(), func(chunk statusapi.LogChunk) error {
				var w io.Writer
				switch chunk.Stream {
				case statusapi.StreamStdout:
					w = cmd.OutOrStdout()
				case statusapi.StreamStderr:
					w = cmd.ErrOrStderr()
				default:
					return nil
				}
				_, err := w.Write(chunk.Data)
				return err
			})
		},
	}
	return cmd
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	"github.com/SanjoDeundiak/daily-motivation/internal/statusapi"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the companion state of the running host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := statusapi.Dial(cfg.Status.Socket)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Status(ctx)
			if err != nil {
				if statusapi.Code(err) == codes.Unavailable {
					return fmt.Errorf("no host is running (socket %s)", cfg.Status.Socket)
				}
				return err
			}

			st := resp.State
			pid, exit := "", ""
			if st.PID > 0 {
				pid = strconv.Itoa(st.PID)
			}
			if st.ExitCode != nil {
				exit = strconv.Itoa(*st.ExitCode)
			}
			printTable(cmd.OutOrStdout(),
				[]string{"SESSION", "STATE", "PID", "EXIT", "REASON", "SINCE"},
				[][]string{{st.Session, st.Phase.String(), pid, exit, st.Reason, st.Since.Local().Format(time.DateTime)}},
			)
			fmt.Fprintf(cmd.OutOrStdout(), "host pid %d, discovery %s\n", resp.HostPID, resp.Discovery)
			return nil
		},
	}
	return cmd
}

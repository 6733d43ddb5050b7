package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
)

func newEventsCmd() *cobra.Command {
	var (
		session string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded companion lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := eventlog.Open(cfg.Events.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.List(cmd.Context(), session, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				pid := ""
				if ev.PID > 0 {
					pid = strconv.Itoa(ev.PID)
				}
				rows = append(rows, []string{
					ev.At.Local().Format(time.DateTime),
					shortID(ev.Session),
					ev.Kind,
					ev.Phase,
					pid,
					ev.Detail,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"AT", "SESSION", "KIND", "PHASE", "PID", "DETAIL"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only show events of this session")
	cmd.Flags().IntVar(&limit, "limit", 50, "show at most this many recent events (0 for all)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

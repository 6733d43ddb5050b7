package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		fps       int
		heartbeat time.Duration
		parentPID int
	)
	cmd := &cobra.Command{
		Use:           "motivation-background [width height x y]",
		Short:         "Animated background for the motivation host",
		Args:          geometryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			geom, err := parseGeometry(args)
			if err != nil {
				return err
			}
			if parentPID == 0 {
				parentPID = os.Getppid()
			}

			logger := zerolog.New(cmd.OutOrStdout()).With().Timestamp().Str("component", "background").Logger()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info().Int("pid", os.Getpid()).Int("parent", parentPID).Interface("geometry", geom).Msg("background started")
			reason := run(ctx, runOptions{
				FPS:         fps,
				Heartbeat:   heartbeat,
				ParentAlive: func() bool { return parentAlive(parentPID) },
				Geometry:    geom,
				Logger:      logger,
			})
			logger.Info().Str("reason", reason).Msg("background stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 30, "animation frames per second")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 5*time.Second, "interval between heartbeat log lines")
	cmd.Flags().IntVar(&parentPID, "parent-pid", 0, "exit when this process disappears (default: the parent process)")
	return cmd
}

// Geometry is the window area the background covers.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

func geometryArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 4 {
		return fmt.Errorf("expected no arguments or width height x y, got %d arguments", len(args))
	}
	return nil
}

func parseGeometry(args []string) (Geometry, error) {
	geom := Geometry{Width: 800, Height: 600}
	if len(args) == 0 {
		return geom, nil
	}
	vals := make([]int, 4)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return Geometry{}, fmt.Errorf("invalid geometry value %q", a)
		}
		vals[i] = v
	}
	if vals[0] <= 0 || vals[1] <= 0 {
		return Geometry{}, fmt.Errorf("width and height must be positive")
	}
	return Geometry{Width: vals[0], Height: vals[1], X: vals[2], Y: vals[3]}, nil
}

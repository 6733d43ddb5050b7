// Package host wires the coordinator, status API, event log and UI into one
// host run.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/daily-motivation/internal/config"
	"github.com/SanjoDeundiak/daily-motivation/internal/quotes"
	"github.com/SanjoDeundiak/daily-motivation/internal/statusapi"
	"github.com/SanjoDeundiak/daily-motivation/internal/tui"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/coordinator"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/output_storage"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/runner"
)

// shutdownSlack is added to the companion grace period to bound shutdown.
const shutdownSlack = 2 * time.Second

type Options struct {
	Config *config.Config
	// Headless prints quotes to Out instead of showing the terminal UI.
	Headless bool
	Out      io.Writer
	Logger   zerolog.Logger
	// HostExecutable overrides the path discovery starts from.
	HostExecutable string
	// Ready, when set, is called once the companion start was attempted and
	// the status API is up.
	Ready func(*coordinator.Coordinator)
}

// Run runs the host until ctx is cancelled or the user quits. Companion
// problems never make it fail; only an unusable quote file does.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("configuration is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	runner.SetLogger(opts.Logger)
	output_storage.SetLogger(opts.Logger)

	settings, err := quotes.LoadSettings(cfg.Quotes.File)
	if err != nil {
		return fmt.Errorf("load quotes: %w", err)
	}
	if _, err := os.Stat(cfg.Quotes.File); errors.Is(err, os.ErrNotExist) {
		if err := quotes.SaveSettings(cfg.Quotes.File, settings); err != nil {
			opts.Logger.Warn().Err(err).Str("path", cfg.Quotes.File).Msg("failed to create quotes file")
		}
	}
	deck := quotes.FromSettings(settings)

	coordOpts := []coordinator.Option{coordinator.WithLogger(opts.Logger)}
	store, err := eventlog.Open(cfg.Events.Path)
	if err != nil {
		opts.Logger.Warn().Err(err).Str("path", cfg.Events.Path).Msg("event log unavailable")
	} else {
		defer store.Close()
		coordOpts = append(coordOpts, coordinator.WithEventSink(store))
	}

	coord := coordinator.New(cfg.Coordinator(opts.HostExecutable), coordOpts...)
	log := opts.Logger.With().Str("component", "host").Str("session", coord.Session()).Logger()
	log.Info().Str("config", cfg.Path).Bool("headless", opts.Headless).Msg("host starting")

	srv, err := statusapi.NewServer(cfg.Status.Socket, coord, opts.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("status API unavailable")
	} else {
		go func() {
			if err := srv.Serve(); err != nil {
				log.Warn().Err(err).Msg("status API stopped")
			}
		}()
	}

	result := coord.Start(ctx)
	log.Info().Str("discovery", result.String()).Str("state", coord.State().String()).Msg("companion start attempted")
	if opts.Ready != nil {
		opts.Ready(coord)
	}

	// Only changes made in this process are written back, so edits made
	// meanwhile with "motivation quotes" survive the exit.
	saved := deck.Revision()
	save := func(s quotes.Settings) error {
		rev := deck.Revision()
		if err := quotes.SaveSettings(cfg.Quotes.File, s); err != nil {
			return err
		}
		saved = rev
		return nil
	}
	var runErr error
	if opts.Headless {
		runErr = runHeadless(ctx, deck, coord, out, log)
	} else {
		states, cancel := coord.Subscribe(1)
		runErr = tui.Run(ctx, tui.Options{
			Deck:    deck,
			States:  states,
			Initial: coord.State(),
			Save:    save,
		})
		cancel()
	}

	// Shutdown must not inherit the cancelled run context.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Companion.GracePeriod+shutdownSlack)
	defer cancel()
	if srv != nil {
		srv.Stop()
	}
	if err := coord.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("companion shutdown incomplete")
	}
	if deck.Revision() != saved {
		if err := save(deck.Settings()); err != nil {
			log.Warn().Err(err).Msg("failed to save quotes")
		}
	}
	log.Info().Str("state", coord.State().String()).Msg("host stopped")

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// runHeadless prints the current quote on every rotation and logs companion
// state changes.
func runHeadless(ctx context.Context, deck *quotes.Deck, coord *coordinator.Coordinator, out io.Writer, log zerolog.Logger) error {
	states, cancel := coord.Subscribe(1)
	defer cancel()

	printQuote(out, deck)
	timer := time.NewTimer(deck.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			if !st.Available() && st.Phase.Terminal() {
				log.Warn().Str("state", st.String()).Msg("background unavailable")
			}
		case <-timer.C:
			if !deck.Paused() {
				deck.Next()
				printQuote(out, deck)
			}
			timer.Reset(deck.Interval())
		}
	}
}

func printQuote(out io.Writer, deck *quotes.Deck) {
	q, ok := deck.Current()
	if !ok {
		return
	}
	_, _ = fmt.Fprintf(out, "%s\n    %s\n", q.Main, q.Sub)
}

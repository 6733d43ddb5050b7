package runner

import "context"

// Output subscribes to the stdout and stderr of a process. Both channels
// replay retained output first and close when the process ends or ctx is
// cancelled.
func (runner *Runner) Output(ctx context.Context, id string) (<-chan []byte, <-chan []byte, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, nil, err
	}

	stdoutCh := pe.stdout.Subscribe(ctx, 16)
	stderrCh := pe.stderr.Subscribe(ctx, 16)
	logger.Debug().Str("process", id).Msg("subscribed to output")

	return stdoutCh, stderrCh, nil
}

// Package registry persists a record of the running companion so that a
// later host can find and terminate a companion orphaned by a host crash.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600

	defaultProbeInterval = 50 * time.Millisecond
	defaultStartWait     = 500 * time.Millisecond
)

// Record describes a companion started by a host session.
type Record struct {
	PID            int       `json:"pid"`
	HostPID        int       `json:"host_pid"`
	Session        string    `json:"session"`
	Path           string    `json:"path"`
	CreatedAt      time.Time `json:"created_at"`
	StartTimeTicks uint64    `json:"start_time_ticks,omitempty"`
}

// Status represents the runtime state of a recorded process.
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
	StatusStale   Status = "stale"
	StatusUnknown Status = "unknown"
)

// RuntimeState captures live process status for a stored record.
type RuntimeState struct {
	Status                 Status `json:"status"`
	Running                bool   `json:"running"`
	ObservedStartTimeTicks uint64 `json:"observed_start_time_ticks,omitempty"`
	CheckError             string `json:"check_error,omitempty"`
}

// Write persists record atomically at path.
func Write(path string, record Record) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("companion record path is required")
	}
	if record.PID <= 0 {
		return fmt.Errorf("companion PID must be greater than zero")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal companion record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return fmt.Errorf("create companion record directory: %w", err)
	}
	return writeAtomic(path, raw, defaultFilePerm)
}

// Load reads the record at path. A missing file returns os.ErrNotExist.
func Load(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("decode companion record: %w", err)
	}
	if record.PID <= 0 {
		return Record{}, fmt.Errorf("invalid companion record PID")
	}
	return record, nil
}

// Remove deletes the record file. A missing file is not an error.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Reap terminates the companion described by the record at path when its
// host is gone and the process is still the one that was recorded. The
// record is removed unless it belongs to a live host. It reports whether a
// process was terminated.
func Reap(ctx context.Context, path string, grace time.Duration, log zerolog.Logger) (bool, error) {
	record, err := Load(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		// Unreadable records cannot be acted upon.
		_ = Remove(path)
		return false, err
	}

	log = log.With().Int("pid", record.PID).Int("host_pid", record.HostPID).Str("session", record.Session).Logger()

	if record.HostPID > 0 && record.HostPID != os.Getpid() {
		if alive, _ := processExists(record.HostPID); alive {
			log.Info().Msg("companion record belongs to a running host, leaving it alone")
			return false, nil
		}
	}

	state := Inspect(record)
	if !state.Running {
		log.Debug().Str("status", string(state.Status)).Msg("removing companion record")
		return false, Remove(path)
	}

	log.Warn().Msg("terminating companion orphaned by a previous host")
	if err := Terminate(ctx, record.PID, grace); err != nil {
		return false, err
	}
	return true, Remove(path)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

package lib

import (
	"errors"
	"fmt"
)

var (
	ErrCompanionNotFound = errors.New("companion executable not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrLaunchFailed      = errors.New("launch failed")
)

// DiscoveryError reports that the companion is not present at the expected
// location, or that the location is unusable.
type DiscoveryError struct {
	Result DiscoveryResult
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("companion discovery: %s", e.Result)
}

func (e *DiscoveryError) Unwrap() error {
	if e.Result.Kind == DiscoveryNotFound {
		return ErrCompanionNotFound
	}
	return nil
}

// SpawnKind classifies why the OS refused to create the companion process.
type SpawnKind int

const (
	SpawnNotFound SpawnKind = iota
	SpawnPermissionDenied
	SpawnLaunchFailed
)

func (k SpawnKind) String() string {
	switch k {
	case SpawnNotFound:
		return "not_found"
	case SpawnPermissionDenied:
		return "permission_denied"
	default:
		return "launch_failed"
	}
}

// SpawnError wraps the OS error returned when starting the companion.
type SpawnError struct {
	Kind SpawnKind
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	var sentinel error
	switch e.Kind {
	case SpawnNotFound:
		sentinel = ErrCompanionNotFound
	case SpawnPermissionDenied:
		sentinel = ErrPermissionDenied
	default:
		sentinel = ErrLaunchFailed
	}
	return []error{sentinel, e.Err}
}

// LivenessError reports that the process status could not be queried.
type LivenessError struct {
	PID int
	Err error
}

func (e *LivenessError) Error() string {
	return fmt.Sprintf("liveness check for pid %d: %v", e.PID, e.Err)
}

func (e *LivenessError) Unwrap() error { return e.Err }

// ShutdownError reports that the companion could not be terminated.
type ShutdownError struct {
	PID int
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown of pid %d: %v", e.PID, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

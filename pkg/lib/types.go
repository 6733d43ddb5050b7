package lib

import (
	"fmt"
	"time"
)

// ProcessState is the runner's coarse view of a child process.
type ProcessState int

const (
	ProcessStateUnspecified ProcessState = iota
	ProcessStateRunning
	ProcessStateStopped
)

// Command captures command metadata used to start a process.
type Command struct {
	Command string
	Args    []string
	Dir     string
}

// ProcessStatus captures runtime state and timestamps.
type ProcessStatus struct {
	State     ProcessState
	PID       int
	ExitCode  *int
	Signaled  bool
	StartTime time.Time
	EndTime   *time.Time
}

// CompanionPhase enumerates the variants of CompanionState.
type CompanionPhase int

const (
	CompanionNotAttempted CompanionPhase = iota
	CompanionStarting
	CompanionRunning
	CompanionExited
	CompanionFailed
)

func (p CompanionPhase) String() string {
	switch p {
	case CompanionNotAttempted:
		return "not_attempted"
	case CompanionStarting:
		return "starting"
	case CompanionRunning:
		return "running"
	case CompanionExited:
		return "exited"
	case CompanionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p CompanionPhase) Terminal() bool {
	return p == CompanionExited || p == CompanionFailed
}

// CanTransition reports whether from -> to is an allowed move of the
// companion state machine:
//
//	NotAttempted -> Starting -> Running -> Exited | Failed
//	                         -> Failed
//
// NotAttempted may also go straight to Failed when discovery fails.
func CanTransition(from, to CompanionPhase) bool {
	switch from {
	case CompanionNotAttempted:
		return to == CompanionStarting || to == CompanionFailed
	case CompanionStarting:
		return to == CompanionRunning || to == CompanionFailed
	case CompanionRunning:
		return to == CompanionExited || to == CompanionFailed
	default:
		return false
	}
}

// CompanionState is an immutable snapshot of the companion process as seen
// by the host. ExitCode is set only for CompanionExited, Reason only for
// CompanionFailed.
type CompanionState struct {
	Phase    CompanionPhase `json:"phase"`
	ExitCode *int           `json:"exit_code,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	PID      int            `json:"pid,omitempty"`
	Session  string         `json:"session"`
	Since    time.Time      `json:"since"`
}

// Available reports whether the animated background is currently up.
func (s CompanionState) Available() bool {
	return s.Phase == CompanionRunning
}

func (s CompanionState) String() string {
	switch s.Phase {
	case CompanionExited:
		if s.ExitCode != nil {
			return fmt.Sprintf("exited(%d)", *s.ExitCode)
		}
		return "exited"
	case CompanionFailed:
		return fmt.Sprintf("failed(%s)", s.Reason)
	default:
		return s.Phase.String()
	}
}

// DiscoveryKind enumerates the variants of DiscoveryResult.
type DiscoveryKind int

const (
	DiscoveryNotFound DiscoveryKind = iota
	DiscoveryFound
	DiscoveryInvalid
)

func (k DiscoveryKind) String() string {
	switch k {
	case DiscoveryFound:
		return "found"
	case DiscoveryNotFound:
		return "not_found"
	case DiscoveryInvalid:
		return "ambiguous_or_invalid"
	default:
		return "unknown"
	}
}

// DiscoveryResult is the outcome of looking for the companion executable.
// Path is set for DiscoveryFound, Reason for DiscoveryInvalid.
type DiscoveryResult struct {
	Kind   DiscoveryKind `json:"kind"`
	Path   string        `json:"path,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

func Found(path string) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryFound, Path: path}
}

func NotFound() DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryNotFound}
}

func Invalid(reason string) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryInvalid, Reason: reason}
}

func (r DiscoveryResult) String() string {
	switch r.Kind {
	case DiscoveryFound:
		return fmt.Sprintf("found(%s)", r.Path)
	case DiscoveryInvalid:
		return fmt.Sprintf("ambiguous_or_invalid(%s)", r.Reason)
	default:
		return r.Kind.String()
	}
}

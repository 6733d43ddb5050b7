package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]CompanionPhase]bool{
		{CompanionNotAttempted, CompanionStarting}: true,
		{CompanionNotAttempted, CompanionFailed}:   true,
		{CompanionStarting, CompanionRunning}:      true,
		{CompanionStarting, CompanionFailed}:       true,
		{CompanionRunning, CompanionExited}:        true,
		{CompanionRunning, CompanionFailed}:        true,
	}
	phases := []CompanionPhase{CompanionNotAttempted, CompanionStarting, CompanionRunning, CompanionExited, CompanionFailed}
	for _, from := range phases {
		for _, to := range phases {
			assert.Equal(t, allowed[[2]CompanionPhase{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalPhases(t *testing.T) {
	assert.False(t, CompanionNotAttempted.Terminal())
	assert.False(t, CompanionStarting.Terminal())
	assert.False(t, CompanionRunning.Terminal())
	assert.True(t, CompanionExited.Terminal())
	assert.True(t, CompanionFailed.Terminal())
}

func TestCompanionStateString(t *testing.T) {
	code := 137
	assert.Equal(t, "running", CompanionState{Phase: CompanionRunning, PID: 10}.String())
	assert.Equal(t, "exited(137)", CompanionState{Phase: CompanionExited, ExitCode: &code}.String())
	assert.Equal(t, "failed(no companion)", CompanionState{Phase: CompanionFailed, Reason: "no companion"}.String())
	assert.True(t, CompanionState{Phase: CompanionRunning}.Available())
	assert.False(t, CompanionState{Phase: CompanionStarting}.Available())
	assert.Equal(t, "unknown", CompanionPhase(42).String())
}

func TestDiscoveryResultString(t *testing.T) {
	assert.Equal(t, "found(/opt/motivation-background)", Found("/opt/motivation-background").String())
	assert.Equal(t, "not_found", NotFound().String())
	assert.Equal(t, "ambiguous_or_invalid(is a directory)", Invalid("is a directory").String())
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	notFound := fmt.Errorf("start: %w", &DiscoveryError{Result: NotFound()})
	assert.ErrorIs(t, notFound, ErrCompanionNotFound)
	assert.NotErrorIs(t, &DiscoveryError{Result: Invalid("dir")}, ErrCompanionNotFound)

	denied := &SpawnError{Kind: SpawnPermissionDenied, Path: "/x", Err: fs.ErrPermission}
	assert.ErrorIs(t, denied, ErrPermissionDenied)
	assert.ErrorIs(t, denied, fs.ErrPermission)
	assert.NotErrorIs(t, denied, ErrLaunchFailed)
	assert.Contains(t, denied.Error(), "permission_denied")

	assert.ErrorIs(t, &SpawnError{Kind: SpawnNotFound, Err: fs.ErrNotExist}, ErrCompanionNotFound)
	assert.ErrorIs(t, &SpawnError{Kind: SpawnLaunchFailed, Err: errors.New("exec format error")}, ErrLaunchFailed)

	probe := errors.New("probe failed")
	var liveness *LivenessError
	assert.ErrorAs(t, fmt.Errorf("monitor: %w", &LivenessError{PID: 3, Err: probe}), &liveness)
	assert.Equal(t, 3, liveness.PID)
	assert.ErrorIs(t, liveness, probe)

	assert.ErrorIs(t, &ShutdownError{PID: 4, Err: fs.ErrPermission}, fs.ErrPermission)
}

func TestNewIDIsUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

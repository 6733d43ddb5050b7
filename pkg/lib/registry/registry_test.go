package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWriteLoadRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "companion.json")
	record := Record{PID: 4242, HostPID: 4241, Session: "s-1", Path: "/opt/motivation/motivation-background"}

	require.NoError(t, Write(path, record))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(defaultFilePerm), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, record.PID, got.PID)
	require.Equal(t, record.Session, got.Session)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
	_, err = Load(path)
	require.True(t, os.IsNotExist(err))
}

func TestWriteRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	require.Error(t, Write("", Record{PID: 1}))
	require.Error(t, Write(filepath.Join(t.TempDir(), "c.json"), Record{}))
}

func TestReapMissingRecord(t *testing.T) {
	t.Parallel()

	reaped, err := Reap(context.Background(), filepath.Join(t.TempDir(), "none.json"), time.Second, zerolog.Nop())
	require.NoError(t, err)
	require.False(t, reaped)
}

func TestReapCorruptRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "companion.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	reaped, err := Reap(context.Background(), path, time.Second, zerolog.Nop())
	require.Error(t, err)
	require.False(t, reaped)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

package quotes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultQuotes(t *testing.T) {
	t.Parallel()

	qs := DefaultQuotes()
	require.Len(t, qs, 10)
	for _, q := range qs {
		require.NotEmpty(t, q.Main)
		require.Equal(t, DefaultSubText, q.Sub)
	}
}

func TestNextPrevWrap(t *testing.T) {
	t.Parallel()

	d := NewDeck([]Quote{{Main: "a"}, {Main: "b"}, {Main: "c"}}, 8)
	d.Prev()
	require.Equal(t, 2, d.Index())
	d.Next()
	require.Equal(t, 0, d.Index())
	d.Next()
	q, ok := d.Current()
	require.True(t, ok)
	require.Equal(t, "b", q.Main)
}

func TestEmptyDeck(t *testing.T) {
	t.Parallel()

	d := NewDeck(nil, 8)
	d.Next()
	d.Prev()
	_, ok := d.Current()
	require.False(t, ok)
	require.Error(t, d.Delete(0))
	require.Error(t, d.Select(0))
}

func TestAddBecomesCurrent(t *testing.T) {
	t.Parallel()

	d := NewDeck(DefaultQuotes(), 8)
	require.NoError(t, d.Add("  Ship it  ", ""))
	q, ok := d.Current()
	require.True(t, ok)
	require.Equal(t, Quote{Main: "Ship it", Sub: DefaultSubText}, q)
	require.Equal(t, 10, d.Index())

	require.ErrorIs(t, d.Add("   ", "sub"), ErrEmptyQuote)
	require.Equal(t, 11, d.Len())
}

func TestDeleteClampsCurrent(t *testing.T) {
	t.Parallel()

	d := NewDeck([]Quote{{Main: "a"}, {Main: "b"}, {Main: "c"}}, 8)
	require.NoError(t, d.Select(2))
	require.NoError(t, d.Delete(2))
	require.Equal(t, 1, d.Index())
	require.NoError(t, d.Delete(0))
	q, _ := d.Current()
	require.Equal(t, "b", q.Main)
	require.NoError(t, d.Delete(0))
	require.Equal(t, 0, d.Index())
	require.Error(t, d.Delete(5))

	d = NewDeck([]Quote{{Main: "a"}}, 8)
	d.Clear()
	require.Equal(t, 0, d.Len())
}

func TestIntervalClamp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, ClampInterval(0))
	require.Equal(t, 60, ClampInterval(600))
	require.Equal(t, 8, ClampInterval(8))

	d := NewDeck(nil, 0)
	require.Equal(t, time.Second, d.Interval())
	d.SetInterval(90)
	require.Equal(t, 60, d.IntervalSecs())
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "settings.yaml")
	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, DefaultSettings(), s)

	d := FromSettings(s)
	require.NoError(t, d.Add("New one", "sub"))
	d.SetInterval(15)
	d.SetPaused(true)
	require.NoError(t, SaveSettings(path, d.Settings()))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	require.Len(t, loaded.Quotes, 11)
	require.Equal(t, 15, loaded.IntervalSecs)
	require.True(t, loaded.Paused)
	require.Equal(t, Quote{Main: "New one", Sub: "sub"}, loaded.Quotes[10])
}

func TestLoadSettingsClampsInterval(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quotes: []\ninterval_secs: 500\n"), 0o644))
	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, 60, s.IntervalSecs)

	require.NoError(t, os.WriteFile(path, []byte("quotes: [oops"), 0o644))
	_, err = LoadSettings(path)
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotes_export.json")
	require.NoError(t, Export(path, []Quote{{Main: "a", Sub: "b"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, []map[string]string{{"main_text": "a", "sub_text": "b"}}, got)
	require.Contains(t, string(data), "\n  ")
}

func TestRevisionTracksPersistedChanges(t *testing.T) {
	d := NewDeck(DefaultQuotes(), DefaultIntervalSecs)
	rev := d.Revision()

	d.Next()
	d.Prev()
	require.NoError(t, d.Select(2))
	d.SetInterval(DefaultIntervalSecs)
	d.SetPaused(false)
	require.Equal(t, rev, d.Revision(), "navigation and no-op setters must not count")

	steps := []func(){
		func() { require.NoError(t, d.Add("Ship it", "")) },
		func() { require.NoError(t, d.Delete(0)) },
		func() { d.SetInterval(DefaultIntervalSecs + 1) },
		func() { d.SetPaused(true) },
		func() { d.Clear() },
	}
	for _, step := range steps {
		step()
		require.Greater(t, d.Revision(), rev)
		rev = d.Revision()
	}
}

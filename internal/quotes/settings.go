package quotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted form of a deck.
type Settings struct {
	Quotes       []Quote `yaml:"quotes"`
	IntervalSecs int     `yaml:"interval_secs"`
	Paused       bool    `yaml:"paused"`
}

// DefaultSettings returns the built-in quotes with the default interval.
func DefaultSettings() Settings {
	return Settings{Quotes: DefaultQuotes(), IntervalSecs: DefaultIntervalSecs}
}

// LoadSettings reads settings from path. A missing file yields the defaults;
// a zero interval is replaced by the default one.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.IntervalSecs == 0 {
		s.IntervalSecs = DefaultIntervalSecs
	}
	s.IntervalSecs = ClampInterval(s.IntervalSecs)
	return s, nil
}

// SaveSettings writes settings to path, replacing it atomically.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Settings snapshots the deck for saving.
func (d *Deck) Settings() Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Settings{
		Quotes:       append([]Quote(nil), d.quotes...),
		IntervalSecs: d.interval,
		Paused:       d.paused,
	}
}

// FromSettings builds a deck positioned on the first quote.
func FromSettings(s Settings) *Deck {
	d := NewDeck(s.Quotes, s.IntervalSecs)
	d.paused = s.Paused
	return d
}

// Export writes the quotes as an indented JSON array.
func Export(path string, quotes []Quote) error {
	if quotes == nil {
		quotes = []Quote{}
	}
	data, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package config

import (
	"os"
	"path/filepath"
	"strings"

	v "github.com/spf13/viper"
)

const envPrefix = "motivation"

// newViper returns a viper reading path, with MOTIVATION_* environment
// overrides where "." and "-" in keys become "_".
func newViper(path string) *v.Viper {
	rv := v.New()
	rv.SetConfigFile(path)
	rv.AutomaticEnv()
	rv.SetEnvPrefix(envPrefix)
	rv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for key, value := range defaultValues() {
		rv.SetDefault(key, value)
	}
	return rv
}

// loadViper strictly reads an existing file.
func loadViper(path string) (*v.Viper, error) {
	rv := newViper(path)
	if err := rv.ReadInConfig(); err != nil {
		return nil, err
	}
	return rv, nil
}

// initializeViper reads path, creating it with the default values when it
// does not exist or is empty.
func initializeViper(path string) (*v.Viper, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	rv := newViper(path)
	if _, err := os.Stat(path); err == nil {
		if err := rv.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	if rv.InConfig("companion") {
		return rv, nil
	}

	// the file is missing or uninitialized: persist the defaults
	if err := rv.MergeConfigMap(nestedDefaults()); err != nil {
		return nil, err
	}
	if err := rv.WriteConfigAs(path); err != nil {
		return nil, err
	}
	return rv, nil
}

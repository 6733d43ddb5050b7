// Package config loads the host configuration from a YAML file, MOTIVATION_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/coordinator"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/discovery"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/runner"
)

const (
	AppName                = "daily-motivation"
	defaultConfigFileName  = "config.yaml"
	RestartPolicyNever     = "never"
	defaultOutputRetention = 1024
)

// Keys of the configuration file. Flags bind to the same names.
const (
	KeyCompanionEnabled      = "companion.enabled"
	KeyCompanionName         = "companion.name"
	KeyCompanionDevPaths     = "companion.dev_paths"
	KeyCompanionArgs         = "companion.args"
	KeyCompanionPollInterval = "companion.poll_interval"
	KeyCompanionStartupGrace = "companion.startup_grace"
	KeyCompanionGracePeriod  = "companion.grace_period"
	KeyCompanionRelaunch     = "companion.relaunch_on_spawn_failure"
	KeyCompanionRestart      = "companion.restart_policy"
	KeyCompanionCPUWeight    = "companion.cpu_weight"
	KeyCompanionMemoryHigh   = "companion.memory_high_bytes"
	KeyCompanionRetention    = "companion.output_retention"
	KeyRegistryPath          = "registry.path"
	KeyEventsPath            = "events.path"
	KeyStatusSocket          = "status.socket"
	KeyLogFile               = "log.file"
	KeyLogLevel              = "log.level"
	KeyQuotesFile            = "quotes.file"
	KeyQuotesExportFile      = "quotes.export_file"
)

type CompanionConfig struct {
	Enabled                bool          `mapstructure:"enabled"`
	Name                   string        `mapstructure:"name"`
	DevPaths               []string      `mapstructure:"dev_paths"`
	Args                   []string      `mapstructure:"args"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	StartupGrace           time.Duration `mapstructure:"startup_grace"`
	GracePeriod            time.Duration `mapstructure:"grace_period"`
	RelaunchOnSpawnFailure bool          `mapstructure:"relaunch_on_spawn_failure"`
	RestartPolicy          string        `mapstructure:"restart_policy"`
	CPUWeight              int           `mapstructure:"cpu_weight"`
	MemoryHighBytes        int64         `mapstructure:"memory_high_bytes"`
	OutputRetention        int           `mapstructure:"output_retention"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type EventsConfig struct {
	Path string `mapstructure:"path"`
}

type StatusConfig struct {
	Socket string `mapstructure:"socket"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type QuotesConfig struct {
	File       string `mapstructure:"file"`
	ExportFile string `mapstructure:"export_file"`
}

// Config is the typed host configuration.
type Config struct {
	Companion CompanionConfig `mapstructure:"companion"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Events    EventsConfig    `mapstructure:"events"`
	Status    StatusConfig    `mapstructure:"status"`
	Log       LogConfig       `mapstructure:"log"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`

	// Path of the file the configuration was loaded from.
	Path string `mapstructure:"-"`
}

// GetDefaultConfigPath returns $XDG_CONFIG_HOME/daily-motivation, falling
// back to ~/.config/daily-motivation.
func GetDefaultConfigPath() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func GetDefaultConfigFilePath() (string, error) {
	dir, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFileName), nil
}

// GetDefaultStatePath returns $XDG_STATE_HOME/daily-motivation, falling back
// to ~/.local/state/daily-motivation. Runtime files live there.
func GetDefaultStatePath() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) (string, error) {
	val, set := os.LookupEnv(env)
	if !set || val == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		val = filepath.Join(home, fallback)
	}
	return os.ExpandEnv(filepath.Join(val, AppName)), nil
}

func stateFile(name string) string {
	dir, err := GetDefaultStatePath()
	if err != nil {
		dir = filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(dir, name)
}

func defaultValues() map[string]any {
	return map[string]any{
		KeyCompanionEnabled:      true,
		KeyCompanionName:         discovery.DefaultCompanionName,
		KeyCompanionDevPaths:     []string{},
		KeyCompanionArgs:         []string{},
		KeyCompanionPollInterval: coordinator.DefaultPollInterval.String(),
		KeyCompanionStartupGrace: coordinator.DefaultStartupGrace.String(),
		KeyCompanionGracePeriod:  coordinator.DefaultGracePeriod.String(),
		KeyCompanionRelaunch:     false,
		KeyCompanionRestart:      RestartPolicyNever,
		KeyCompanionCPUWeight:    0,
		KeyCompanionMemoryHigh:   0,
		KeyCompanionRetention:    defaultOutputRetention,
		KeyRegistryPath:          stateFile("companion.json"),
		KeyEventsPath:            stateFile("events.db"),
		KeyStatusSocket:          stateFile("status.sock"),
		KeyLogFile:               stateFile("debug.log"),
		KeyLogLevel:              "info",
		KeyQuotesFile:            stateFile("settings.yaml"),
		KeyQuotesExportFile:      "quotes_export.json",
	}
}

// nestedDefaults turns the dotted defaults into the nested map written to a
// fresh config file.
func nestedDefaults() map[string]any {
	out := map[string]any{}
	for key, value := range defaultValues() {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return out
}

// Load reads the configuration at path. A path that exists is read strictly;
// the default path is created with default values when missing; any other
// missing path is an error. Flags in flags whose names match configuration
// keys override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	defaultPath, err := GetDefaultConfigFilePath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = defaultPath
	}
	path = os.ExpandEnv(path)

	var vip *v.Viper
	if _, statErr := os.Stat(path); statErr == nil {
		vip, err = loadViper(path)
	} else if path == defaultPath {
		vip, err = initializeViper(path)
	} else {
		err = fmt.Errorf("the provided config file path %q does not exist", path)
	}
	if err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(vip, flags); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(vip)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Defaults returns the default configuration with environment overrides
// applied, without touching any file.
func Defaults() (*Config, error) {
	return decode(newViper(""))
}

func bindFlags(vip *v.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		if _, known := defaultValues()[f.Name]; known {
			bindErr = vip.BindPFlag(f.Name, f)
		}
	})
	return bindErr
}

func decode(vip *v.Viper) (*Config, error) {
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Companion.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyCompanionPollInterval))
	}
	if c.Companion.StartupGrace < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyCompanionStartupGrace))
	}
	if c.Companion.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyCompanionGracePeriod))
	}
	if c.Companion.RestartPolicy != RestartPolicyNever {
		errs = append(errs, fmt.Errorf("%s %q is not supported, only %q", KeyCompanionRestart, c.Companion.RestartPolicy, RestartPolicyNever))
	}
	if c.Companion.CPUWeight != 0 && (c.Companion.CPUWeight < 1 || c.Companion.CPUWeight > 10000) {
		errs = append(errs, fmt.Errorf("%s must be in 1..10000", KeyCompanionCPUWeight))
	}
	if c.Companion.MemoryHighBytes < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyCompanionMemoryHigh))
	}
	if c.Companion.OutputRetention < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyCompanionRetention))
	}
	if c.Status.Socket == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyStatusSocket))
	}
	return errors.Join(errs...)
}

// Coordinator maps the companion section to a coordinator configuration.
// hostExecutable may be empty to use the running executable.
func (c *Config) Coordinator(hostExecutable string) coordinator.Config {
	return coordinator.Config{
		HostExecutable:         hostExecutable,
		CompanionName:          c.Companion.Name,
		DevPaths:               c.Companion.DevPaths,
		Args:                   c.Companion.Args,
		Disabled:               !c.Companion.Enabled,
		PollInterval:           c.Companion.PollInterval,
		StartupGrace:           c.Companion.StartupGrace,
		GracePeriod:            c.Companion.GracePeriod,
		RelaunchOnSpawnFailure: c.Companion.RelaunchOnSpawnFailure,
		RecordPath:             c.Registry.Path,
		Limits: runner.Limits{
			CPUWeight:       c.Companion.CPUWeight,
			MemoryHighBytes: c.Companion.MemoryHighBytes,
		},
		OutputRetention: c.Companion.OutputRetention,
	}
}

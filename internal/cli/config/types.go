// Package config provides configuration management for the nix-tests CLI.
//
// Configuration is read from four sources, lowest to highest precedence:
// built-in defaults, the .nix-tests.yaml file, NIX_TESTS_* environment
// variables and explicitly set command-line flags. Each source is decoded
// into a Layer of optional fields and the layers are combined with Merge.
package config

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	Runner    RunnerConfig    `koanf:"runner" yaml:"runner"`
	Report    ReportConfig    `koanf:"report" yaml:"report"`
	Evaluator EvaluatorConfig `koanf:"evaluator" yaml:"evaluator"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	LogLevel  string          `koanf:"log_level" yaml:"log_level"`
	Verbose   bool            `koanf:"verbose" yaml:"-"`
	Output    string          `koanf:"output" yaml:"-"`

	// ProjectRoot is the directory the config file was found in, or the
	// working directory.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// RunnerConfig controls suite execution.
type RunnerConfig struct {
	Concurrency int `koanf:"concurrency" yaml:"concurrency"`
	// Timeout per file in milliseconds; 0 disables it.
	Timeout Millis `koanf:"timeout" yaml:"timeout"`
}

// ReportConfig controls the suite report.
type ReportConfig struct {
	Format        string `koanf:"format" yaml:"format"`
	HideSucceeded bool   `koanf:"hide_succeeded" yaml:"hide_succeeded"`
	HideFailed    bool   `koanf:"hide_failed" yaml:"hide_failed"`
	HideErrored   bool   `koanf:"hide_errored" yaml:"hide_errored"`
	Color         string `koanf:"color" yaml:"color"`
}

// EvaluatorConfig selects the Nix evaluator.
type EvaluatorConfig struct {
	Binary  string `koanf:"binary" yaml:"binary"`
	LibPath string `koanf:"lib_path" yaml:"lib_path,omitempty"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	File string `koanf:"file" yaml:"file,omitempty"`
}

// Millis is a duration in whole milliseconds. In config files, env vars and
// flags it is written as a plain integer or a Go duration ("30s").
type Millis int64

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration { return time.Duration(m) * time.Millisecond }

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// File names and defaults.
const (
	ConfigFileName    = ".nix-tests.yaml"
	ConfigFileNameAlt = ".nix-tests.yml"
	EnvPrefix         = "NIX_TESTS_"
	DefaultBinary     = "nix-instantiate"
	DefaultLogLevel   = "warn"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{Concurrency: runtime.NumCPU()},
		Report: ReportConfig{
			Format: string(core.FormatHuman),
			Color:  ColorAuto,
		},
		Evaluator: EvaluatorConfig{Binary: DefaultBinary},
		LogLevel:  DefaultLogLevel,
		Output:    DefaultOutput,
	}
}

// RunConfig returns the engine configuration.
func (c *Config) RunConfig() core.RunConfig {
	return core.RunConfig{
		Concurrency: c.Runner.Concurrency,
		Timeout:     c.Runner.Timeout.Duration(),
	}
}

// ReportConfig returns the reporter configuration. tty tells whether the
// report goes to a terminal, which decides color in auto mode.
func (c *Config) ReportConfig(tty bool) core.ReportConfig {
	color := false
	switch c.Report.Color {
	case ColorAlways:
		color = true
	case ColorAuto:
		color = tty
	}
	return core.ReportConfig{
		Format:        core.ReportFormat(c.Report.Format),
		HideSucceeded: c.Report.HideSucceeded,
		HideFailed:    c.Report.HideFailed,
		HideErrored:   c.Report.HideErrored,
		Color:         color,
	}
}

// SlogLevel returns the log level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

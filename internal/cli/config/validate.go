package config

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.RunConfig().Validate(); err != nil {
		return fmt.Errorf("invalid runner configuration: %w", err)
	}
	if _, err := core.ParseReportFormat(c.Report.Format); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	switch c.Report.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid report configuration: unknown color mode %q (expected auto, always or never)", c.Report.Color)
	}
	if c.Evaluator.Binary == "" {
		return fmt.Errorf("evaluator.binary must not be empty")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", c.LogLevel)
	}
	if _, err := output.ParseMode(c.Output); err != nil {
		return err
	}
	return nil
}

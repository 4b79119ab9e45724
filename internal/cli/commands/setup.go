package commands

import (
	"errors"
	"log/slog"

	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/spf13/cobra"
)

// ErrTestsFailed is returned by the run command when the suite had issues.
// It carries no message of its own; the report already explains the failure.
var ErrTestsFailed = errors.New("tests failed")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded (commands built outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

// pathsOrCwd returns args, or the working directory when args is empty.
func pathsOrCwd(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

// Package cli provides the command-line interface for nix-tests.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/nixtests/internal/cli/commands"
	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/exitcodes"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nix-tests [paths...]",
		Short: "nix-tests - test runner for Nix expressions",
		Long: `nix-tests evaluates *_test.nix files with nix-instantiate and reports
the result of every check.

Run without a subcommand it behaves like 'nix-tests run'. Paths default to
the current directory; directories are searched recursively.

Exit codes:
  0  every file passed
  1  a file failed, errored or timed out
  2  the run could not be performed`,
		Version: Version,
		Args:    cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg)
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunSuite(cmd, args, &commands.RunOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewDiscoverCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

func addPersistentFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: nearest .nix-tests.yaml)")
	flags.IntP("concurrency", "j", 0, "Number of files evaluated at once (default: number of CPUs)")
	flags.String("timeout", "", "Per-file timeout in milliseconds or as a duration (e.g. 500, 30s); 0 disables it")
	flags.String("format", "", "Report format (human|json)")
	flags.Bool("hide-succeeded", false, "Hide files whose checks all passed")
	flags.Bool("hide-failed", false, "Hide files with failed checks")
	flags.Bool("hide-errored", false, "Hide files that errored or timed out")
	flags.String("color", "", "Color the human report (auto|always|never)")
	flags.String("evaluator", "", "Evaluator binary (default: nix-instantiate)")
	flags.String("lib", "", "Path to the nix-tests library (env: NIX_TESTS_LIB_PATH)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after each run")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Verbose logging (same as --log-level debug)")
	flags.StringP("output", "o", "", "Output format for discover and doctor (auto|text|markdown|json)")

	completions := map[string][]string{
		"format":    {"human", "json"},
		"color":     {config.ColorAuto, config.ColorAlways, config.ColorNever},
		"log-level": {"debug", "info", "warn", "error"},
		"output":    {"auto", "text", "markdown", "json"},
	}
	for name, values := range completions {
		_ = rootCmd.RegisterFlagCompletionFunc(name, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// Execute runs the root command and returns the process exit code.
// SIGINT and SIGTERM cancel the run.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ExecuteArgs(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

// ExecuteArgs runs cmd with args and maps the result to an exit code,
// printing fatal errors to stderr.
func ExecuteArgs(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	// cobra falls back to os.Args when args is nil
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, commands.ErrTestsFailed):
		return exitcodes.TestFailure
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitcodes.RuntimeErr
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for nix-tests.

To load completions:

Bash:
  $ source <(nix-tests completion bash)

Zsh:
  $ nix-tests completion zsh > "${fpath[1]}/_nix-tests"

Fish:
  $ nix-tests completion fish | source

PowerShell:
  PS> nix-tests completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

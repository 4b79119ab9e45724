package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ExampleTestFile is the file written by init --example.
const ExampleTestFile = "example_test.nix"

const exampleTest = `{
  pkgs ? import <nixpkgs> { },
  nix-tests,
}:
let
  lib = pkgs.lib;

  isEven = x: if lib.mod x 2 == 0 then true else "${builtins.toString x} is not even";
in
nix-tests.runTests {
  "arithmetic" = helpers: rec {
    ctx = {
      num = 42;
    };
    "number equals 42" = helpers.isEq ctx.num 42;
    "number is even" = helpers.check isEven ctx.num;
  };
}
`

// InitOptions holds options for the init command.
type InitOptions struct {
	Force   bool
	Example bool
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default .nix-tests.yaml",
		Long: `Write a .nix-tests.yaml holding the default settings.

The library path is filled in from --lib or NIX_TESTS_LIB_PATH when set.
Use --example to also write a small passing test file.`,
		Example: `  # Initialize in current directory
  nix-tests init

  # Initialize a new directory with an example test
  nix-tests init my-tests --example

  # Force overwrite existing config
  nix-tests init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cmdCtx := NewCommandContext(cmd)
			return runInit(cmdCtx.Renderer, cmdCtx.Cfg, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&opts.Example, "example", false, "Also write "+ExampleTestFile)

	return cmd
}

func runInit(r *output.Renderer, current *config.Config, dir string, opts *InitOptions) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	data, err := yaml.Marshal(initialConfig(current))
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.Success("Created " + configPath)

	if opts.Example {
		examplePath := filepath.Join(dir, ExampleTestFile)
		if _, err := os.Stat(examplePath); err == nil && !opts.Force {
			return fmt.Errorf("%s already exists. Use --force to overwrite", examplePath)
		}
		if err := os.WriteFile(examplePath, []byte(exampleTest), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", examplePath, err)
		}
		r.Success("Created " + examplePath)
	}

	r.Println("")
	r.Println("Next steps:")
	if current.Evaluator.LibPath == "" {
		r.Println("  1. Set evaluator.lib_path (or NIX_TESTS_LIB_PATH) to the nix-tests library")
	} else {
		r.Println("  1. Check evaluator.lib_path points at the nix-tests library")
	}
	r.Println("  2. Add *_test.nix files")
	r.Println("  3. Run 'nix-tests' to evaluate them")

	return nil
}

// initialConfig is the defaults plus the library path in effect, if any.
func initialConfig(current *config.Config) *config.Config {
	cfg := config.DefaultConfig()
	if current != nil {
		cfg.Evaluator.LibPath = current.Evaluator.LibPath
	}
	return cfg
}

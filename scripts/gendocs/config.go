package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"gopkg.in/yaml.v3"
)

// keyDescriptions documents every configuration key.
var keyDescriptions = map[string]string{
	"runner.concurrency":    "Number of files evaluated at once",
	"runner.timeout":        "Per-file timeout in milliseconds or as a duration (30s); 0 disables it",
	"report.format":         "Report format: human or json",
	"report.hide_succeeded": "Hide files whose checks all passed",
	"report.hide_failed":    "Hide files with failed checks",
	"report.hide_errored":   "Hide files that errored or timed out",
	"report.color":          "Color the human report: auto, always or never",
	"evaluator.binary":      "Evaluator executable",
	"evaluator.lib_path":    "Path to the nix-tests library passed to every test file",
	"metrics.file":          "Write Prometheus metrics to this file after each run",
	"log_level":             "Log level: debug, info, warn or error",
	"verbose":               "Debug logging",
	"output":                "Output format of discover and doctor: auto, text, markdown or json",
}

// generateConfigDocs writes configuration.md.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	defaults, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "nix-tests configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("nix-tests reads %s (or %s) from the working directory or the nearest parent, stopping at a directory holding %s or %s. Relative paths in the file are resolved against its directory.",
		InlineCode(config.ConfigFileName), InlineCode(config.ConfigFileNameAlt), InlineCode("flake.lock"), InlineCode(".git")))
	w.Paragraph("Precedence, highest first: command-line flags, environment variables, the config file, built-in defaults.")

	w.Header(2, "Defaults")
	w.Paragraph("As written by `nix-tests init` (concurrency is the number of CPUs):")
	w.CodeBlock("yaml", string(defaults))

	w.Header(2, "Keys")
	headers := []string{"Key", "Environment", "Flag", "Description"}
	var rows [][]string
	for _, b := range config.Bindings() {
		env, flag := "-", "-"
		if b.Env != "" {
			env = InlineCode(b.Env)
		}
		if b.Flag != "" {
			flag = InlineCode("--" + b.Flag)
		}
		rows = append(rows, []string{InlineCode(b.Key), env, flag, keyDescriptions[b.Key]})
	}
	w.Table(headers, rows)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

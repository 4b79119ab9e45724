package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/nixtests/internal/cli"
	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/exitcodes"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs writes cli.md, a single page covering the root command,
// every subcommand and the global flags with their config bindings.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()

	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for nix-tests")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", root.UseLine())

	w.Header(2, "Paths")
	w.BulletList([]string{
		fmt.Sprintf("Files named %s are evaluated.", InlineCode("*_test.nix")),
		"Directories are searched for test files with rg, find or a directory walk, whichever is available first.",
		"Missing paths and files that are not test files are reported as skipped and never fail the run.",
		"Without paths the current directory is searched.",
	})

	w.Header(2, "Global Options")
	w.Paragraph("Flags override environment variables, which override the config file.")
	writeGlobalFlags(w, root.PersistentFlags())

	w.Header(2, "Commands")
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" {
			continue
		}
		writeCommand(w, cmd)
	}

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode(strconv.Itoa(exitcodes.Success)), "Every processed file passed"},
		{InlineCode(strconv.Itoa(exitcodes.TestFailure)), "A file failed, errored or timed out"},
		{InlineCode(strconv.Itoa(exitcodes.RuntimeErr)), "The run could not be performed (check stderr)"},
	})

	filename := filepath.Join(outDir, "cli.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated cli.md")
	return nil
}

// writeGlobalFlags lists persistent flags next to the config key and
// environment variable bound to the same setting.
func writeGlobalFlags(w *MarkdownWriter, flags *pflag.FlagSet) {
	byFlag := make(map[string]config.Binding)
	for _, b := range config.Bindings() {
		if b.Flag != "" {
			byFlag[b.Flag] = b
		}
	}

	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		key, env := "-", "-"
		if b, ok := byFlag[f.Name]; ok {
			key = InlineCode(b.Key)
			if b.Env != "" {
				env = InlineCode(b.Env)
			}
		}
		rows = append(rows, []string{flagName(f), key, env, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Config Key", "Environment", "Description"}, rows)
}

func writeCommand(w *MarkdownWriter, cmd *cobra.Command) {
	w.Header(3, cmd.Name())
	w.Paragraph(cleanDescription(cmd.Short))
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		var rows [][]string
		cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
			if f.Hidden || f.Name == "help" {
				return
			}
			rows = append(rows, []string{flagName(f), f.DefValue, cleanDescription(f.Usage)})
		})
		if len(rows) > 0 {
			w.Table([]string{"Option", "Default", "Description"}, rows)
		}
	}

	if cmd.Example != "" {
		w.CodeBlock("bash", dedent(cmd.Example))
	}
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return InlineCode("-"+f.Shorthand) + ", " + InlineCode("--"+f.Name)
	}
	return InlineCode("--" + f.Name)
}

// dedent strips the two-space indent cobra examples are written with.
func dedent(example string) string {
	lines := strings.Split(example, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

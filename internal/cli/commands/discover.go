package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/leapstack-labs/nixtests/internal/discovery"
	"github.com/leapstack-labs/nixtests/pkg/core"
	"github.com/spf13/cobra"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [paths...]",
		Short: "List the test files a run would evaluate",
		Long: `Classify the given paths without evaluating anything.

Every path is reported as valid (a *_test.nix file), not_found or invalid
(an existing file that is not a test file). Directories are expanded with
the same search backend the run command uses.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown table (agent-friendly)
  - --output json: JSON document`,
		Example: `  # Show every test file below the current directory
  nix-tests discover

  # Machine readable
  nix-tests discover -o json lib tests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args)
		},
	}

	return cmd
}

// DiscoverOutput is the JSON output for the discover command.
type DiscoverOutput struct {
	Backend string           `json:"backend"`
	Files   []DiscoveredFile `json:"files"`
	Summary DiscoverSummary  `json:"summary"`
}

// DiscoveredFile is one classified path.
type DiscoveredFile struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// DiscoverSummary counts classified paths by kind.
type DiscoverSummary struct {
	Valid    int `json:"valid"`
	NotFound int `json:"not_found"`
	Invalid  int `json:"invalid"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	classifier := discovery.NewClassifier(discovery.SelectSearcher(nil), cmdCtx.Logger)
	files, err := classifier.Classify(cmd.Context(), pathsOrCwd(args))
	if err != nil {
		return err
	}

	out := buildDiscoverOutput(classifier.Searcher().Name(), files)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return discoverMarkdown(r, out)
	default:
		return discoverText(r, out)
	}
}

func buildDiscoverOutput(backend string, files []core.TestFile) *DiscoverOutput {
	out := &DiscoverOutput{
		Backend: backend,
		Files:   make([]DiscoveredFile, 0, len(files)),
	}
	for _, f := range files {
		out.Files = append(out.Files, DiscoveredFile{Path: f.Path, Kind: f.Kind.String()})
		switch f.Kind {
		case core.KindValid:
			out.Summary.Valid++
		case core.KindNotFound:
			out.Summary.NotFound++
		case core.KindInvalid:
			out.Summary.Invalid++
		}
	}
	return out
}

func discoverTable(out *DiscoverOutput) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Path"})
	for _, f := range out.Files {
		t.AppendRow(table.Row{f.Kind, f.Path})
	}
	return t
}

func discoverText(r *output.Renderer, out *DiscoverOutput) error {
	if len(out.Files) == 0 {
		r.Muted("No paths to classify")
		return nil
	}

	r.Println(discoverTable(out).Render())
	r.Println("")
	r.Success(fmt.Sprintf("%d test file(s) found", out.Summary.Valid))
	if skipped := out.Summary.NotFound + out.Summary.Invalid; skipped > 0 {
		r.Muted(fmt.Sprintf("%d path(s) would be skipped", skipped))
	}
	r.Muted(fmt.Sprintf("Search backend: %s", out.Backend))
	return nil
}

func discoverMarkdown(r *output.Renderer, out *DiscoverOutput) error {
	r.Println(output.FormatHeader(1, "Discovered Test Files"))
	r.Println("")
	r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%d", out.Summary.Valid)))
	r.Println(output.FormatKeyValue("Not Found", fmt.Sprintf("%d", out.Summary.NotFound)))
	r.Println(output.FormatKeyValue("Invalid", fmt.Sprintf("%d", out.Summary.Invalid)))
	r.Println(output.FormatKeyValue("Search Backend", out.Backend))

	if len(out.Files) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Files"))
		r.Println("")
		r.Println(discoverTable(out).RenderMarkdown())
	}
	return nil
}

package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/leapstack-labs/nixtests/internal/discovery"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// Check groups, in display order.
const (
	GroupEvaluator     = "evaluator"
	GroupDiscovery     = "discovery"
	GroupConfiguration = "configuration"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run tests",
		Long: `Check the tools and settings a run depends on:
- the Nix evaluator binary
- the nix-tests library path
- the search backends used to expand directories
- the configuration file in effect

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown format
  - --output json: JSON document

Exits non-zero when a check fails.`,
		Example: `  # Run the checks
  nix-tests doctor

  # Output as JSON
  nix-tests doctor -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, exec.LookPath)
		},
	}

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	HealthChecks []HealthCheck `json:"health_checks"`
	Backend      string        `json:"backend"`
	IssueCount   int           `json:"issue_count"`
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func runDoctor(cmd *cobra.Command, lookPath discovery.LookPathFunc) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	out := buildDoctorOutput(cmdCtx.Cfg, config.GetConfigFileUsed(), lookPath)

	var err error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}

	if out.IssueCount > 0 {
		return fmt.Errorf("doctor found %d problem(s)", out.IssueCount)
	}
	return nil
}

func buildDoctorOutput(cfg *config.Config, configFile string, lookPath discovery.LookPathFunc) *DoctorOutput {
	checks := []HealthCheck{
		checkBinary(cfg.Evaluator.Binary, lookPath),
		checkLibPath(cfg.Evaluator.LibPath),
		checkSearchTool(discovery.RipgrepBinary, lookPath),
		checkSearchTool(discovery.FindBinary, lookPath),
		checkConfigFile(configFile),
		{
			Name:   "concurrency",
			Group:  GroupConfiguration,
			Status: StatusPass,
			Detail: fmt.Sprintf("%d worker(s), timeout %s", cfg.Runner.Concurrency, describeTimeout(cfg)),
		},
	}

	issues := 0
	for _, c := range checks {
		if c.Status == StatusError {
			issues++
		}
	}

	return &DoctorOutput{
		HealthChecks: checks,
		Backend:      discovery.SelectSearcher(lookPath).Name(),
		IssueCount:   issues,
	}
}

func checkBinary(binary string, lookPath discovery.LookPathFunc) HealthCheck {
	c := HealthCheck{Name: "binary", Group: GroupEvaluator}
	path, err := lookPath(binary)
	if err != nil {
		c.Status = StatusError
		c.Detail = fmt.Sprintf("%s not found on PATH", binary)
		return c
	}
	c.Status = StatusPass
	c.Detail = path
	return c
}

func checkLibPath(libPath string) HealthCheck {
	c := HealthCheck{Name: "library", Group: GroupEvaluator, Status: StatusError}
	if libPath == "" {
		c.Detail = "not set (use --lib, evaluator.lib_path or NIX_TESTS_LIB_PATH)"
		return c
	}
	if _, err := os.Stat(libPath); err != nil {
		c.Detail = fmt.Sprintf("%s does not exist", libPath)
		return c
	}
	c.Status = StatusPass
	c.Detail = libPath
	return c
}

func checkSearchTool(binary string, lookPath discovery.LookPathFunc) HealthCheck {
	c := HealthCheck{Name: binary, Group: GroupDiscovery}
	path, err := lookPath(binary)
	if err != nil {
		c.Status = StatusWarn
		c.Detail = "not installed"
		return c
	}
	c.Status = StatusPass
	c.Detail = path
	return c
}

func checkConfigFile(configFile string) HealthCheck {
	c := HealthCheck{Name: "config file", Group: GroupConfiguration, Status: StatusPass}
	if configFile == "" {
		c.Detail = "none, using defaults"
		return c
	}
	c.Detail = configFile
	return c
}

func describeTimeout(cfg *config.Config) string {
	if cfg.Runner.Timeout == 0 {
		return "disabled"
	}
	return cfg.Runner.Timeout.Duration().String()
}

func statusLabel(status string) string {
	switch status {
	case StatusWarn:
		return "WARN"
	case StatusError:
		return "ERROR"
	default:
		return "PASS"
	}
}

func doctorTable(out *DoctorOutput) table.Writer {
	titleCaser := cases.Title(language.English)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Check", "Status", "Detail"})
	for _, check := range out.HealthChecks {
		t.AppendRow(table.Row{
			titleCaser.String(check.Group),
			check.Name,
			statusLabel(check.Status),
			check.Detail,
		})
	}
	return t
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	r.Header(1, "nix-tests Environment Report")
	r.Println("")
	r.Println(doctorTable(out).Render())
	r.Println("")
	r.Muted("Search backend: " + out.Backend)

	if out.IssueCount == 0 {
		r.Success("Ready to run tests")
		return
	}
	for _, check := range out.HealthChecks {
		if check.Status == StatusError {
			r.Warning(fmt.Sprintf("%s: %s", check.Name, check.Detail))
		}
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println(output.FormatHeader(1, "nix-tests Environment Report"))
	r.Println("")

	titleCaser := cases.Title(language.English)
	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			if currentGroup != "" {
				r.Println("")
			}
			currentGroup = check.Group
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s\n", statusLabel(check.Status), check.Name, check.Detail)
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Search Backend", out.Backend))
	r.Println(output.FormatKeyValue("Problems", fmt.Sprintf("%d", out.IssueCount)))
}

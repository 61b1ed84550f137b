package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	intconfig "github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/project"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/spf13/cobra"
)

// ErrDoctorFailed is returned when at least one health check reports an error.
var ErrDoctorFailed = errors.New("project health check failed")

// Health check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Root   string        `json:"root"`
	Checks []HealthCheck `json:"checks"`
	Errors int           `json:"errors"`
	Warns  int           `json:"warnings"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor [dir]",
		Short: "Run a project health check",
		Long: `Inspect a project without running any tool:
- project.yaml, entry point and manifest
- scene file parse, duplicate ids and formatting
- script schema and scripts attached to entities
- check, run and export commands on PATH
- history database`,
		Example: `  # Check the current project
  sceneforge doctor

  # Output as JSON
  sceneforge doctor --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			return runDoctor(cmd.OutOrStdout(), cc, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runDoctor(w io.Writer, cc *CommandContext, opts *DoctorOptions) error {
	if opts.Format != "text" && opts.Format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.Format)
	}

	out := &DoctorOutput{Root: cc.Root, Checks: diagnoseProject(cc)}
	for _, c := range out.Checks {
		switch c.Status {
		case StatusError:
			out.Errors++
		case StatusWarn:
			out.Warns++
		}
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		renderDoctorText(w, out)
	}

	if out.Errors > 0 {
		return fmt.Errorf("%w: %d errors", ErrDoctorFailed, out.Errors)
	}
	return nil
}

// diagnoseProject runs every health check in order. Checks that depend on
// a loadable project are skipped when project.yaml is broken.
func diagnoseProject(cc *CommandContext) []HealthCheck {
	var checks []HealthCheck

	cfg, err := intconfig.LoadFromDir(cc.Root)
	if err != nil {
		return append(checks, HealthCheck{Name: "project", Status: StatusError, Message: err.Error()})
	}
	checks = append(checks,
		HealthCheck{Name: "project", Status: StatusPass, Message: fmt.Sprintf("%s (runtime %s)", cfg.Name, cfg.RuntimeVersion)},
		fileCheck("entry", filepath.Join(cc.Root, cfg.Entry), cfg.Entry),
		fileCheck("manifest", filepath.Join(cc.Root, intconfig.ManifestFile), intconfig.ManifestFile),
	)

	sess, err := project.Open(cc.Root, cc.Logger)
	if err != nil {
		checks = append(checks, HealthCheck{Name: "scene", Status: StatusError, Message: err.Error()})
	} else {
		checks = append(checks, sceneChecks(sess)...)
		checks = append(checks, schemaChecks(sess)...)
	}

	checks = append(checks,
		commandCheck("check command", cc.Cfg.Check.Command, StatusError),
		commandCheck("run command", cc.Cfg.Run.Command, StatusWarn),
		commandCheck("export command", cc.Cfg.Export.Command, StatusWarn),
		historyCheck(cc),
	)
	return checks
}

func fileCheck(name, path, display string) HealthCheck {
	if _, err := os.Stat(path); err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: fmt.Sprintf("%s is missing", display)}
	}
	return HealthCheck{Name: name, Status: StatusPass, Message: display}
}

func sceneChecks(sess *project.Session) []HealthCheck {
	doc := sess.Scene()
	if doc == nil {
		return []HealthCheck{{
			Name:    "scene",
			Status:  StatusWarn,
			Message: fmt.Sprintf("no %s; run 'sceneforge scene init'", intconfig.SceneFile),
		}}
	}

	checks := []HealthCheck{{
		Name:    "scene",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d entities", len(doc.Entities)),
	}}

	if dups := doc.DuplicateIDs(); len(dups) > 0 {
		checks = append(checks, HealthCheck{
			Name:    "entity ids",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d duplicate ids", len(dups)),
			Details: dups,
		})
	} else {
		checks = append(checks, HealthCheck{Name: "entity ids", Status: StatusPass, Message: "unique"})
	}

	current, err := os.ReadFile(sess.ScenePath())
	formatted, ferr := scene.Marshal(doc)
	switch {
	case err != nil || ferr != nil:
		checks = append(checks, HealthCheck{Name: "scene format", Status: StatusWarn, Message: errors.Join(err, ferr).Error()})
	case !bytes.Equal(current, formatted):
		checks = append(checks, HealthCheck{Name: "scene format", Status: StatusWarn, Message: "not formatted; run 'sceneforge scene fmt'"})
	default:
		checks = append(checks, HealthCheck{Name: "scene format", Status: StatusPass, Message: "formatted"})
	}
	return checks
}

func schemaChecks(sess *project.Session) []HealthCheck {
	cache := sess.Schema()
	status := cache.Load()
	schema := cache.Schema()
	if schema == nil {
		return []HealthCheck{{Name: "schema", Status: StatusWarn, Message: status}}
	}
	checks := []HealthCheck{{Name: "schema", Status: StatusPass, Message: status}}

	doc := sess.Scene()
	if doc == nil {
		return checks
	}
	var unknown []string
	for _, e := range doc.Entities {
		for _, s := range e.Scripts {
			if _, ok := schema.Script(s.Name); !ok {
				unknown = append(unknown, fmt.Sprintf("%s: %s", e.ID, s.Name))
			}
		}
	}
	if len(unknown) > 0 {
		checks = append(checks, HealthCheck{
			Name:    "attached scripts",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d scripts missing from schema", len(unknown)),
			Details: unknown,
		})
	} else {
		checks = append(checks, HealthCheck{Name: "attached scripts", Status: StatusPass, Message: "all in schema"})
	}
	return checks
}

func commandCheck(name string, argv []string, failStatus string) HealthCheck {
	if len(argv) == 0 {
		return HealthCheck{Name: name, Status: failStatus, Message: "not configured"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return HealthCheck{Name: name, Status: failStatus, Message: fmt.Sprintf("%s not found on PATH", argv[0])}
	}
	return HealthCheck{Name: name, Status: StatusPass, Message: strings.Join(append([]string{path}, argv[1:]...), " ")}
}

func historyCheck(cc *CommandContext) HealthCheck {
	if !cc.Cfg.History {
		return HealthCheck{Name: "history", Status: StatusPass, Message: "disabled"}
	}
	store, err := cc.OpenStore()
	if err != nil {
		return HealthCheck{Name: "history", Status: StatusWarn, Message: err.Error()}
	}
	defer func() { _ = store.Close() }()
	version, err := store.GetMigrationVersion()
	if err != nil {
		return HealthCheck{Name: "history", Status: StatusWarn, Message: err.Error()}
	}
	return HealthCheck{
		Name:    "history",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (schema v%d)", cc.Cfg.StatePathFor(cc.Root), version),
	}
}

func renderDoctorText(w io.Writer, out *DoctorOutput) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Message"})
	for _, c := range out.Checks {
		t.AppendRow(table.Row{c.Name, c.Status, c.Message})
		for _, d := range c.Details {
			t.AppendRow(table.Row{"", "", "  " + d})
		}
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "\n%d errors, %d warnings\n", out.Errors, out.Warns)
}

package commands

import (
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/leapstack-labs/sceneforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moverSchema = "scripts:\n  - name: Mover\n    symbol: game::Mover\n    params: []\n"

func healthyProject(t *testing.T) string {
	t.Helper()
	doc := scene.Starter()
	doc.Entities[0].AttachScript("Mover")
	data, err := scene.Marshal(doc)
	require.NoError(t, err)
	return testutil.NewProject(t, map[string]string{
		"src/main.rs":               "fn main() {}\n",
		"Cargo.toml":                "[package]\nname = \"demo\"\n",
		"design/initial.scene.yaml": string(data),
		"design/.schema.yaml":       moverSchema,
	})
}

func findCheck(t *testing.T, checks []HealthCheck, name string) HealthCheck {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q check", name)
	return HealthCheck{}
}

func TestDoctorCommandMetadata(t *testing.T) {
	cmd := NewDoctorCommand()

	assert.Equal(t, "doctor [dir]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("format"))
}

func TestDoctor_Healthy(t *testing.T) {
	root := healthyProject(t)

	out, err := execute(t, testConfig(), NewDoctorCommand(), root)
	require.NoError(t, err)
	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "3 entities")
	assert.Contains(t, out, "Loaded script schema (1 scripts).")
	assert.Contains(t, out, "0 errors")
}

func TestDoctor_JSON(t *testing.T) {
	root := healthyProject(t)

	out, err := execute(t, testConfig(), NewDoctorCommand(), root, "--format", "json")
	require.NoError(t, err)

	var report DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, root, report.Root)
	assert.Zero(t, report.Errors)
	assert.Equal(t, StatusPass, findCheck(t, report.Checks, "project").Status)
	assert.Equal(t, StatusPass, findCheck(t, report.Checks, "scene format").Status)
	assert.Equal(t, StatusPass, findCheck(t, report.Checks, "attached scripts").Status)
	assert.Equal(t, StatusPass, findCheck(t, report.Checks, "check command").Status)
	assert.Equal(t, StatusPass, findCheck(t, report.Checks, "history").Status)
}

func TestDoctor_Problems(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{
		"design/initial.scene.yaml": "entities:\n- id: a\n  components: []\n  scripts: [{name: Ghost}]\n- id: a\n  components: []\n",
		"design/.schema.yaml":       moverSchema,
	})
	cfg := testConfig()
	cfg.Check.Command = []string{filepath.Join(root, "no-such-tool")}

	cc := &CommandContext{Cfg: cfg, Logger: testutil.NewTestLogger(t), Root: root}
	checks := diagnoseProject(cc)

	assert.Equal(t, StatusError, findCheck(t, checks, "entry").Status)
	assert.Equal(t, StatusError, findCheck(t, checks, "manifest").Status)
	assert.Equal(t, StatusError, findCheck(t, checks, "check command").Status)

	ids := findCheck(t, checks, "entity ids")
	assert.Equal(t, StatusWarn, ids.Status)
	assert.Equal(t, []string{"a"}, ids.Details)

	assert.Equal(t, StatusWarn, findCheck(t, checks, "scene format").Status)

	scripts := findCheck(t, checks, "attached scripts")
	assert.Equal(t, StatusWarn, scripts.Status)
	assert.Equal(t, []string{"a: Ghost"}, scripts.Details)

	_, err := execute(t, cfg, NewDoctorCommand(), root)
	require.ErrorIs(t, err, ErrDoctorFailed)
}

func TestDoctor_NoProject(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, testConfig(), NewDoctorCommand(), root)
	require.ErrorIs(t, err, ErrDoctorFailed)
	assert.Contains(t, out, "project.yaml")
	assert.Contains(t, out, "1 errors")
}

func TestDoctor_UnknownFormat(t *testing.T) {
	root := healthyProject(t)

	_, err := execute(t, testConfig(), NewDoctorCommand(), root, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

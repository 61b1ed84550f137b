package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/check"
	"github.com/leapstack-labs/sceneforge/internal/state"
	"github.com/leapstack-labs/sceneforge/internal/testutil"
	"github.com/leapstack-labs/sceneforge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the check, run and
// export commands, selected by HELPER_MODE.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "check":
		if raw, err := os.ReadFile("delay"); err == nil {
			if d, err := time.ParseDuration(strings.TrimSpace(string(raw))); err == nil {
				time.Sleep(d)
			}
		}
		if out, err := os.ReadFile("check-output.jsonl"); err == nil {
			_, _ = os.Stdout.Write(out)
		}
	case "run":
		fmt.Println("game booted")
		fmt.Fprintln(os.Stderr, "wgpu warning")
		if v := os.Getenv("GREETING"); v != "" {
			fmt.Println(v)
		}
		if d, err := time.ParseDuration(os.Getenv("HELPER_SLEEP")); err == nil {
			time.Sleep(d)
		}
	case "export":
		fmt.Println("exporting 1 script")
		code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
		if code == 0 {
			schema := "scripts:\n  - name: Mover\n    symbol: game::Mover\n    params: []\n"
			_ = os.WriteFile(filepath.Join("design", ".schema.yaml"), []byte(schema), 0o644)
		} else {
			fmt.Fprintln(os.Stderr, "error: could not compile")
		}
		os.Exit(code)
	}
	os.Exit(0)
}

const mismatchedTypes = `{"reason":"compiler-message","message":{"message":"mismatched types","level":"error","spans":[{"file_name":"src/main.rs","line_start":10,"column_start":5}]}}` + "\n"

const sceneTwoEntities = `entities:
  - id: ground
    components:
      - type_id: Transform
      - type_id: Mesh3d
        data:
          shape: Circle
          radius: 2.0
      - type_id: Material3d
        data:
          color: [1, 0, 0, 1]
  - id: camera
    components:
      - type_id: Camera3d
`

type fakeHistory struct {
	mu     sync.Mutex
	runs   []*state.CheckRun
	opened []string
}

func (f *fakeHistory) RecordCheck(_ context.Context, run *state.CheckRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeHistory) TouchRecentProject(_ context.Context, root, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, root)
	return nil
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func helper(mode string, env ...string) ([]string, []string) {
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		append([]string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode}, env...)
}

func newTestEditor(t *testing.T, mutate func(*Config)) (*Editor, *fakeHistory) {
	t.Helper()
	history := &fakeHistory{}
	cfg := Config{
		Watch:   WatchConfig{Debounce: 20 * time.Millisecond},
		History: history,
		Logger:  testutil.NewTestLogger(t),
	}
	cfg.CheckCommand, cfg.CheckEnv = helper("check")
	cfg.RunCommand, cfg.RunEnv = helper("run")
	cfg.ExportCommand, cfg.ExportEnv = helper("export")
	if mutate != nil {
		mutate(&cfg)
	}

	ed := New(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		require.NoError(t, ed.Shutdown(ctx))
	})
	return ed, history
}

// tickUntil ticks the editor until cond holds.
func tickUntil(t *testing.T, ed *Editor, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		ed.Tick()
		return cond()
	}, 20*time.Second, 5*time.Millisecond)
}

func TestOpen_InitialCheckReportsDiagnostics(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{
		"src/main.rs":               "fn main() {}\n",
		"design/initial.scene.yaml": sceneTwoEntities,
		"check-output.jsonl":        mismatchedTypes,
	})
	ed, history := newTestEditor(t, nil)

	require.NoError(t, ed.Open(root))
	assert.Equal(t, uint64(1), ed.Epoch())
	assert.Contains(t, ed.Status(), "No .schema.yaml yet")

	tickUntil(t, ed, func() bool { return ed.LastCheck() != nil })

	assert.Regexp(t, `^check: ERR in \d+ ms$`, ed.Status())
	assert.Equal(t, []core.Diagnostic{{File: "src/main.rs", Line: 10, Col: 5, Message: "[error] mismatched types"}}, ed.Diagnostics())
	assert.Equal(t, 1, history.count())
	assert.Equal(t, state.CheckStatusErr, history.runs[0].Status)
	assert.Len(t, history.opened, 1)
}

func TestCheck_OKClearsDiagnostics(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{"check-output.jsonl": mismatchedTypes})
	ed, _ := newTestEditor(t, nil)

	require.NoError(t, ed.Open(root))
	tickUntil(t, ed, func() bool { return ed.LastCheck() != nil })
	require.Len(t, ed.Diagnostics(), 1)

	testutil.WriteFiles(t, root, map[string]string{"check-output.jsonl": ""})
	require.True(t, ed.RequestCheck())
	tickUntil(t, ed, func() bool { return ed.LastCheck().OK() })

	assert.Empty(t, ed.Diagnostics())
	assert.Regexp(t, `^check: OK in \d+ ms$`, ed.Status())
}

func TestTick_DropsStaleEpochResults(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{"check-output.jsonl": ""})
	ed, history := newTestEditor(t, nil)

	require.NoError(t, ed.Open(root))
	tickUntil(t, ed, func() bool { return ed.LastCheck() != nil })
	before := history.count()

	ed.results.Send(check.Result{
		Root:        root,
		Epoch:       ed.Epoch() - 1,
		Diagnostics: []core.Diagnostic{{File: "old.rs", Line: 1, Col: 1, Message: "[error] stale"}},
	})
	ed.Tick()

	assert.Empty(t, ed.Diagnostics())
	assert.Equal(t, before, history.count())
}

func TestOpen_SwitchingProjectsRetiresOldWorker(t *testing.T) {
	slow := testutil.NewProject(t, map[string]string{
		"check-output.jsonl": mismatchedTypes,
		"delay":              "500ms",
	})
	fast := testutil.NewProject(t, map[string]string{"check-output.jsonl": ""})
	ed, _ := newTestEditor(t, nil)

	require.NoError(t, ed.Open(slow))
	require.NoError(t, ed.Open(fast))
	assert.Equal(t, uint64(2), ed.Epoch())
	require.Len(t, ed.retired, 1)

	tickUntil(t, ed, func() bool { return ed.LastCheck() != nil })
	assert.Equal(t, uint64(2), ed.LastCheck().Epoch)

	// Whether or not the slow check had started, nothing it produces is applied.
	select {
	case <-ed.retired[0]:
	case <-time.After(20 * time.Second):
		t.Fatal("retired worker did not finish")
	}
	ed.Tick()
	assert.Empty(t, ed.Diagnostics())
	assert.Equal(t, uint64(2), ed.LastCheck().Epoch)
	assert.Equal(t, fast, ed.Session().Root())
}

func TestOpen_FailureKeepsPreviousProject(t *testing.T) {
	root := testutil.NewProject(t, nil)
	ed, _ := newTestEditor(t, nil)

	require.NoError(t, ed.Open(root))
	err := ed.Open(t.TempDir())
	require.Error(t, err)

	var cfgErr *core.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.True(t, strings.HasPrefix(ed.Status(), "Failed to open project: "))
	assert.Equal(t, root, ed.Session().Root())
	assert.Equal(t, uint64(1), ed.Epoch())
}

func TestWatcherEventTriggersCheck(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{
		"src/main.rs":        "fn main() {}\n",
		"check-output.jsonl": "",
	})
	var wakes atomic.Int32
	ed, history := newTestEditor(t, func(c *Config) {
		c.Wake = func() { wakes.Add(1) }
	})

	require.NoError(t, ed.Open(root))
	tickUntil(t, ed, func() bool { return history.count() == 1 })

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte("fn main() { }\n"), 0o644))

	tickUntil(t, ed, func() bool { return history.count() >= 2 })
	assert.Positive(t, wakes.Load())
}

func TestTick_ReloadsSceneAndClampsSelection(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{"design/initial.scene.yaml": sceneTwoEntities})
	ed, _ := newTestEditor(t, nil)

	require.NoError(t, ed.Open(root))
	require.Equal(t, 0, ed.Selection().Entity)
	require.True(t, ed.SelectNext())
	require.Equal(t, "camera", ed.Selected().ID)

	path := ed.Session().ScenePath()
	require.NoError(t, os.WriteFile(path, []byte("entities:\n  - id: solo\n    components: []\n"), 0o644))
	testutil.BumpMtime(t, path, 2*time.Second)

	assert.True(t, ed.Tick())
	require.Len(t, ed.Session().Scene().Entities, 1)
	assert.Equal(t, 0, ed.Selection().Entity)
	assert.Equal(t, "solo", ed.Selected().ID)
}

func TestSave(t *testing.T) {
	t.Run("no project", func(t *testing.T) {
		ed, _ := newTestEditor(t, nil)
		err := ed.Save()
		assert.ErrorIs(t, err, core.ErrScheduleConflict)
		assert.Equal(t, "no project open", ed.Status())
	})

	t.Run("no scene", func(t *testing.T) {
		ed, _ := newTestEditor(t, nil)
		require.NoError(t, ed.Open(testutil.NewProject(t, nil)))
		err := ed.Save()
		assert.ErrorIs(t, err, core.ErrScheduleConflict)
		assert.True(t, strings.HasPrefix(ed.Status(), "save failed: "))
	})

	t.Run("edits saved without echo reload", func(t *testing.T) {
		ed, _ := newTestEditor(t, nil)
		require.NoError(t, ed.Open(testutil.NewProject(t, map[string]string{"design/initial.scene.yaml": sceneTwoEntities})))

		require.NoError(t, ed.AddEntity("light"))
		assert.True(t, ed.Dirty())
		require.NoError(t, ed.Save())
		assert.Equal(t, "scene saved", ed.Status())
		assert.False(t, ed.Dirty())

		assert.False(t, ed.Session().ReloadIfChanged(), "own write must not reload")
		assert.Equal(t, 2, ed.Selection().Entity)
		assert.Len(t, ed.Session().Scene().Entities, 3)
	})
}

func TestCreateScene(t *testing.T) {
	ed, _ := newTestEditor(t, nil)
	require.NoError(t, ed.Open(testutil.NewProject(t, nil)))

	assert.False(t, ed.Selection().Valid())
	require.NoError(t, ed.CreateScene())
	assert.FileExists(t, ed.Session().ScenePath())
	assert.ErrorIs(t, ed.CreateScene(), core.ErrScheduleConflict)
}

func TestRun_StreamsIntoLog(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{".env": "GREETING=hello from dotenv\n"})
	ed, _ := newTestEditor(t, nil)
	require.NoError(t, ed.Open(root))

	require.NoError(t, ed.StartRun())
	assert.Equal(t, "runner started", ed.Status())
	assert.True(t, ed.Running())

	tickUntil(t, ed, func() bool { return !ed.Running() })

	lines := ed.Log().Lines()
	assert.Contains(t, lines, "[out] game booted")
	assert.Contains(t, lines, "[err] wgpu warning")
	assert.Contains(t, lines, "[out] hello from dotenv")
	assert.Equal(t, "[exit] 0", lines[len(lines)-1])
}

func TestRun_ConflictAndStop(t *testing.T) {
	ed, _ := newTestEditor(t, func(c *Config) {
		c.RunEnv = append(c.RunEnv, "HELPER_SLEEP=30s")
	})

	assert.ErrorIs(t, ed.StartRun(), core.ErrScheduleConflict)
	assert.Equal(t, "no project open", ed.Status())

	require.NoError(t, ed.Open(testutil.NewProject(t, nil)))
	require.NoError(t, ed.StartRun())

	err := ed.StartRun()
	assert.ErrorIs(t, err, core.ErrScheduleConflict)
	assert.Equal(t, "runner already active", ed.Status())

	ed.StopRun()
	assert.Equal(t, "runner stopped", ed.Status())
	assert.False(t, ed.Running())
	lines := ed.Log().Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "[exit] -1", lines[len(lines)-1])
}

func TestExport(t *testing.T) {
	t.Run("exit 3", func(t *testing.T) {
		ed, _ := newTestEditor(t, func(c *Config) {
			c.ExportEnv = append(c.ExportEnv, "HELPER_EXIT=3")
		})
		require.NoError(t, ed.Open(testutil.NewProject(t, map[string]string{"design/.keep": ""})))

		res := ed.Export(context.Background())
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "Export failed (exit 3). See console.", ed.Status())
		assert.Nil(t, ed.Session().Schema().Schema())
		assert.Contains(t, ed.Log().Lines(), "[export/stderr] error: could not compile")
	})

	t.Run("success reloads schema", func(t *testing.T) {
		ed, _ := newTestEditor(t, nil)
		require.NoError(t, ed.Open(testutil.NewProject(t, map[string]string{"design/.keep": ""})))

		res := ed.Export(context.Background())
		require.True(t, res.OK())
		assert.Equal(t, "Exported script schema. Loaded script schema (1 scripts).", ed.Status())
		require.NotNil(t, ed.Session().Schema().Schema())
		assert.Contains(t, ed.Log().Lines(), "[export/stdout] exporting 1 script")
	})
}

func TestScripts(t *testing.T) {
	root := testutil.NewProject(t, map[string]string{
		"design/initial.scene.yaml": sceneTwoEntities,
		"design/.schema.yaml":       "scripts:\n  - name: Mover\n    symbol: game::Mover\n    params: []\n",
	})
	ed, _ := newTestEditor(t, nil)
	require.NoError(t, ed.Open(root))
	assert.Equal(t, "Loaded script schema (1 scripts).", ed.Status())

	require.Error(t, ed.AttachScript("Unknown"))
	require.NoError(t, ed.AttachScript("Mover"))
	require.NoError(t, ed.AttachScript("Mover"))
	assert.Len(t, ed.Selected().Scripts, 1)
	assert.True(t, ed.Dirty())

	require.Error(t, ed.DetachScript(3))
	require.NoError(t, ed.DetachScript(0))
	assert.Empty(t, ed.Selected().Scripts)
}

func TestRemoveSelected(t *testing.T) {
	ed, _ := newTestEditor(t, nil)
	require.NoError(t, ed.Open(testutil.NewProject(t, map[string]string{"design/initial.scene.yaml": sceneTwoEntities})))

	require.True(t, ed.SelectNext())
	require.NoError(t, ed.RemoveSelected())
	assert.Equal(t, 0, ed.Selection().Entity)
	require.NoError(t, ed.RemoveSelected())
	assert.False(t, ed.Selection().Valid())
	assert.ErrorIs(t, ed.RemoveSelected(), core.ErrScheduleConflict)
}

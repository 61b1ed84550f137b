// Package main provides tests for the sceneforge CLI.
package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/sceneforge/internal/cli"
	"github.com/leapstack-labs/sceneforge/internal/cli/config"
	clitest "github.com/leapstack-labs/sceneforge/internal/cli/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	return clitest.ExecuteCommand(t, context.Background(), cli.NewRootCmd(), args...)
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	project := "name: demo\nentry: src/main.rs\nruntime_version: \"0.14\"\n"
	if err := os.WriteFile(filepath.Join(root, "project.yaml"), []byte(project), 0o644); err != nil {
		t.Fatalf("failed to write project.yaml: %v", err)
	}
	return root
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "sceneforge") {
		t.Errorf("version output should contain 'sceneforge', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"init", "doctor", "edit", "check", "watch", "scene", "export", "history", "recent", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	output, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion command error = %v", err)
	}
	if !strings.Contains(output, "sceneforge") {
		t.Errorf("bash completion should mention sceneforge")
	}

	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("completion should reject unknown shells")
	}
}

func TestSceneInitAndShow(t *testing.T) {
	root := newProject(t)

	if _, err := execute(t, "--history=false", "scene", "init", root); err != nil {
		t.Fatalf("scene init error = %v", err)
	}

	output, err := execute(t, "--history=false", "scene", "show", root)
	if err != nil {
		t.Fatalf("scene show error = %v", err)
	}
	for _, want := range []string{"camera", "light", "ground", "Camera3d", "PointLight"} {
		if !strings.Contains(output, want) {
			t.Errorf("scene show output should contain %q, got: %s", want, output)
		}
	}
}

func TestConfigFileFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sceneforge.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_format: xml\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := execute(t, "--config", cfgPath, "scene", "show", newProject(t))
	if err == nil || !strings.Contains(err.Error(), "log_format") {
		t.Errorf("expected log_format validation error, got %v", err)
	}
}

func TestLogFile(t *testing.T) {
	root := newProject(t)
	logPath := filepath.Join(t.TempDir(), "logs", "sceneforge.log")

	if _, err := execute(t, "--history=false", "--log-level", "debug", "--log-file", logPath, "scene", "init", root); err != nil {
		t.Fatalf("scene init error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "scene saved") {
		t.Errorf("log file should contain the save event, got: %s", data)
	}
}

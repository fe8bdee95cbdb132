package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".blameview.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".blameview.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ShowOnSelect {
		t.Error("ShowOnSelect should default to true")
	}
	if cfg.StatusBar {
		t.Error("StatusBar should default to false")
	}
	if cfg.Log.Level != LevelInfo {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, LevelInfo)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, "show_on_select: false\nstatus_bar: true\nlog:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ShowOnSelect {
		t.Error("ShowOnSelect should be overridden to false")
	}
	if !cfg.StatusBar {
		t.Error("StatusBar should be overridden to true")
	}
	if cfg.Log.Level != LevelDebug {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, LevelDebug)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "status_bar: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ShowOnSelect {
		t.Error("unset ShowOnSelect should keep its default")
	}
	if !cfg.StatusBar {
		t.Error("StatusBar should be true")
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown log level")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "status_bar: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

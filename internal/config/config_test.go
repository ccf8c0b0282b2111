package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.:-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasBackendURL") {
			cfg.BackendURL = nonEmptyString.Draw(t, "backendURL")
		}
		if rapid.Bool().Draw(t, "hasLogLevel") {
			cfg.LogLevel = nonEmptyString.Draw(t, "logLevel")
		}
		if rapid.Bool().Draw(t, "hasSynthesizer") {
			cfg.SynthesizerCommand = nonEmptyString.Draw(t, "synthesizer")
		}
		if rapid.Bool().Draw(t, "hasTimeout") {
			cfg.RequestTimeout = time.Duration(rapid.IntRange(1, 600).Draw(t, "timeout")) * time.Second
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "BackendURL", global.BackendURL, project.BackendURL, defaults.BackendURL, merged.BackendURL)
		checkStringField(t, "LogLevel", global.LogLevel, project.LogLevel, defaults.LogLevel, merged.LogLevel)
		checkStringField(t, "SynthesizerCommand", global.SynthesizerCommand, project.SynthesizerCommand,
			defaults.SynthesizerCommand, merged.SynthesizerCommand)

		want := defaults.RequestTimeout
		if global.RequestTimeout != 0 {
			want = global.RequestTimeout
		}
		if project.RequestTimeout != 0 {
			want = project.RequestTimeout
		}
		if merged.RequestTimeout != want {
			t.Fatalf("RequestTimeout: want %s, got %s", want, merged.RequestTimeout)
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set, expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set, expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set, expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.BackendURL != "http://127.0.0.1:8000" {
		t.Errorf("BackendURL: got %q", d.BackendURL)
	}
	if d.RequestTimeout != 2*time.Minute {
		t.Errorf("RequestTimeout: got %s", d.RequestTimeout)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.BackendURL != Defaults().BackendURL {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "syllabus")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("backend_url: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestLoadLayersFilesAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	chdir(t, work)

	cfgDir := filepath.Join(home, ".config", "syllabus")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	global := "backend_url: http://global:8000\nrequest_timeout: 30s\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(global), 0o644); err != nil {
		t.Fatal(err)
	}
	project := "backend_url: http://project:8000\nsynthesizer_command: espeak-ng\n"
	if err := os.WriteFile(filepath.Join(work, ".syllabus.yaml"), []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte(EnvLogLevel+"=warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)
	t.Setenv(EnvBackendURL, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://project:8000" {
		t.Errorf("BackendURL: got %q", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel from .env: got %q", cfg.LogLevel)
	}
	if cfg.SynthesizerCommand != "espeak-ng" {
		t.Errorf("SynthesizerCommand: got %q", cfg.SynthesizerCommand)
	}

	t.Setenv(EnvBackendURL, "https://override.example")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://override.example" {
		t.Errorf("env override: got %q", cfg.BackendURL)
	}
}

func TestValidate(t *testing.T) {
	bad := []Config{
		{BackendURL: "ftp://x", LogLevel: "info"},
		{BackendURL: "http://", LogLevel: "info"},
		{BackendURL: "http://x", LogLevel: "loud"},
		{BackendURL: "http://x", LogLevel: "info", RequestTimeout: -time.Second},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}

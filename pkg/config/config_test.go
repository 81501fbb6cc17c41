package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Owner string `yaml:"owner"`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("DOCK_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${DOCK_TEST_NAME}\nport: ${DOCK_TEST_PORT:-9090}\n")

	cfg := testConfig{Owner: "default-owner"}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" || cfg.Port != 9090 || cfg.Owner != "default-owner" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "port: 0\n")
	var cfg testConfig
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := testConfig{Port: 8080}
	if err := LoadWithDefaults(missing, "", &cfg); err != nil {
		t.Fatalf("missing file with valid defaults: %v", err)
	}

	fallback := writeFile(t, "port: 7070\n")
	if err := LoadWithDefaults(missing, fallback, &cfg); err != nil {
		t.Fatalf("fallback file: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Port)
	}

	var invalid testConfig
	if err := LoadWithDefaults(missing, "", &invalid); err == nil {
		t.Error("invalid defaults should fail validation")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DOCK_SET", "x")
	t.Setenv("DOCK_EMPTY", "")
	tests := map[string]string{
		"$DOCK_SET":              "x",
		"${DOCK_SET:-y}":         "x",
		"${DOCK_EMPTY:-y}":       "y",
		"${DOCK_UNSET_VAR}":      "",
		"a-${DOCK_UNSET_VAR:-b}": "a-b",
	}
	for in, want := range tests {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

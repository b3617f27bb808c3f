package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  timeout: 5s
log:
  level: debug
  format: console
artifacts:
  dir: artifacts
  model: tree.json
  model_type: decision_tree
pipeline:
  label_column: Label
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Server.Timeout)
	}
	if cfg.Server.MaxUploadBytes != Default().Server.MaxUploadBytes {
		t.Fatalf("expected default upload cap, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Artifacts.ModelType != "decision_tree" {
		t.Fatalf("unexpected model type: %s", cfg.Artifacts.ModelType)
	}
	if cfg.Artifacts.Imputer != "fitted_imputer.json" {
		t.Fatalf("expected default imputer file, got %s", cfg.Artifacts.Imputer)
	}
	if cfg.Pipeline.LabelColumn != "Label" {
		t.Fatalf("unexpected label column: %s", cfg.Pipeline.LabelColumn)
	}

	want := filepath.Join(filepath.Dir(path), "artifacts", "tree.json")
	if got := cfg.Artifacts.ModelPath(); got != want {
		t.Fatalf("expected model path %s, got %s", want, got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port":    "server:\n  port: 70000\n",
		"format":  "log:\n  format: xml\n",
		"maxRows": "pipeline:\n  max_rows: 0\n",
		"model":   "artifacts:\n  model: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestArtifactPathsAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "imputer.json")
	a := ArtifactsConfig{Dir: "models", Imputer: abs, Scaler: "scaler.json"}
	if a.ImputerPath() != abs {
		t.Fatalf("absolute path should be kept, got %s", a.ImputerPath())
	}
	if a.ScalerPath() != filepath.Join("models", "scaler.json") {
		t.Fatalf("unexpected scaler path %s", a.ScalerPath())
	}
}

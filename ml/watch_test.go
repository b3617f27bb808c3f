package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatchLogsArtifactChanges(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fitted_imputer.json", "fitted_scaler.json", "xgb_model.json"} {
		payload, err := os.ReadFile(filepath.Join("..", "testdata", "artifacts", name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), payload, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := fixtureConfig()
	cfg.Dir = dir
	artifacts, err := LoadArtifacts(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	if err := artifacts.Watch(zap.New(core)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer artifacts.Close()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "xgb_model.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessageSnippet("artifact changed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a warning for the changed model file")
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, entry := range logs.All() {
		if path := entry.ContextMap()["path"]; filepath.Base(path.(string)) != "xgb_model.json" {
			t.Fatalf("unexpected warning for %v", path)
		}
	}
}

func TestWatchRequiresLoadedFiles(t *testing.T) {
	imputer, _ := NewSimpleImputer("mean", []string{"a"}, []float64{0})
	scaler, _ := NewScaler(ScalerStandard, []string{"a"}, []float64{0}, []float64{1})
	tree, _ := NewDecisionTree([]TreeNode{{IsLeaf: true, Probability: 0.5}}, 1)
	artifacts, err := NewArtifacts(imputer, scaler, tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := artifacts.Watch(zap.NewNop()); err == nil {
		t.Fatal("expected error without artifact paths")
	}
}

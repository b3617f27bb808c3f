package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	artifactsDir, err := filepath.Abs(filepath.Join("..", "testdata", "artifacts"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "artifacts:\n  dir: " + artifactsDir + "\nlog:\n  format: console\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPredictWritesFile(t *testing.T) {
	cfg := writeConfig(t)
	out := filepath.Join(t.TempDir(), "potability_predictions.csv")
	input := filepath.Join("..", "testdata", "artifacts", "water_samples.csv")

	_, stderr, err := run(t, "", "--config", cfg, "predict", "--input", input, "--output", out, "--quiet=false")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "Potability,Potability Prediction,Confidence (Potable %)"))
	assert.True(t, strings.HasSuffix(lines[1], ",Not Potable,42.56"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",Potable,62.25"), lines[2])

	assert.Contains(t, stderr, "Prediction results (2 of 3 potable, 1 values imputed)")
}

func TestPredictFromStdin(t *testing.T) {
	cfg := writeConfig(t)
	input := "ph,Hardness,Solids,Chloramines,Sulfate,Conductivity,Organic_carbon,Trihalomethanes,Turbidity\n" +
		"9.0,129.42,18630.06,6.64,400,592.89,15.18,56.33,4.50\n"

	stdout, stderr, err := run(t, input, "--config", cfg, "predict", "--input", "-", "--output=", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Potable,62.25")
}

func TestPredictRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t)

	_, _, err := run(t, "ph\n7\n", "--config", cfg, "predict", "--input", "-", "--output=", "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestInspect(t *testing.T) {
	cfg := writeConfig(t)

	stdout, _, err := run(t, "", "--config", cfg, "inspect", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Classifier: xgboost binary:logistic (2 trees)")
	assert.Contains(t, stdout, "Features:   ph, Hardness, Solids")
}

func TestInspectHelpDescribesExport(t *testing.T) {
	// flag values persist on the shared command tree between runs
	t.Cleanup(func() { inspectCmd.Flags().Set("help", "false") })
	stdout, _, err := run(t, "", "inspect", "--help")
	require.NoError(t, err)
	for _, want := range []string{"statistics_", "mean_", "scale_", "with_mean=False", "with_std=False", `save_model("xgb_model.json")`} {
		assert.Contains(t, stdout, want)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, _, err := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "inspect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

// Package cmd implements the potability command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"potability/config"
	"potability/ml"
	"potability/pipeline"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "potability",
	Short: "Predict drinking water potability from measured quality parameters",
	Long: `potability loads a fitted imputer, scaler and classifier and labels every row of a
water quality CSV as Potable or Not Potable with a confidence percentage. It can serve an
upload page and JSON API, or run a single file from the command line.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, then ../config.yaml)")
}

// loadConfig reads the config file. Without --config a missing default file falls back to
// built-in defaults.
func loadConfig() (*config.Config, error) {
	path := config.Resolve(cfgFile)
	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if cfgFile == "" && errors.Is(err, fs.ErrNotExist) {
		d := config.Default()
		return &d, nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

// loadPipeline loads the artifacts named by c and builds the shared pipeline.
// The caller closes the returned artifacts.
func loadPipeline(c *config.Config) (*pipeline.Pipeline, *ml.Artifacts, error) {
	artifacts, err := ml.LoadArtifacts(c.Artifacts)
	if err != nil {
		return nil, nil, err
	}
	p := pipeline.New(artifacts, pipeline.Options{LabelColumn: c.Pipeline.LabelColumn})
	return p, artifacts, nil
}

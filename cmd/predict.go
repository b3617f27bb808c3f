package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"potability/pipeline"
	"potability/view"
)

var (
	predictInput  string
	predictOutput string
	predictQuiet  bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Label every row of a CSV file",
	Long: `Reads a water quality CSV, appends the "Potability Prediction" and
"Confidence (Potable %)" columns and writes the result as CSV. Use "-" to read stdin.`,
	Example: `  potability predict --input samples.csv --output potability_predictions.csv
  cat samples.csv | potability predict --input - --quiet > out.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		p, artifacts, err := loadPipeline(c)
		if err != nil {
			return err
		}
		defer artifacts.Close()

		table, err := readInput(cmd, predictInput, c.Pipeline.MaxRows)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		result, err := p.Predict(ctx, table)
		if err != nil {
			return err
		}

		// Render fully before touching the output so a failure never leaves half a file.
		var buf bytes.Buffer
		if err := result.WriteCSV(&buf); err != nil {
			return err
		}
		if predictOutput == "" {
			if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
				return err
			}
		} else if err := os.WriteFile(predictOutput, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", predictOutput, err)
		}

		if !predictQuiet {
			return view.Render(cmd.ErrOrStderr(), view.NewTextPresenter(""), nil, result, nil)
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, path string, maxRows int) (*pipeline.Table, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return pipeline.ReadCSV(r, pipeline.ReadOptions{MaxRows: maxRows})
}

func init() {
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "", "CSV file to label (\"-\" for stdin)")
	predictCmd.Flags().StringVarP(&predictOutput, "output", "o", "", "output CSV (default stdout)")
	predictCmd.Flags().BoolVarP(&predictQuiet, "quiet", "q", false, "do not print the result preview")
	predictCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCmd)
}

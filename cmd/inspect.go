package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the artifacts and print what they expect",
	Long: `Load the imputer, scaler and classifier and print the feature order they expect.

The artifacts are JSON exports of the fitted joblib objects (see README.md):
  fitted_imputer.json  {"strategy", "feature_names", "statistics": imputer.statistics_}
  fitted_scaler.json   {"kind": "standard", "feature_names", "mean": scaler.mean_, "scale": scaler.scale_}
                       write zeros for mean with with_mean=False, ones for scale with with_std=False;
                       "robust" takes center/scale, "minmax" takes data_min/data_range
  xgb_model.json       model.save_model("xgb_model.json")`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		_, artifacts, err := loadPipeline(c)
		if err != nil {
			return err
		}
		defer artifacts.Close()

		summary := artifacts.Summary()
		out := cmd.OutOrStdout()
		if inspectJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		fmt.Fprintf(out, "Imputer:    %s\n", summary.Imputer)
		fmt.Fprintf(out, "Scaler:     %s\n", summary.Scaler)
		fmt.Fprintf(out, "Classifier: %s\n", summary.Classifier)
		fmt.Fprintf(out, "Label:      %s (ignored when present)\n", c.Pipeline.LabelColumn)
		fmt.Fprintf(out, "Features:   %s\n", strings.Join(summary.Features, ", "))
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(inspectCmd)
}

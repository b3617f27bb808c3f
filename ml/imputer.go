package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// SimpleImputer fills NaN cells with a statistic learned per column at fit time.
// The strategy is informational; only the statistics are applied.
type SimpleImputer struct {
	strategy   string
	features   []string
	statistics []float64
}

type imputerFile struct {
	Strategy     string     `json:"strategy"`
	FeatureNames []string   `json:"feature_names"`
	Statistics   []*float64 `json:"statistics"`
}

func NewSimpleImputer(strategy string, features []string, statistics []float64) (*SimpleImputer, error) {
	if len(features) == 0 {
		return nil, errors.New("imputer has no features")
	}
	if len(features) != len(statistics) {
		return nil, fmt.Errorf("imputer has %d features but %d statistics", len(features), len(statistics))
	}
	for i, value := range statistics {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("imputer statistic for %s is not finite", features[i])
		}
	}
	return &SimpleImputer{
		strategy:   strategy,
		features:   append([]string(nil), features...),
		statistics: append([]float64(nil), statistics...),
	}, nil
}

func LoadSimpleImputer(path string) (*SimpleImputer, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file imputerFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	statistics := make([]float64, len(file.Statistics))
	for i, value := range file.Statistics {
		if value == nil {
			return nil, fmt.Errorf("imputer statistic %d is null", i)
		}
		statistics[i] = *value
	}
	return NewSimpleImputer(file.Strategy, file.FeatureNames, statistics)
}

func (imp *SimpleImputer) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, err := checkColumns(x, len(imp.statistics))
	if err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(x)
	for i := 0; i < rows; i++ {
		for j, fill := range imp.statistics {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, fill)
			}
		}
	}
	return out, nil
}

func (imp *SimpleImputer) FeatureNames() []string {
	return append([]string(nil), imp.features...)
}

func (imp *SimpleImputer) Describe() string {
	strategy := imp.strategy
	if strategy == "" {
		strategy = "unspecified"
	}
	return fmt.Sprintf("simple imputer (strategy=%s)", strategy)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"potability/ml"
)

// DefaultLabelColumn is the ground-truth column of the training data.
const DefaultLabelColumn = "Potability"

type Options struct {
	// LabelColumn is dropped before inference when present. Empty disables the check.
	LabelColumn string
}

// Pipeline is stateless apart from the read-only artifacts and may be shared by goroutines.
type Pipeline struct {
	artifacts   *ml.Artifacts
	features    []string
	labelColumn string
}

func New(artifacts *ml.Artifacts, opt Options) *Pipeline {
	return &Pipeline{
		artifacts:   artifacts,
		features:    artifacts.FeatureNames(),
		labelColumn: opt.LabelColumn,
	}
}

// FeatureNames returns the columns the artifacts were fitted on, in fitted order.
func (p *Pipeline) FeatureNames() []string {
	return append([]string(nil), p.features...)
}

func (p *Pipeline) LabelColumn() string { return p.labelColumn }

// Predict annotates every row of in with a potability label and confidence.
// It either returns a result for all rows or an error; never a partial table.
func (p *Pipeline) Predict(ctx context.Context, in *Table) (*Result, error) {
	if in == nil || len(in.Rows) == 0 {
		return nil, &InputFormatError{Reason: "file contains a header but no data rows", Err: ErrNoRows}
	}

	positions, err := p.featurePositions(in)
	if err != nil {
		return nil, err
	}

	x, imputed, err := p.matrix(in, positions)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, err = p.artifacts.Imputer.Transform(x)
	if err != nil {
		return nil, &PreprocessingError{Stage: "impute", Err: err}
	}
	x, err = p.artifacts.Scaler.Transform(x)
	if err != nil {
		return nil, &PreprocessingError{Stage: "scale", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	probabilities, err := p.artifacts.Classifier.PredictProba(x)
	if err != nil {
		return nil, &PreprocessingError{Stage: "classify", Err: err}
	}
	if len(probabilities) != len(in.Rows) {
		return nil, &PreprocessingError{Stage: "classify", Err: fmt.Errorf("model returned %d predictions for %d rows", len(probabilities), len(in.Rows))}
	}

	result := &Result{
		Columns:     append(append([]string(nil), in.Columns...), PredictionColumn, ConfidenceColumn),
		Rows:        make([][]string, len(in.Rows)),
		Predictions: make([]Prediction, len(in.Rows)),
		Imputed:     imputed,
	}
	for i, probability := range probabilities {
		if math.IsNaN(probability) || probability < 0 || probability > 1 {
			return nil, &PreprocessingError{Stage: "classify", Row: i + 1, Err: fmt.Errorf("probability %v outside [0, 1]", probability)}
		}
		prediction := newPrediction(probability)
		result.Predictions[i] = prediction

		row := make([]string, 0, len(in.Columns)+2)
		row = append(row, in.Rows[i]...)
		row = append(row, prediction.Label, strconv.FormatFloat(prediction.Confidence, 'f', 2, 64))
		result.Rows[i] = row
	}
	return result, nil
}

func newPrediction(probability float64) Prediction {
	class := ml.ClassOf(probability)
	return Prediction{
		Class:       class,
		Label:       LabelFor(class),
		Probability: probability,
		Confidence:  math.RoundToEven(probability*100*100) / 100,
	}
}

// featurePositions maps each fitted feature to its column in the table.
func (p *Pipeline) featurePositions(in *Table) ([]int, error) {
	fitted := make(map[string]struct{}, len(p.features))
	for _, name := range p.features {
		fitted[name] = struct{}{}
	}
	for _, column := range in.Columns {
		if column == p.labelColumn && p.labelColumn != "" {
			continue
		}
		if _, ok := fitted[column]; !ok {
			return nil, &PreprocessingError{Stage: "schema", Column: column, Err: fmt.Errorf("%w: not one of the fitted features %v", ErrUnexpectedColumn, p.features)}
		}
	}

	positions := make([]int, len(p.features))
	var missing []string
	for i, name := range p.features {
		positions[i] = in.ColumnIndex(name)
		if positions[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &InputFormatError{Reason: fmt.Sprintf("missing required columns %v", missing), Err: ErrMissingColumn}
	}
	return positions, nil
}

// matrix parses the feature cells in fitted order. Missing cells become NaN and are counted.
func (p *Pipeline) matrix(in *Table, positions []int) (*mat.Dense, map[string]int, error) {
	x := mat.NewDense(len(in.Rows), len(positions), nil)
	imputed := make(map[string]int)
	for i, row := range in.Rows {
		if len(row) != len(in.Columns) {
			return nil, nil, &InputFormatError{Reason: fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(row), len(in.Columns))}
		}
		for j, pos := range positions {
			cell := row[pos]
			if IsMissing(cell) {
				x.Set(i, j, math.NaN())
				imputed[p.features[j]]++
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, nil, &PreprocessingError{Stage: "parse", Row: i + 1, Column: p.features[j], Err: fmt.Errorf("%w: %q", ErrNotNumeric, cell)}
			}
			if math.IsInf(value, 0) || math.IsNaN(value) {
				return nil, nil, &PreprocessingError{Stage: "parse", Row: i + 1, Column: p.features[j], Err: fmt.Errorf("value %q is not finite", cell)}
			}
			x.Set(i, j, value)
		}
	}
	return x, imputed, nil
}

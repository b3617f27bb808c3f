package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PositiveThreshold is the probability above which a row is assigned class 1.
const PositiveThreshold = 0.5

// Transformer is a fitted preprocessing step. Transform must not modify x.
type Transformer interface {
	Transform(x mat.Matrix) (*mat.Dense, error)
	FeatureNames() []string
}

// Classifier is a fitted binary model returning the positive-class probability per row.
type Classifier interface {
	PredictProba(x mat.Matrix) ([]float64, error)
}

// ClassOf maps a positive-class probability to the predicted class.
func ClassOf(probability float64) int {
	if probability > PositiveThreshold {
		return 1
	}
	return 0
}

// ArtifactLoadError reports a missing, corrupt or inconsistent artifact file.
type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load %s artifact: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

func checkColumns(x mat.Matrix, want int) (int, error) {
	rows, cols := x.Dims()
	if rows == 0 {
		return 0, errors.New("no rows to transform")
	}
	if cols != want {
		return 0, fmt.Errorf("expected %d features, got %d", want, cols)
	}
	return rows, nil
}

package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Scaler kinds. All of them apply (x - center) / scale with fitted vectors.
const (
	ScalerStandard = "standard"
	ScalerRobust   = "robust"
	ScalerMinMax   = "minmax"
)

type Scaler struct {
	kind     string
	features []string
	center   []float64
	scale    []float64
}

// scalerFile accepts the attribute names of the exporting toolkit:
// mean/scale (standard), center/scale (robust), data_min/data_range (minmax).
type scalerFile struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	Center       []float64 `json:"center"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	DataMin      []float64 `json:"data_min"`
	DataRange    []float64 `json:"data_range"`
}

func NewScaler(kind string, features []string, center, scale []float64) (*Scaler, error) {
	switch kind {
	case ScalerStandard, ScalerRobust, ScalerMinMax:
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", kind)
	}
	if len(features) == 0 {
		return nil, errors.New("scaler has no features")
	}
	if len(center) != len(features) || len(scale) != len(features) {
		return nil, fmt.Errorf("scaler has %d features, %d centers and %d scales", len(features), len(center), len(scale))
	}
	s := &Scaler{
		kind:     kind,
		features: append([]string(nil), features...),
		center:   append([]float64(nil), center...),
		scale:    make([]float64, len(scale)),
	}
	for i, v := range scale {
		if math.IsNaN(center[i]) || math.IsInf(center[i], 0) {
			return nil, fmt.Errorf("scaler center for %s is not finite", features[i])
		}
		// constant columns are fitted with zero spread and pass through centered
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

func LoadScaler(path string) (*Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file scalerFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	kind := file.Kind
	if kind == "" {
		kind = ScalerStandard
	}
	switch kind {
	case ScalerStandard:
		center := file.Mean
		if center == nil {
			center = file.Center
		}
		return NewScaler(kind, file.FeatureNames, center, file.Scale)
	case ScalerRobust:
		return NewScaler(kind, file.FeatureNames, file.Center, file.Scale)
	case ScalerMinMax:
		return NewScaler(kind, file.FeatureNames, file.DataMin, file.DataRange)
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", kind)
	}
}

func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, err := checkColumns(x, len(s.center))
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, len(s.center), nil)
	out.Apply(func(i, j int, _ float64) float64 {
		return (x.At(i, j) - s.center[j]) / s.scale[j]
	}, out)
	return out, nil
}

func (s *Scaler) FeatureNames() []string {
	return append([]string(nil), s.features...)
}

func (s *Scaler) Describe() string {
	return fmt.Sprintf("%s scaler", s.kind)
}

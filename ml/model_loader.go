package ml

import (
	"errors"
	"fmt"
	"slices"

	"potability/config"
)

const (
	ModelTypeXGBoost      = "xgboost"
	ModelTypeDecisionTree = "decision_tree"
)

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case ModelTypeXGBoost:
		return LoadGradientBoostedTrees(path)
	case ModelTypeDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}

// Artifacts is the read-only preprocessing and model context shared by all requests.
type Artifacts struct {
	Imputer    Transformer
	Scaler     Transformer
	Classifier Classifier

	features []string
	paths    []string
	watcher  *artifactWatcher
}

// Summary describes loaded artifacts for the CLI and the schema endpoint.
type Summary struct {
	Features   []string `json:"features"`
	Imputer    string   `json:"imputer"`
	Scaler     string   `json:"scaler"`
	Classifier string   `json:"classifier"`
}

// LoadArtifacts reads the imputer, scaler and model named by cfg.
// Every failure is an *ArtifactLoadError.
func LoadArtifacts(cfg config.ArtifactsConfig) (*Artifacts, error) {
	imputerPath, scalerPath, modelPath := cfg.ImputerPath(), cfg.ScalerPath(), cfg.ModelPath()

	imputer, err := LoadSimpleImputer(imputerPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "imputer", Path: imputerPath, Err: err}
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: scalerPath, Err: err}
	}
	classifier, err := LoadModel(cfg.ModelType, modelPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "model", Path: modelPath, Err: fmt.Errorf("%s: %w", cfg.ModelType, err)}
	}

	artifacts, err := NewArtifacts(imputer, scaler, classifier)
	if err != nil {
		return nil, err
	}
	artifacts.paths = []string{imputerPath, scalerPath, modelPath}
	return artifacts, nil
}

// NewArtifacts checks that the three artifacts were fitted on the same feature order.
func NewArtifacts(imputer, scaler Transformer, classifier Classifier) (*Artifacts, error) {
	if imputer == nil || scaler == nil || classifier == nil {
		return nil, &ArtifactLoadError{Artifact: "pipeline", Err: errors.New("imputer, scaler and classifier are required")}
	}
	features := imputer.FeatureNames()
	if len(features) == 0 {
		return nil, &ArtifactLoadError{Artifact: "imputer", Err: errors.New("no feature names recorded")}
	}
	if !slices.Equal(features, scaler.FeatureNames()) {
		return nil, &ArtifactLoadError{Artifact: "scaler", Err: fmt.Errorf("feature names %v do not match imputer %v", scaler.FeatureNames(), features)}
	}
	if named, ok := classifier.(interface{ FeatureNames() []string }); ok {
		if names := named.FeatureNames(); len(names) > 0 && !slices.Equal(names, features) {
			return nil, &ArtifactLoadError{Artifact: "model", Err: fmt.Errorf("feature names %v do not match imputer %v", names, features)}
		}
	}
	if counted, ok := classifier.(interface{ NumFeatures() int }); ok {
		if n := counted.NumFeatures(); n > 0 && n != len(features) {
			return nil, &ArtifactLoadError{Artifact: "model", Err: fmt.Errorf("model expects %d features, preprocessing yields %d", n, len(features))}
		}
	}
	return &Artifacts{
		Imputer:    imputer,
		Scaler:     scaler,
		Classifier: classifier,
		features:   features,
	}, nil
}

// FeatureNames returns the fitted column order.
func (a *Artifacts) FeatureNames() []string {
	return append([]string(nil), a.features...)
}

func (a *Artifacts) Summary() Summary {
	return Summary{
		Features:   a.FeatureNames(),
		Imputer:    describe(a.Imputer),
		Scaler:     describe(a.Scaler),
		Classifier: describe(a.Classifier),
	}
}

// Close stops the file watcher, if any.
func (a *Artifacts) Close() error {
	if a.watcher == nil {
		return nil
	}
	err := a.watcher.Close()
	a.watcher = nil
	return err
}

func describe(v any) string {
	if d, ok := v.(interface{ Describe() string }); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", v)
}

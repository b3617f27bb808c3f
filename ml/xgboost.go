package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// GradientBoostedTrees evaluates a binary XGBoost model saved in its JSON format.
type GradientBoostedTrees struct {
	features    []string
	numFeatures int
	baseMargin  float32
	trees       []boostedTree
}

type boostedTree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitValue  []float32
	defaultLeft []bool
}

type xgbModelFile struct {
	Learner struct {
		Attributes      map[string]string `json:"attributes"`
		FeatureNames    []string          `json:"feature_names"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Param struct {
					NumParallelTree string `json:"num_parallel_tree"`
				} `json:"gbtree_model_param"`
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		ModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float32 `json:"split_conditions"`
	SplitType       []int     `json:"split_type"`
	DefaultLeft     flexBools `json:"default_left"`
}

// flexBools decodes default_left, written as 0/1 or as booleans depending on the version.
type flexBools []bool

func (f *flexBools) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		switch string(item) {
		case "true", "1":
			out[i] = true
		case "false", "0":
			out[i] = false
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, item)
		}
	}
	*f = out
	return nil
}

func LoadGradientBoostedTrees(path string) (*GradientBoostedTrees, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGradientBoostedTrees(payload)
}

func ParseGradientBoostedTrees(payload []byte) (*GradientBoostedTrees, error) {
	var file xgbModelFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	learner := file.Learner

	switch learner.Objective.Name {
	case "binary:logistic", "reg:logistic":
	default:
		return nil, fmt.Errorf("unsupported objective %q", learner.Objective.Name)
	}
	if name := learner.GradientBooster.Name; name != "" && name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	if numClass := parseIntParam(learner.ModelParam.NumClass, 0); numClass > 2 {
		return nil, fmt.Errorf("multi-class model with %d classes is not a binary classifier", numClass)
	}

	baseScore, err := parseBaseScore(learner.ModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	if baseScore <= 0 || baseScore >= 1 {
		return nil, fmt.Errorf("base_score %v outside (0, 1)", baseScore)
	}

	numFeatures := parseIntParam(learner.ModelParam.NumFeature, len(learner.FeatureNames))
	if numFeatures <= 0 {
		return nil, errors.New("model does not record num_feature")
	}
	if len(learner.FeatureNames) > 0 && len(learner.FeatureNames) != numFeatures {
		return nil, fmt.Errorf("model lists %d feature names for %d features", len(learner.FeatureNames), numFeatures)
	}

	raw := learner.GradientBooster.Model.Trees
	if len(raw) == 0 {
		return nil, errors.New("model has no trees")
	}
	// predictions stop at the early-stopping round when one was recorded
	if best, ok := learner.Attributes["best_iteration"]; ok {
		iteration, err := strconv.Atoi(best)
		if err != nil {
			return nil, fmt.Errorf("best_iteration: %w", err)
		}
		parallel := parseIntParam(learner.GradientBooster.Model.Param.NumParallelTree, 1)
		if limit := (iteration + 1) * parallel; limit > 0 && limit < len(raw) {
			raw = raw[:limit]
		}
	}

	trees := make([]boostedTree, len(raw))
	for i, tree := range raw {
		parsed, err := newBoostedTree(tree, numFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = parsed
	}

	return &GradientBoostedTrees{
		features:    append([]string(nil), learner.FeatureNames...),
		numFeatures: numFeatures,
		baseMargin:  float32(math.Log(baseScore / (1 - baseScore))),
		trees:       trees,
	}, nil
}

func newBoostedTree(tree xgbTree, numFeatures int) (boostedTree, error) {
	n := len(tree.LeftChildren)
	if n == 0 {
		return boostedTree{}, errors.New("empty tree")
	}
	if len(tree.RightChildren) != n || len(tree.SplitIndices) != n || len(tree.SplitConditions) != n || len(tree.DefaultLeft) != n {
		return boostedTree{}, errors.New("node arrays differ in length")
	}
	for idx := 0; idx < n; idx++ {
		if idx < len(tree.SplitType) && tree.SplitType[idx] != 0 {
			return boostedTree{}, fmt.Errorf("node %d: categorical splits are not supported", idx)
		}
		left, right := tree.LeftChildren[idx], tree.RightChildren[idx]
		if left == -1 {
			continue
		}
		// children are always stored after their parent, which also rules out cycles
		if left <= idx || right <= idx || left >= n || right >= n {
			return boostedTree{}, fmt.Errorf("node %d: invalid children %d/%d", idx, left, right)
		}
		if f := tree.SplitIndices[idx]; f < 0 || f >= numFeatures {
			return boostedTree{}, fmt.Errorf("node %d: feature index %d out of range", idx, f)
		}
	}
	return boostedTree{
		left:        tree.LeftChildren,
		right:       tree.RightChildren,
		splitIndex:  tree.SplitIndices,
		splitValue:  tree.SplitConditions,
		defaultLeft: tree.DefaultLeft,
	}, nil
}

// leaf routes a row the way xgboost does: features are narrowed to float32
// before the comparison, so a value may land exactly on a split and go right.
func (t *boostedTree) leaf(row []float64) float32 {
	idx := 0
	for t.left[idx] != -1 {
		value := row[t.splitIndex[idx]]
		switch {
		case math.IsNaN(value):
			if t.defaultLeft[idx] {
				idx = t.left[idx]
			} else {
				idx = t.right[idx]
			}
		case float32(value) < t.splitValue[idx]:
			idx = t.left[idx]
		default:
			idx = t.right[idx]
		}
	}
	return t.splitValue[idx]
}

// Margin returns the raw log-odds for one row, accumulated in float32.
func (m *GradientBoostedTrees) Margin(row []float64) float32 {
	margin := m.baseMargin
	for i := range m.trees {
		margin += m.trees[i].leaf(row)
	}
	return margin
}

func (m *GradientBoostedTrees) PredictProba(x mat.Matrix) ([]float64, error) {
	rows, err := checkColumns(x, m.numFeatures)
	if err != nil {
		return nil, err
	}
	probabilities := make([]float64, rows)
	row := make([]float64, m.numFeatures)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, x)
		probabilities[i] = sigmoid(m.Margin(row))
	}
	return probabilities, nil
}

func (m *GradientBoostedTrees) FeatureNames() []string {
	return append([]string(nil), m.features...)
}

func (m *GradientBoostedTrees) NumFeatures() int { return m.numFeatures }

func (m *GradientBoostedTrees) Describe() string {
	return fmt.Sprintf("xgboost binary:logistic (%d trees)", len(m.trees))
}

// sigmoid rounds to float32 like predict_proba does.
func sigmoid(margin float32) float64 {
	return float64(float32(1 / (1 + math.Exp(-float64(margin)))))
}

// parseBaseScore accepts "5E-1" and the bracketed "[5E-1]" written by newer releases.
func parseBaseScore(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "[]"))
	if raw == "" {
		return 0.5, nil
	}
	value, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("base_score: %w", err)
	}
	return value, nil
}

func parseIntParam(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

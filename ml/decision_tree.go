package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// DecisionTree is a single fitted tree stored as a flat pre-order node list.
type DecisionTree struct {
	nodes       []TreeNode
	numFeatures int
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	Probability float64 `json:"probability"`
	IsLeaf      bool    `json:"is_leaf"`
}

type decisionTreeFile struct {
	NumFeatures int        `json:"num_features"`
	Nodes       []TreeNode `json:"nodes"`
}

func NewDecisionTree(nodes []TreeNode, numFeatures int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for idx, node := range nodes {
		if node.IsLeaf {
			if math.IsNaN(node.Probability) || node.Probability < 0 || node.Probability > 1 {
				return nil, fmt.Errorf("node %d: leaf probability %v outside [0, 1]", idx, node.Probability)
			}
			continue
		}
		if node.LeftChild <= idx || node.RightChild <= idx || node.LeftChild >= len(nodes) || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid children %d/%d", idx, node.LeftChild, node.RightChild)
		}
		if node.FeatureIdx < 0 || (numFeatures > 0 && node.FeatureIdx >= numFeatures) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", idx, node.FeatureIdx)
		}
	}
	return &DecisionTree{nodes: append([]TreeNode(nil), nodes...), numFeatures: numFeatures}, nil
}

// Predict returns the class and positive-class probability for one row.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, errors.New("model not loaded")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return ClassOf(node.Probability), node.Probability, nil
		}
		if node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) PredictProba(x mat.Matrix) ([]float64, error) {
	rows, cols := x.Dims()
	if dt.numFeatures > 0 {
		if _, err := checkColumns(x, dt.numFeatures); err != nil {
			return nil, err
		}
	}
	probabilities := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, x)
		_, probability, err := dt.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		probabilities[i] = probability
	}
	return probabilities, nil
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file decisionTreeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	loaded, err := NewDecisionTree(file.Nodes, file.NumFeatures)
	if err != nil {
		return err
	}
	*dt = *loaded
	return nil
}

func (dt *DecisionTree) NumFeatures() int { return dt.numFeatures }

func (dt *DecisionTree) Describe() string {
	leaves := 0
	for _, node := range dt.nodes {
		if node.IsLeaf {
			leaves++
		}
	}
	return fmt.Sprintf("decision tree (%d nodes, %d leaves)", len(dt.nodes), leaves)
}

package ml

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDecisionTreePredict(t *testing.T) {
	model, err := NewDecisionTree([]TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Probability: 0.25},
		{IsLeaf: true, Probability: 0.8},
	}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, probability, err := model.Predict([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 || probability != 0.25 {
		t.Fatalf("expected (0, 0.25), got (%d, %v)", label, probability)
	}

	probabilities, err := model.PredictProba(mat.NewDense(2, 2, []float64{0.5, 0, 0.9, 0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probabilities[0] != 0.25 || probabilities[1] != 0.8 {
		t.Fatalf("unexpected probabilities %v", probabilities)
	}
}

func TestDecisionTreeRejectsInvalidNodes(t *testing.T) {
	cases := map[string][]TreeNode{
		"empty":       nil,
		"cycle":       {{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true}},
		"outOfRange":  {{FeatureIdx: 0, LeftChild: 1, RightChild: 5}, {IsLeaf: true}},
		"feature":     {{FeatureIdx: 3, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true}},
		"probability": {{IsLeaf: true, Probability: 1.5}},
	}
	for name, nodes := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDecisionTree(nodes, 2); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecisionTreeLoad(t *testing.T) {
	model := &DecisionTree{}
	if err := model.Load(filepath.Join("..", "testdata", "artifacts", "decision_tree.json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.NumFeatures() != 9 {
		t.Fatalf("expected 9 features, got %d", model.NumFeatures())
	}

	broken := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(broken, []byte(`{"nodes": [`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := model.Load(broken); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

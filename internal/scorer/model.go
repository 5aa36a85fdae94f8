// Package scorer evaluates a pre-trained decision-tree classifier over
// indicator feature vectors. The model is exported offline as a JSON
// artifact; no training happens here.
package scorer

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// leafNode marks a node with no children in the flattened tree arrays.
const leafNode = -1

// artifact is the on-disk model layout: a feature name list plus the
// flattened tree arrays, one entry per node. A node is a leaf when both
// child indices are -1; Value holds per-class sample counts
// [not-bullish, bullish].
type artifact struct {
	FeatureNames  []string    `json:"feature_names"`
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Model is a loaded, validated decision tree.
type Model struct {
	art      artifact
	features []string
}

// Load reads and validates a model artifact. A missing file is an error
// the caller should treat as fatal; scanning without a model is not
// meaningful.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}

	if err := validate(art); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}

	return &Model{art: art, features: art.FeatureNames}, nil
}

func validate(art artifact) error {
	if len(art.FeatureNames) == 0 {
		return fmt.Errorf("no feature names")
	}

	n := len(art.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	for name, l := range map[string]int{
		"children_right": len(art.ChildrenRight),
		"feature":        len(art.Feature),
		"threshold":      len(art.Threshold),
		"value":          len(art.Value),
	} {
		if l != n {
			return fmt.Errorf("%s has %d entries, want %d", name, l, n)
		}
	}

	for i := 0; i < n; i++ {
		left, right := art.ChildrenLeft[i], art.ChildrenRight[i]
		if (left == leafNode) != (right == leafNode) {
			return fmt.Errorf("node %d: half-leaf (left=%d right=%d)", i, left, right)
		}
		if left == leafNode {
			if len(art.Value[i]) != 2 {
				return fmt.Errorf("leaf %d: value has %d classes, want 2", i, len(art.Value[i]))
			}
			continue
		}
		if left < 0 || left >= n || right < 0 || right >= n {
			return fmt.Errorf("node %d: child index out of range", i)
		}
		if f := art.Feature[i]; f < 0 || f >= len(art.FeatureNames) {
			return fmt.Errorf("node %d: feature index %d out of range", i, f)
		}
	}

	return nil
}

// FeatureNames returns the feature schema the model was trained on, in
// artifact order.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

// Score walks the tree for one feature vector and returns the bullish
// probability in [0,1]. The vector's key set must match the artifact's
// schema exactly; a mismatch is an error rather than a silent default.
func (m *Model) Score(features map[string]float64) (float64, error) {
	if err := m.checkSchema(features); err != nil {
		return 0, err
	}

	node := 0
	for m.art.ChildrenLeft[node] != leafNode {
		v := features[m.features[m.art.Feature[node]]]
		if v <= m.art.Threshold[node] {
			node = m.art.ChildrenLeft[node]
		} else {
			node = m.art.ChildrenRight[node]
		}
	}

	counts := m.art.Value[node]
	total := counts[0] + counts[1]
	if total == 0 {
		return 0, fmt.Errorf("leaf %d has no samples", node)
	}
	return counts[1] / total, nil
}

func (m *Model) checkSchema(features map[string]float64) error {
	if len(features) == len(m.features) {
		ok := true
		for _, name := range m.features {
			if _, present := features[name]; !present {
				ok = false
				break
			}
		}
		if ok {
			return nil
		}
	}

	got := make([]string, 0, len(features))
	for k := range features {
		got = append(got, k)
	}
	sort.Strings(got)
	return fmt.Errorf("feature schema mismatch: got %v, want %v", got, m.features)
}

package scorer

import (
	"os"
	"path/filepath"
	"testing"
)

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := Load(filepath.Join("testdata", "model.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m
}

func vector(rsi, macd, macdSignal, ema5, ema20, volume float64) map[string]float64 {
	return map[string]float64{
		"rsi":         rsi,
		"macd":        macd,
		"macd_signal": macdSignal,
		"ema5":        ema5,
		"ema20":       ema20,
		"volume":      volume,
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.json")); err == nil {
		t.Error("Load() on a missing artifact expected error")
	}
}

func TestLoad_MalformedArtifact(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"feature_names": [`},
		{"no features", `{"feature_names": [], "children_left": [-1], "children_right": [-1], "feature": [-2], "threshold": [-2], "value": [[1,1]]}`},
		{"length mismatch", `{"feature_names": ["rsi"], "children_left": [-1, -1], "children_right": [-1], "feature": [-2], "threshold": [-2], "value": [[1,1]]}`},
		{"child out of range", `{"feature_names": ["rsi"], "children_left": [9], "children_right": [9], "feature": [0], "threshold": [50], "value": [[1,1]]}`},
		{"feature out of range", `{"feature_names": ["rsi"], "children_left": [1, -1, -1], "children_right": [2, -1, -1], "feature": [3, -2, -2], "threshold": [50, -2, -2], "value": [[2,2],[1,1],[1,1]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestModel_FeatureNames(t *testing.T) {
	m := loadTestModel(t)

	names := m.FeatureNames()
	want := []string{"rsi", "macd", "macd_signal", "ema5", "ema20", "volume"}
	if len(names) != len(want) {
		t.Fatalf("FeatureNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("FeatureNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	// Mutating the returned slice must not touch the model
	names[0] = "mutated"
	if m.FeatureNames()[0] != "rsi" {
		t.Error("FeatureNames() must return a copy")
	}
}

func TestModel_Score(t *testing.T) {
	m := loadTestModel(t)

	tests := []struct {
		name     string
		features map[string]float64
		want     float64
	}{
		{"oversold leaf", vector(30, 1, 0.5, 12, 10, 800000), 0.8},
		{"thin volume leaf", vector(60, -1, -1.2, 9, 11, 300000), 0.0},
		{"mixed leaf", vector(60, 0.3, 0.2, 10.5, 10, 900000), 0.5},
		{"threshold boundary goes left", vector(40, 0, 0, 0, 0, 0), 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Score(tt.features)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_ScoreSchemaMismatch(t *testing.T) {
	m := loadTestModel(t)

	missing := vector(30, 1, 0.5, 12, 10, 800000)
	delete(missing, "volume")
	if _, err := m.Score(missing); err == nil {
		t.Error("Score() with a missing feature expected error")
	}

	extra := vector(30, 1, 0.5, 12, 10, 800000)
	extra["bb_upper"] = 1
	if _, err := m.Score(extra); err == nil {
		t.Error("Score() with an extra feature expected error")
	}

	renamed := vector(30, 1, 0.5, 12, 10, 800000)
	delete(renamed, "volume")
	renamed["vol"] = 800000
	if _, err := m.Score(renamed); err == nil {
		t.Error("Score() with a renamed feature expected error")
	}
}

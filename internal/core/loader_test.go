package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureArtifact(t *testing.T) map[string]any {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", "pipeline_scaler_pca_logreg.json"))
	require.NoError(t, err)

	var artifact map[string]any
	require.NoError(t, json.Unmarshal(data, &artifact))
	return artifact
}

func loadMutated(t *testing.T, mutate func(map[string]any)) error {
	t.Helper()

	artifact := fixtureArtifact(t)
	mutate(artifact)

	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	_, err = LoadPipelineBytes(data)
	return err
}

func TestLoadPipeline(t *testing.T) {
	pipeline, err := LoadPipeline(filepath.Join("testdata", "pipeline_scaler_pca_logreg.json"))
	require.NoError(t, err)

	assert.Equal(t, ArtifactFormatVersion, pipeline.FormatVersion)
	assert.Equal(t, FeatureNames(), pipeline.FeatureNames)
	assert.Equal(t, []int{0, 1}, pipeline.Classes)
	assert.Equal(t, []string{"malignant", "benign"}, pipeline.TargetNames)
}

func TestLoadPipelineMissingFile(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "no-such-artifact.json"))
	assert.Error(t, err)
}

func TestLoadPipelineCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadPipeline(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestLoadPipelineValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"unsupported format version", func(a map[string]any) { a["format_version"] = 99 }},
		{"wrong feature count", func(a map[string]any) {
			a["feature_names"] = a["feature_names"].([]any)[:29]
		}},
		{"renamed feature", func(a map[string]any) {
			names := a["feature_names"].([]any)
			names[0] = "radius"
		}},
		{"reordered features", func(a map[string]any) {
			names := a["feature_names"].([]any)
			names[0], names[1] = names[1], names[0]
		}},
		{"scaler dimension mismatch", func(a map[string]any) {
			scaler := a["scaler"].(map[string]any)
			scaler["mean"] = scaler["mean"].([]any)[:10]
		}},
		{"zero scale", func(a map[string]any) {
			scaler := a["scaler"].(map[string]any)
			scaler["scale"].([]any)[4] = 0.0
		}},
		{"pca component width mismatch", func(a map[string]any) {
			pca := a["pca"].(map[string]any)
			components := pca["components"].([]any)
			components[0] = components[0].([]any)[:12]
		}},
		{"no pca components", func(a map[string]any) {
			a["pca"].(map[string]any)["components"] = []any{}
		}},
		{"coefficient count mismatch", func(a map[string]any) {
			a["logreg"].(map[string]any)["coef"] = []float64{1, 2, 3}
		}},
		{"not binary", func(a map[string]any) { a["classes"] = []int{0, 1, 2} }},
		{"duplicate classes", func(a map[string]any) { a["classes"] = []int{1, 1} }},
		{"target name count mismatch", func(a map[string]any) {
			a["target_names"] = []string{"malignant"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadMutated(t, tt.mutate)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid pipeline artifact")
		})
	}
}

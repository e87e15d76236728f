package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultArtifactPath is where both entry points look for the serialized
// pipeline when no path is configured.
const DefaultArtifactPath = "pipeline_scaler_pca_logreg.json"

// LoadPipeline reads and validates a serialized pipeline artifact. Loading
// happens once per process, eagerly, before any input is collected; callers
// treat any error as fatal since nothing works without a model.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading pipeline artifact %s: %w", path, err)
	}

	pipeline, err := LoadPipelineBytes(data)
	if err != nil {
		return nil, fmt.Errorf("error loading pipeline artifact %s: %w", path, err)
	}
	return pipeline, nil
}

// LoadPipelineBytes decodes a pipeline artifact from its raw JSON bytes.
func LoadPipelineBytes(data []byte) (*Pipeline, error) {
	var pipeline Pipeline
	if err := json.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("error decoding pipeline artifact: %w", err)
	}

	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline artifact: %w", err)
	}

	return &pipeline, nil
}

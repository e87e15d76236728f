package main

import (
	"fmt"
	"log"
	"os"

	"bcd-backend/internal/core"
)

// Scores a single all-zero sample against the trained pipeline, mirroring the
// smoke check data scientists run after exporting a new artifact.
func main() {
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = core.DefaultArtifactPath
	}

	pipeline, err := core.LoadPipeline(modelPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline artifact: %v", err)
	}

	frame := core.ZeroFrame()

	pred, err := pipeline.Predict(frame)
	if err != nil {
		log.Fatalf("Failed to classify sample: %v", err)
	}

	probs, err := pipeline.PredictProba(frame)
	if err != nil {
		log.Fatalf("Failed to compute probabilities: %v", err)
	}

	fmt.Println("Prediction:", pred)
	fmt.Println("Probability:", probs)
}

package core

import (
	"fmt"
	"math"
)

// ArtifactFormatVersion is the only artifact layout this build understands.
const ArtifactFormatVersion = 1

// ScalerParams standardizes each feature: (x - Mean) / Scale.
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// PCAParams projects a standardized sample onto the trained components:
// Components is a k×n matrix, one row per retained component.
type PCAParams struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

// LogRegParams is a binary logistic regression over the projected components.
// sigmoid(Coef·x + Intercept) is the probability of Classes[1].
type LogRegParams struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Pipeline is a pre-trained scaling → PCA → logistic-regression classifier
// deserialized from an artifact. It is read-only after load and therefore safe
// for concurrent use without locking.
type Pipeline struct {
	FormatVersion int      `json:"format_version"`
	FeatureNames  []string `json:"feature_names"`
	Classes       []int    `json:"classes"`
	TargetNames   []string `json:"target_names"`

	Scaler ScalerParams `json:"scaler"`
	PCA    PCAParams    `json:"pca"`
	LogReg LogRegParams `json:"logreg"`
}

// Result is one classification: the predicted class, its human-readable
// diagnosis from the artifact's target-name table, the probability of the
// predicted class, and the full probability vector aligned with Classes.
type Result struct {
	Class         int
	Diagnosis     string
	Probability   float64
	Probabilities []float64
}

// Validate checks internal dimension consistency and that the artifact was
// trained on exactly the shared feature schema, in the same order.
func (p *Pipeline) Validate() error {
	if p.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("unsupported artifact format version %d (want %d)", p.FormatVersion, ArtifactFormatVersion)
	}

	if len(p.FeatureNames) != len(featureNames) {
		return fmt.Errorf("artifact has %d features, schema has %d", len(p.FeatureNames), len(featureNames))
	}
	for i, name := range featureNames {
		if p.FeatureNames[i] != name {
			return fmt.Errorf("artifact feature %d is %q, schema expects %q", i, p.FeatureNames[i], name)
		}
	}

	n := len(p.FeatureNames)
	if len(p.Scaler.Mean) != n || len(p.Scaler.Scale) != n {
		return fmt.Errorf("scaler has %d/%d parameters for %d features", len(p.Scaler.Mean), len(p.Scaler.Scale), n)
	}
	for i, s := range p.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler scale is zero for feature %q", p.FeatureNames[i])
		}
	}

	if len(p.PCA.Mean) != n {
		return fmt.Errorf("pca mean has %d entries for %d features", len(p.PCA.Mean), n)
	}
	if len(p.PCA.Components) == 0 {
		return fmt.Errorf("pca has no components")
	}
	for i, row := range p.PCA.Components {
		if len(row) != n {
			return fmt.Errorf("pca component %d has %d entries for %d features", i, len(row), n)
		}
	}

	if len(p.LogReg.Coef) != len(p.PCA.Components) {
		return fmt.Errorf("logreg has %d coefficients for %d components", len(p.LogReg.Coef), len(p.PCA.Components))
	}

	if len(p.Classes) != 2 || p.Classes[0] == p.Classes[1] {
		return fmt.Errorf("artifact must define exactly two distinct classes, got %v", p.Classes)
	}
	if len(p.TargetNames) != len(p.Classes) {
		return fmt.Errorf("artifact has %d target names for %d classes", len(p.TargetNames), len(p.Classes))
	}

	return nil
}

// Predict returns the predicted class label for one sample.
func (p *Pipeline) Predict(frame *Frame) (int, error) {
	probs, err := p.PredictProba(frame)
	if err != nil {
		return 0, err
	}

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return p.Classes[best], nil
}

// PredictProba returns the per-class probability vector for one sample,
// aligned positionally with Classes.
func (p *Pipeline) PredictProba(frame *Frame) ([]float64, error) {
	if err := p.checkFrame(frame); err != nil {
		return nil, err
	}

	projected := p.transform(frame.Values())

	score := p.LogReg.Intercept
	for i, c := range p.LogReg.Coef {
		score += c * projected[i]
	}

	positive := sigmoid(score)
	return []float64{1 - positive, positive}, nil
}

// Classify runs Predict and PredictProba on the same sample and selects the
// probability at the index of the predicted class. Two full passes through the
// pipeline, which is fine for the one-row-per-call usage here.
func (p *Pipeline) Classify(frame *Frame) (Result, error) {
	class, err := p.Predict(frame)
	if err != nil {
		return Result{}, err
	}
	probs, err := p.PredictProba(frame)
	if err != nil {
		return Result{}, err
	}

	idx := p.classIndex(class)
	return Result{
		Class:         class,
		Diagnosis:     p.TargetNames[idx],
		Probability:   probs[idx],
		Probabilities: probs,
	}, nil
}

// checkFrame rejects samples whose columns disagree with the trained feature
// order. A mismatched sample would otherwise produce a garbage prediction
// with no indication anything went wrong.
func (p *Pipeline) checkFrame(frame *Frame) error {
	columns := frame.Columns()
	if len(columns) != len(p.FeatureNames) {
		return fmt.Errorf("sample has %d columns, pipeline was trained on %d", len(columns), len(p.FeatureNames))
	}
	for i, name := range p.FeatureNames {
		if columns[i] != name {
			return fmt.Errorf("sample column %d is %q, pipeline was trained on %q", i, columns[i], name)
		}
	}
	return nil
}

func (p *Pipeline) transform(values []float64) []float64 {
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = (v-p.Scaler.Mean[i])/p.Scaler.Scale[i] - p.PCA.Mean[i]
	}

	projected := make([]float64, len(p.PCA.Components))
	for i, component := range p.PCA.Components {
		var dot float64
		for j, c := range component {
			dot += c * scaled[j]
		}
		projected[i] = dot
	}
	return projected
}

func (p *Pipeline) classIndex(class int) int {
	for i, c := range p.Classes {
		if c == class {
			return i
		}
	}
	return 0 // unreachable for validated artifacts
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

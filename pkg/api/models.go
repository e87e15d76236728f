package api

import (
	"time"

	"github.com/google/uuid"
)

type SchemaResponse struct {
	FeatureNames []string
	TargetNames  []string
}

type PredictRequest struct {
	Inputs map[string]float64
}

type PredictResponse struct {
	PredictionId uuid.UUID

	Class       int
	Diagnosis   string
	Probability float64

	// Probabilities holds [P(malignant), P(benign)] in target order.
	Probabilities []float64
}

type Prediction struct {
	Id uuid.UUID

	CreationTime time.Time

	Inputs map[string]float64

	Class       int
	Diagnosis   string
	Probability float64
}

type ListPredictionsResponse struct {
	Predictions []Prediction
}

type SubmitScoreJobRequest struct {
	SourceBucket string
	SourceKey    string
}

type SubmitScoreJobResponse struct {
	JobId uuid.UUID
}

type ScoreJob struct {
	Id uuid.UUID

	Status string

	SourceBucket string
	SourceKey    string
	ResultKey    string `json:"ResultKey,omitempty"`

	TotalRows     int
	BenignRows    int
	MalignantRows int
	FailedRows    int

	CreationTime   time.Time
	StartTime      *time.Time `json:"StartTime,omitempty"`
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`

	Error string `json:"Error,omitempty"`
}

type ListScoreJobsResponse struct {
	Jobs []ScoreJob
}

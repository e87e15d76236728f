package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"bcd-backend/internal/core"
	"bcd-backend/internal/database"
	"bcd-backend/internal/messaging"
	"bcd-backend/internal/storage"
	"bcd-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PredictionService struct {
	db        *gorm.DB
	storage   storage.Provider
	publisher messaging.Publisher

	pipeline   *core.Pipeline
	dataBucket string
}

func NewPredictionService(db *gorm.DB, storage storage.Provider, publisher messaging.Publisher, pipeline *core.Pipeline, dataBucket string) *PredictionService {
	return &PredictionService{
		db:         db,
		storage:    storage,
		publisher:  publisher,
		pipeline:   pipeline,
		dataBucket: dataBucket,
	}
}

func (s *PredictionService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/schema", RestHandler(s.GetSchema))
	r.Post("/predict", RestHandler(s.Predict))
	r.Route("/predictions", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListPredictions))
		r.Get("/{prediction_id}", RestHandler(s.GetPrediction))
	})
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", RestHandler(s.SubmitScoreJob))
		r.Get("/", RestHandler(s.ListScoreJobs))
		r.Get("/{job_id}", RestHandler(s.GetScoreJob))
		r.Get("/{job_id}/result", s.DownloadScoreJobResult)
	})
}

func (s *PredictionService) GetSchema(r *http.Request) (any, error) {
	return api.SchemaResponse{
		FeatureNames: s.pipeline.FeatureNames,
		TargetNames:  s.pipeline.TargetNames,
	}, nil
}

func (s *PredictionService) Predict(r *http.Request) (any, error) {
	req, err := ParseRequest[api.PredictRequest](r)
	if err != nil {
		return nil, err
	}

	frame, err := core.FrameFromInputs(req.Inputs)
	if err != nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid sample: %v", err)
	}

	result, err := s.pipeline.Classify(frame)
	if err != nil {
		slog.Error("error classifying sample", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error classifying sample")
	}

	ctx := r.Context()

	inputs, err := json.Marshal(req.Inputs)
	if err != nil {
		slog.Error("error serializing prediction inputs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error recording prediction")
	}

	prediction := database.Prediction{
		Id:           uuid.New(),
		CreationTime: time.Now().UTC(),
		Inputs:       inputs,
		Class:        result.Class,
		Diagnosis:    result.Diagnosis,
		Probability:  result.Probability,
	}

	if err := s.db.WithContext(ctx).Create(&prediction).Error; err != nil {
		slog.Error("error creating prediction record", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error recording prediction")
	}

	slog.Info("classified sample", "prediction_id", prediction.Id, "diagnosis", result.Diagnosis)

	return api.PredictResponse{
		PredictionId:  prediction.Id,
		Class:         result.Class,
		Diagnosis:     result.Diagnosis,
		Probability:   result.Probability,
		Probabilities: result.Probabilities,
	}, nil
}

type listParams struct {
	Limit int
}

func (s *PredictionService) ListPredictions(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[listParams](r)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 100
	}

	var predictions []database.Prediction
	if err := s.db.WithContext(r.Context()).Order("creation_time DESC").Limit(params.Limit).Find(&predictions).Error; err != nil {
		slog.Error("error listing predictions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving prediction records")
	}

	return api.ListPredictionsResponse{Predictions: convertPredictions(predictions)}, nil
}

func (s *PredictionService) GetPrediction(r *http.Request) (any, error) {
	predictionId, err := URLParamUUID(r, "prediction_id")
	if err != nil {
		return nil, err
	}

	var prediction database.Prediction
	if err := s.db.WithContext(r.Context()).First(&prediction, "id = ?", predictionId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "prediction not found")
		}
		slog.Error("error getting prediction", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving prediction record")
	}

	return convertPrediction(prediction), nil
}

func (s *PredictionService) SubmitScoreJob(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SubmitScoreJobRequest](r)
	if err != nil {
		return nil, err
	}

	if req.SourceKey == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required field: SourceKey")
	}
	if req.SourceBucket == "" {
		req.SourceBucket = s.dataBucket
	}

	ctx := r.Context()

	job := database.BatchJob{
		Id:           uuid.New(),
		Status:       database.JobQueued,
		SourceBucket: req.SourceBucket,
		SourceKey:    req.SourceKey,
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		slog.Error("error creating batch job", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create batch job entry")
	}

	if err := s.publisher.PublishScoreJob(ctx, messaging.ScoreJobPayload{JobId: job.Id}); err != nil {
		slog.Error("error publishing score job", "job_id", job.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue score job")
	}

	slog.Info("submitted score job", "job_id", job.Id, "source", req.SourceBucket+"/"+req.SourceKey)

	return api.SubmitScoreJobResponse{JobId: job.Id}, nil
}

func (s *PredictionService) ListScoreJobs(r *http.Request) (any, error) {
	var jobs []database.BatchJob
	if err := s.db.WithContext(r.Context()).Order("creation_time DESC").Find(&jobs).Error; err != nil {
		slog.Error("error listing batch jobs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving batch job records")
	}

	return api.ListScoreJobsResponse{Jobs: convertScoreJobs(jobs)}, nil
}

func (s *PredictionService) GetScoreJob(r *http.Request) (any, error) {
	jobId, err := URLParamUUID(r, "job_id")
	if err != nil {
		return nil, err
	}

	var job database.BatchJob
	if err := s.db.WithContext(r.Context()).First(&job, "id = ?", jobId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "batch job not found")
		}
		slog.Error("error getting batch job", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving batch job record")
	}

	return convertScoreJob(job), nil
}

// DownloadScoreJobResult streams the scored CSV for a completed job. It is a
// plain handler rather than a RestHandler because the body is the object
// stream, not JSON.
func (s *PredictionService) DownloadScoreJobResult(w http.ResponseWriter, r *http.Request) {
	jobId, err := URLParamUUID(r, "job_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var job database.BatchJob
	if err := s.db.WithContext(r.Context()).First(&job, "id = ?", jobId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "batch job not found", http.StatusNotFound)
			return
		}
		slog.Error("error getting batch job", "error", err)
		http.Error(w, "error retrieving batch job record", http.StatusInternalServerError)
		return
	}

	if job.Status != database.JobCompleted || !job.ResultKey.Valid {
		http.Error(w, "batch job has no result", http.StatusConflict)
		return
	}

	object, err := s.storage.GetObjectStream(r.Context(), s.dataBucket, job.ResultKey.String)
	if err != nil {
		slog.Error("error opening job result", "job_id", job.Id, "error", err)
		http.Error(w, "error retrieving job result", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Id.String()+".csv"))
	if _, err := io.Copy(w, object); err != nil {
		slog.Error("error streaming job result", "job_id", job.Id, "error", err)
	}
}

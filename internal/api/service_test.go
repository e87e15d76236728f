package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	backend "bcd-backend/internal/api"
	"bcd-backend/internal/core"
	"bcd-backend/internal/database"
	"bcd-backend/internal/messaging"
	"bcd-backend/internal/storage"
	"bcd-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func loadTestPipeline(t *testing.T) *core.Pipeline {
	t.Helper()
	pipeline, err := core.LoadPipeline(filepath.Join("..", "core", "testdata", "pipeline_scaler_pca_logreg.json"))
	require.NoError(t, err)
	return pipeline
}

func createRouter(t *testing.T, db *gorm.DB, queue *messaging.InMemoryQueue) chi.Router {
	t.Helper()
	service := backend.NewPredictionService(db, storage.NewLocalProvider(t.TempDir()), queue, loadTestPipeline(t), "data")
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func TestHealth(t *testing.T) {
	router := createRouter(t, createDB(t), messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetSchema(t *testing.T) {
	router := createRouter(t, createDB(t), messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/schema", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response api.SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, core.FeatureNames(), response.FeatureNames)
	assert.Equal(t, []string{"malignant", "benign"}, response.TargetNames)
}

func TestPredict(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	inputs := make(map[string]float64, core.NumFeatures())
	for _, name := range core.FeatureNames() {
		inputs[name] = 0
	}
	inputs["mean radius"] = 1

	body, err := json.Marshal(api.PredictRequest{Inputs: inputs})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "recieved response: "+rec.Body.String())
	var response api.PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEqual(t, uuid.Nil, response.PredictionId)
	assert.Equal(t, 1, response.Class)
	assert.Equal(t, "benign", response.Diagnosis)
	assert.InDelta(t, 0.7310585786300049, response.Probability, 1e-9)
	require.Len(t, response.Probabilities, 2)

	var stored database.Prediction
	require.NoError(t, db.First(&stored, "id = ?", response.PredictionId).Error)
	assert.Equal(t, "benign", stored.Diagnosis)
}

func TestPredictRejectsIncompleteInputs(t *testing.T) {
	router := createRouter(t, createDB(t), messaging.NewInMemoryQueue())

	body, err := json.Marshal(api.PredictRequest{Inputs: map[string]float64{"mean radius": 1}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing feature")
}

func TestListAndGetPredictions(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	db := createDB(t,
		&database.Prediction{Id: id1, CreationTime: time.Now().UTC(), Inputs: []byte(`{"mean radius":1}`), Class: 1, Diagnosis: "benign", Probability: 0.9},
		&database.Prediction{Id: id2, CreationTime: time.Now().UTC().Add(time.Second), Inputs: []byte(`{"mean radius":2}`), Class: 0, Diagnosis: "malignant", Probability: 0.8},
	)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/predictions/", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response api.ListPredictionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Predictions, 2)
	assert.Equal(t, id2, response.Predictions[0].Id) // newest first
	assert.Equal(t, id1, response.Predictions[1].Id)

	req = httptest.NewRequest(http.MethodGet, "/predictions/"+id1.String(), nil)
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var prediction api.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prediction))
	assert.Equal(t, id1, prediction.Id)
	assert.Equal(t, "benign", prediction.Diagnosis)
	assert.Equal(t, map[string]float64{"mean radius": 1}, prediction.Inputs)
}

func TestGetPredictionNotFound(t *testing.T) {
	router := createRouter(t, createDB(t), messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/predictions/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitScoreJob(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()
	router := createRouter(t, db, queue)

	body, err := json.Marshal(api.SubmitScoreJobRequest{SourceKey: "uploads/samples.csv"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/jobs/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "recieved response: "+rec.Body.String())
	var response api.SubmitScoreJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEqual(t, uuid.Nil, response.JobId)

	var job database.BatchJob
	require.NoError(t, db.First(&job, "id = ?", response.JobId).Error)
	assert.Equal(t, database.JobQueued, job.Status)
	assert.Equal(t, "data", job.SourceBucket)
	assert.Equal(t, "uploads/samples.csv", job.SourceKey)

	select {
	case task := <-queue.Tasks():
		assert.Equal(t, messaging.ScoreQueue, task.Type())
		var payload messaging.ScoreJobPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, response.JobId, payload.JobId)
	default:
		t.Fatal("expected a task on the queue")
	}
}

func TestSubmitScoreJobRequiresSourceKey(t *testing.T) {
	router := createRouter(t, createDB(t), messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodPost, "/jobs/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListAndGetScoreJobs(t *testing.T) {
	jobId := uuid.New()
	db := createDB(t, &database.BatchJob{
		Id:           jobId,
		Status:       database.JobCompleted,
		SourceBucket: "data",
		SourceKey:    "uploads/samples.csv",
		TotalRows:    10,
		BenignRows:   6,
		CreationTime: time.Now().UTC(),
	})
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/jobs/", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response api.ListScoreJobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Jobs, 1)
	assert.Equal(t, jobId, response.Jobs[0].Id)

	req = httptest.NewRequest(http.MethodGet, "/jobs/"+jobId.String(), nil)
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var job api.ScoreJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, database.JobCompleted, job.Status)
	assert.Equal(t, 10, job.TotalRows)
	assert.Equal(t, 6, job.BenignRows)
	assert.Nil(t, job.StartTime)
}

func TestDownloadScoreJobResult(t *testing.T) {
	jobId := uuid.New()
	resultKey := "results/" + jobId.String() + ".csv"
	db := createDB(t, &database.BatchJob{
		Id:           jobId,
		Status:       database.JobCompleted,
		SourceBucket: "data",
		SourceKey:    "uploads/samples.csv",
		ResultKey:    sql.NullString{String: resultKey, Valid: true},
		CreationTime: time.Now().UTC(),
	})

	provider := storage.NewLocalProvider(t.TempDir())
	resultCSV := "class,diagnosis,probability\n1,benign,0.731059\n"
	require.NoError(t, provider.PutObject(context.Background(), "data", resultKey, strings.NewReader(resultCSV)))

	service := backend.NewPredictionService(db, provider, messaging.NewInMemoryQueue(), loadTestPipeline(t), "data")
	router := chi.NewRouter()
	service.AddRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobId.String()+"/result", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, resultCSV, rec.Body.String())
}

func TestDownloadScoreJobResultNotReady(t *testing.T) {
	jobId := uuid.New()
	db := createDB(t, &database.BatchJob{
		Id:           jobId,
		Status:       database.JobQueued,
		SourceBucket: "data",
		SourceKey:    "uploads/samples.csv",
		CreationTime: time.Now().UTC(),
	})
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobId.String()+"/result", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

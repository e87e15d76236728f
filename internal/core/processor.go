package core

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"bcd-backend/internal/database"
	"bcd-backend/internal/messaging"
	"bcd-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskProcessor consumes batch scoring tasks: it streams a CSV of samples from
// object storage, classifies every row with the loaded pipeline, uploads a
// result CSV, and records counts on the job row.
type TaskProcessor struct {
	db       *gorm.DB
	storage  storage.Provider
	reciever messaging.Reciever

	pipeline   *Pipeline
	dataBucket string
}

func NewTaskProcessor(db *gorm.DB, storage storage.Provider, reciever messaging.Reciever, pipeline *Pipeline, dataBucket string) *TaskProcessor {
	return &TaskProcessor{
		db:         db,
		storage:    storage,
		reciever:   reciever,
		pipeline:   pipeline,
		dataBucket: dataBucket,
	}
}

func (proc *TaskProcessor) Start() {
	slog.Info("starting task processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *TaskProcessor) Stop() {
	slog.Info("stopping task processor")

	proc.reciever.Close()
}

func (proc *TaskProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	switch task.Type() {
	case messaging.ScoreQueue:
		var payload messaging.ScoreJobPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling score job task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}

		if err := proc.processScoreJob(ctx, payload); err != nil {
			slog.Error("error processing score job", "job_id", payload.JobId, "error", err)
			if err := task.Nack(); err != nil {
				slog.Error("error reporting processing failure on message from queue", "error", err)
			}
			return
		}

		slog.Info("successfully processed score job", "job_id", payload.JobId)
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
	}
}

func (proc *TaskProcessor) processScoreJob(ctx context.Context, payload messaging.ScoreJobPayload) error {
	slog.Info("processing score job", "job_id", payload.JobId)

	var job database.BatchJob
	if err := proc.db.WithContext(ctx).First(&job, "id = ?", payload.JobId).Error; err != nil {
		return fmt.Errorf("error fetching score job: %w", err)
	}

	if err := proc.db.WithContext(ctx).
		Model(&database.BatchJob{}).
		Where("id = ?", job.Id).
		Updates(map[string]interface{}{
			"status":     database.JobRunning,
			"start_time": time.Now().UTC(),
		}).Error; err != nil {
		slog.Error("error marking score job as running", "job_id", job.Id, "error", err)
	}

	resultKey, summary, err := proc.scoreJob(ctx, job)
	if err != nil {
		proc.failJob(ctx, job.Id, err)
		return err
	}

	if err := proc.db.WithContext(ctx).
		Model(&database.BatchJob{}).
		Where("id = ?", job.Id).
		Updates(map[string]interface{}{
			"status":          database.JobCompleted,
			"result_key":      resultKey,
			"total_rows":      summary.TotalRows,
			"benign_rows":     summary.DiagnosisCounts["benign"],
			"malignant_rows":  summary.DiagnosisCounts["malignant"],
			"failed_rows":     summary.FailedRows,
			"completion_time": time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("error marking score job as completed: %w", err)
	}

	return nil
}

func (proc *TaskProcessor) scoreJob(ctx context.Context, job database.BatchJob) (string, ScoreSummary, error) {
	source, err := proc.storage.GetObjectStream(ctx, job.SourceBucket, job.SourceKey)
	if err != nil {
		return "", ScoreSummary{}, fmt.Errorf("error opening source object %s/%s: %w", job.SourceBucket, job.SourceKey, err)
	}
	defer source.Close()

	var results bytes.Buffer
	summary, err := ScoreCSV(proc.pipeline, source, &results, nil)
	if err != nil {
		return "", summary, fmt.Errorf("error scoring source object %s/%s: %w", job.SourceBucket, job.SourceKey, err)
	}

	resultKey := path.Join("results", job.Id.String()+".csv")
	if err := proc.storage.PutObject(ctx, proc.dataBucket, resultKey, &results); err != nil {
		return "", summary, fmt.Errorf("error uploading result object %s: %w", resultKey, err)
	}

	return resultKey, summary, nil
}

func (proc *TaskProcessor) failJob(ctx context.Context, jobId uuid.UUID, jobErr error) {
	if err := proc.db.WithContext(ctx).
		Model(&database.BatchJob{}).
		Where("id = ?", jobId).
		Updates(map[string]interface{}{
			"status":          database.JobFailed,
			"error":           sql.NullString{String: jobErr.Error(), Valid: true},
			"completion_time": time.Now().UTC(),
		}).Error; err != nil {
		slog.Error("error marking score job as failed", "job_id", jobId, "error", err)
	}
}

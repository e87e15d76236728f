package api

import (
	"encoding/json"
	"log/slog"

	"bcd-backend/internal/database"
	"bcd-backend/pkg/api"
)

func convertPrediction(p database.Prediction) api.Prediction {
	var inputs map[string]float64
	if err := json.Unmarshal(p.Inputs, &inputs); err != nil {
		slog.Error("error decoding stored prediction inputs", "prediction_id", p.Id, "error", err)
	}

	return api.Prediction{
		Id:           p.Id,
		CreationTime: p.CreationTime,
		Inputs:       inputs,
		Class:        p.Class,
		Diagnosis:    p.Diagnosis,
		Probability:  p.Probability,
	}
}

func convertPredictions(ps []database.Prediction) []api.Prediction {
	predictions := make([]api.Prediction, 0, len(ps))
	for _, p := range ps {
		predictions = append(predictions, convertPrediction(p))
	}
	return predictions
}

func convertScoreJob(j database.BatchJob) api.ScoreJob {
	job := api.ScoreJob{
		Id:            j.Id,
		Status:        j.Status,
		SourceBucket:  j.SourceBucket,
		SourceKey:     j.SourceKey,
		ResultKey:     j.ResultKey.String,
		TotalRows:     j.TotalRows,
		BenignRows:    j.BenignRows,
		MalignantRows: j.MalignantRows,
		FailedRows:    j.FailedRows,
		CreationTime:  j.CreationTime,
		Error:         j.Error.String,
	}

	if j.StartTime.Valid {
		start := j.StartTime.Time
		job.StartTime = &start
	}
	if j.CompletionTime.Valid {
		completion := j.CompletionTime.Time
		job.CompletionTime = &completion
	}

	return job
}

func convertScoreJobs(js []database.BatchJob) []api.ScoreJob {
	jobs := make([]api.ScoreJob, 0, len(js))
	for _, j := range js {
		jobs = append(jobs, convertScoreJob(j))
	}
	return jobs
}

package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prediction is a single scored sample. Inputs holds the raw feature values
// keyed by feature name so a prediction can be audited later.
type Prediction struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreationTime time.Time

	Inputs datatypes.JSON `gorm:"type:jsonb;not null"` // {"mean radius": 14.2, …}

	Class       int
	Diagnosis   string `gorm:"size:20;not null"`
	Probability float64
}

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

type BatchJob struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Status string `gorm:"size:20;not null"`

	SourceBucket string `gorm:"not null"`
	SourceKey    string `gorm:"not null"`
	ResultKey    sql.NullString

	TotalRows     int `gorm:"default:0"`
	BenignRows    int `gorm:"default:0"`
	MalignantRows int `gorm:"default:0"`
	FailedRows    int `gorm:"default:0"`

	CreationTime   time.Time
	StartTime      sql.NullTime
	CompletionTime sql.NullTime

	Error sql.NullString
}

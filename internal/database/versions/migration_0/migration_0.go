package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Prediction struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreationTime time.Time

	Inputs datatypes.JSON `gorm:"type:jsonb;not null"`

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

func Migration(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Prediction{}, &BatchJob{},
	)
	if err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}

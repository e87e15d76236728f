package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ScoreQueue      = "score_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type ScoreJobPayload struct {
	JobId uuid.UUID
}

type Publisher interface {
	PublishScoreJob(ctx context.Context, payload ScoreJobPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}

package repository

import (
	"context"
	"errors"

	"imageUpscaler/api/models"
)

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrIllegalTransition means the job exists but is not in a state the
	// requested transition may move from. Under correct worker behavior this
	// only happens on broker redelivery of an already-terminal job.
	ErrIllegalTransition = errors.New("illegal job state transition")
)

// TransitionFields carries the columns written together with a state change.
// ErrorMessage is only meaningful for failed, ResultRef only for succeeded.
type TransitionFields struct {
	ErrorMessage string
	ResultRef    string
}

type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	TransitionJob(ctx context.Context, id string, to models.JobState, fields TransitionFields) error
}

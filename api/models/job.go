package models

import (
	"time"
)

type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

// transitionSources maps a target state to the states a job may move from.
// pending -> failed covers the enqueue-failed path: a job record must never
// stay pending with no descriptor on the queue. running -> running lets a
// redelivered descriptor take over a job whose worker crashed mid-compute,
// so no job is ever orphaned in running.
var transitionSources = map[JobState][]JobState{
	StateRunning:   {StatePending, StateRunning},
	StateSucceeded: {StateRunning},
	StateFailed:    {StateRunning, StatePending},
}

// SourcesOf returns the states from which a transition to the given state is
// legal. An empty slice means nothing may move there (pending is entry-only).
func SourcesOf(to JobState) []JobState {
	return transitionSources[to]
}

func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s JobState) CanTransitionTo(to JobState) bool {
	for _, from := range transitionSources[to] {
		if from == s {
			return true
		}
	}
	return false
}

type Job struct {
	ID               string
	TraceID          string
	OriginalFilename string
	State            JobState
	Progress         int
	ErrorMessage     string
	ResultRef        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

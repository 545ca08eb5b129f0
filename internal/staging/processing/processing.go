// Package processing keeps an append-only log of parse and sync attempts
// per staging record. Attempts are never rewritten once they reach a
// terminal status; they disappear only when the owning record is deleted.
package processing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("processing attempt not found")
	// ErrFinished is returned when a terminal attempt is mutated again.
	ErrFinished = errors.New("processing attempt already finished")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Attempt struct {
	ID              uuid.UUID
	StagingRecordID uuid.UUID
	AttemptNumber   int
	Status          Status
	StartedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
}

package processing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=processing
type Repository interface {
	CreateAttempt(ctx context.Context, attempt *Attempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error)
	UpdateAttempt(ctx context.Context, attempt *Attempt) error
	LatestAttempt(ctx context.Context, stagingRecordID uuid.UUID) (*Attempt, error)
	ListAttempts(ctx context.Context, stagingRecordID uuid.UUID) ([]*Attempt, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Begin opens a new attempt for the staging record, numbering it one past
// the latest existing attempt. The first attempt for a record gets number 1.
func (s *Service) Begin(ctx context.Context, stagingRecordID uuid.UUID) (*Attempt, error) {
	number := 1

	latest, err := s.repo.LatestAttempt(ctx, stagingRecordID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if latest != nil {
		number = latest.AttemptNumber + 1
	}

	attempt := &Attempt{
		StagingRecordID: stagingRecordID,
		AttemptNumber:   number,
		Status:          StatusPending,
		StartedAt:       time.Now(),
	}

	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Start moves a pending attempt to in-progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) error {
	attempt, err := s.repo.GetAttempt(ctx, id)
	if err != nil {
		return err
	}

	if attempt.Status.Terminal() {
		return ErrFinished
	}

	attempt.Status = StatusInProgress

	return s.repo.UpdateAttempt(ctx, attempt)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.finish(ctx, id, StatusCompleted, "")
}

func (s *Service) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return s.finish(ctx, id, StatusFailed, message)
}

func (s *Service) finish(ctx context.Context, id uuid.UUID, status Status, message string) error {
	attempt, err := s.repo.GetAttempt(ctx, id)
	if err != nil {
		return err
	}

	if attempt.Status.Terminal() {
		return ErrFinished
	}

	now := time.Now()
	attempt.Status = status
	attempt.CompletedAt = &now
	attempt.ErrorMessage = message

	return s.repo.UpdateAttempt(ctx, attempt)
}

func (s *Service) List(ctx context.Context, stagingRecordID uuid.UUID) ([]*Attempt, error) {
	return s.repo.ListAttempts(ctx, stagingRecordID)
}

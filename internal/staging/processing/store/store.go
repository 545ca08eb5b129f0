package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/staging/processing"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const attemptColumns = `id, staging_record_id, attempt_number, status, started_at, completed_at, error_message`

func scanAttempt(s scanner) (*processing.Attempt, error) {
	var a processing.Attempt

	if err := s.Scan(
		&a.ID, &a.StagingRecordID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.CompletedAt, &a.ErrorMessage,
	); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) CreateAttempt(ctx context.Context, attempt *processing.Attempt) error {
	attempt.ID = uuid.New()

	query := `
		INSERT INTO processing_attempts (
			id, staging_record_id, attempt_number, status, started_at, completed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		attempt.ID, attempt.StagingRecordID, attempt.AttemptNumber,
		attempt.Status, attempt.StartedAt, attempt.CompletedAt, attempt.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("creating processing attempt: %w", err)
	}

	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (*processing.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM processing_attempts WHERE id = $1`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, processing.ErrNotFound
		}

		return nil, fmt.Errorf("getting processing attempt: %w", err)
	}

	return attempt, nil
}

func (s *Store) UpdateAttempt(ctx context.Context, attempt *processing.Attempt) error {
	query := `
		UPDATE processing_attempts
		SET status = $1, completed_at = $2, error_message = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query,
		attempt.Status, attempt.CompletedAt, attempt.ErrorMessage, attempt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating processing attempt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating processing attempt: %w", err)
	}

	if affected == 0 {
		return processing.ErrNotFound
	}

	return nil
}

func (s *Store) LatestAttempt(ctx context.Context, stagingRecordID uuid.UUID) (*processing.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM processing_attempts
		WHERE staging_record_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, stagingRecordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, processing.ErrNotFound
		}

		return nil, fmt.Errorf("getting latest processing attempt: %w", err)
	}

	return attempt, nil
}

func (s *Store) ListAttempts(ctx context.Context, stagingRecordID uuid.UUID) ([]*processing.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM processing_attempts
		WHERE staging_record_id = $1
		ORDER BY attempt_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, stagingRecordID)
	if err != nil {
		return nil, fmt.Errorf("listing processing attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*processing.Attempt

	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning processing attempt: %w", err)
		}

		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating processing attempts: %w", err)
	}

	return attempts, nil
}

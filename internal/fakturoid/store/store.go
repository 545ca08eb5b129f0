package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
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

const connectionColumns = `
	id, user_id, access_token, refresh_token, access_token_expires_at,
	account_slug, account_name, connected_at, last_synced_at, is_active,
	created_at, updated_at
`

func scanConnection(s scanner) (*fakturoid.Connection, error) {
	var conn fakturoid.Connection

	if err := s.Scan(
		&conn.ID, &conn.UserID, &conn.AccessToken, &conn.RefreshToken, &conn.AccessTokenExpiresAt,
		&conn.AccountSlug, &conn.AccountName, &conn.ConnectedAt, &conn.LastSyncedAt, &conn.IsActive,
		&conn.CreatedAt, &conn.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &conn, nil
}

// Create stores a new connection, deactivating any previous one for the
// same user so at most one stays active.
func (s *Store) Create(ctx context.Context, conn *fakturoid.Connection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning connect tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE fakturoid_connections SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_active = TRUE`,
		conn.UserID,
	); err != nil {
		return fmt.Errorf("deactivating previous connection: %w", err)
	}

	conn.ID = uuid.New()
	conn.IsActive = true

	query := `
		INSERT INTO fakturoid_connections (
			id, user_id, access_token, refresh_token, access_token_expires_at,
			account_slug, account_name, connected_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), TRUE, NOW(), NOW())
		RETURNING connected_at, created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, query,
		conn.ID, conn.UserID, conn.AccessToken, conn.RefreshToken, conn.AccessTokenExpiresAt,
		conn.AccountSlug, conn.AccountName,
	).Scan(&conn.ConnectedAt, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating connection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing connect: %w", err)
	}

	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*fakturoid.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM fakturoid_connections WHERE id = $1`

	conn, err := scanConnection(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fakturoid.ErrNotFound
		}

		return nil, fmt.Errorf("getting connection: %w", err)
	}

	return conn, nil
}

// GetByUserID resolves the user's active connection.
func (s *Store) GetByUserID(ctx context.Context, userID uuid.UUID) (*fakturoid.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM fakturoid_connections WHERE user_id = $1 AND is_active = TRUE`

	conn, err := scanConnection(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fakturoid.ErrNoConnection
		}

		return nil, fmt.Errorf("getting connection for user: %w", err)
	}

	return conn, nil
}

func (s *Store) UpdateTokens(ctx context.Context, id uuid.UUID, pair fakturoid.TokenPair) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fakturoid_connections
		SET access_token = $1, refresh_token = $2, access_token_expires_at = $3, updated_at = NOW()
		WHERE id = $4`,
		pair.AccessToken, pair.RefreshToken, pair.ExpiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}

	if affected == 0 {
		return fakturoid.ErrNotFound
	}

	return nil
}

// UpdateLastSynced advances the incremental-sync watermark to now.
func (s *Store) UpdateLastSynced(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fakturoid_connections SET last_synced_at = NOW(), updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("updating last synced: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating last synced: %w", err)
	}

	if affected == 0 {
		return fakturoid.ErrNotFound
	}

	return nil
}

// Disconnect soft-deletes the connection. Tokens stay in place, mirrored
// rows are kept.
func (s *Store) Disconnect(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fakturoid_connections SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}

	if affected == 0 {
		return fakturoid.ErrNotFound
	}

	return nil
}

// Package sync pulls invoices from a connected Fakturoid account into the
// local mirror.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=sync

// ConnectionRepository is the slice of the connection store the sync needs.
type ConnectionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*fakturoid.Connection, error)
	UpdateLastSynced(ctx context.Context, id uuid.UUID) error
}

// InvoiceFetcher pulls one page of invoices from the remote API.
type InvoiceFetcher interface {
	FetchInvoices(ctx context.Context, connectionID uuid.UUID, page int, updatedSince *time.Time) ([]*mirror.Record, error)
}

// MirrorRepository persists fetched invoices and serves mirror browsing.
type MirrorRepository interface {
	Upsert(ctx context.Context, connectionID uuid.UUID, rec *mirror.Record) (*mirror.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*mirror.Record, error)
	ListByConnection(ctx context.Context, connectionID uuid.UUID, page, pageSize int) ([]*mirror.Record, error)
	CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error)
}

// Result describes the state of a user's mirror.
type Result struct {
	Connected     bool       `json:"connected"`
	AccountSlug   string     `json:"account_slug,omitempty"`
	TotalInvoices int        `json:"total_invoices"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

type Service struct {
	connections ConnectionRepository
	fetcher     InvoiceFetcher
	mirrors     MirrorRepository
	logger      *slog.Logger

	// group collapses concurrent syncs of the same connection into one.
	group singleflight.Group
}

func NewService(connections ConnectionRepository, fetcher InvoiceFetcher, mirrors MirrorRepository, logger *slog.Logger) *Service {
	return &Service{
		connections: connections,
		fetcher:     fetcher,
		mirrors:     mirrors,
		logger:      logger,
	}
}

// SyncInvoices drains the remote invoice list page by page, upserting each
// invoice into the mirror, and returns the number of invoices processed.
// A full sync ignores the incremental watermark and re-fetches everything;
// the watermark only advances once the whole listing is drained.
func (s *Service) SyncInvoices(ctx context.Context, userID uuid.UUID, fullSync bool) (int, error) {
	conn, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	count, err, _ := s.group.Do(conn.ID.String(), func() (any, error) {
		return s.syncConnection(ctx, conn, fullSync)
	})
	if err != nil {
		return 0, err
	}

	return count.(int), nil
}

func (s *Service) syncConnection(ctx context.Context, conn *fakturoid.Connection, fullSync bool) (int, error) {
	var updatedSince *time.Time
	if !fullSync {
		updatedSince = conn.LastSyncedAt
	}

	synced := 0

	for page := 1; ; page++ {
		records, err := s.fetcher.FetchInvoices(ctx, conn.ID, page, updatedSince)
		if err != nil {
			return synced, fmt.Errorf("fetching invoices page %d: %w", page, err)
		}

		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if _, err := s.mirrors.Upsert(ctx, conn.ID, rec); err != nil {
				return synced, fmt.Errorf("upserting invoice %d: %w", rec.RemoteID, err)
			}

			synced++
		}

		if len(records) < fakturoid.PageSize {
			break
		}
	}

	if err := s.connections.UpdateLastSynced(ctx, conn.ID); err != nil {
		return synced, fmt.Errorf("updating sync watermark: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice sync finished",
		slog.String("connection_id", conn.ID.String()),
		slog.String("account", conn.AccountSlug),
		slog.Bool("full_sync", fullSync),
		slog.Int("synced", synced),
	)

	return synced, nil
}

// ListMirror pages through the user's mirrored invoices, newest first.
func (s *Service) ListMirror(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*mirror.Record, error) {
	conn, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = 50
	}

	return s.mirrors.ListByConnection(ctx, conn.ID, page, pageSize)
}

func (s *Service) GetMirror(ctx context.Context, id uuid.UUID) (*mirror.Record, error) {
	return s.mirrors.Get(ctx, id)
}

// Status reports mirror size and watermark for the user's connection.
// Users without a connection get a zero result rather than an error.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Result, error) {
	conn, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, fakturoid.ErrNoConnection) {
			return &Result{}, nil
		}

		return nil, err
	}

	total, err := s.mirrors.CountByConnection(ctx, conn.ID)
	if err != nil {
		return nil, fmt.Errorf("counting mirrored invoices: %w", err)
	}

	return &Result{
		Connected:     true,
		AccountSlug:   conn.AccountSlug,
		TotalInvoices: total,
		LastSyncedAt:  conn.LastSyncedAt,
	}, nil
}

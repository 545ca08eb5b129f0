package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	CountInvoices(ctx context.Context, userID uuid.UUID, direction *Direction) (int, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	UserID    uuid.UUID
	Direction *Direction
	Page      int
	PageSize  int
}

// Create persists a manually entered invoice. Invoices originating from
// staging records are created by the import engine instead, inside the
// import transaction.
func (s *Service) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	if inv.Direction != DirectionInbound && inv.Direction != DirectionOutbound {
		return nil, fmt.Errorf("invalid direction %q", inv.Direction)
	}

	inv.Source = SourceManual
	inv.MirrorRecordID = nil
	inv.ParsedRecordID = nil

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}

	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) Count(ctx context.Context, userID uuid.UUID, direction *Direction) (int, error) {
	return s.repo.CountInvoices(ctx, userID, direction)
}

func (s *Service) Update(ctx context.Context, inv *Invoice) error {
	return s.repo.UpdateInvoice(ctx, inv)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteInvoice(ctx, id)
}

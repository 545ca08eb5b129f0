package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=importer
type MirrorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*mirror.Record, error)
}

type ParsedRepository interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*parsed.Record, error)
}

type InvoiceRepository interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	UpdateLifecycle(ctx context.Context, id uuid.UUID, lc invoice.Lifecycle) error

	BeginImport(ctx context.Context, stagingRecordID uuid.UUID) (ImportTx, error)
}

// ImportTx is one import transaction: invoice creation and the consumption
// of the source staging record commit or roll back together.
type ImportTx interface {
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	MarkMirrorImported(ctx context.Context, recordID, invoiceID uuid.UUID) error
	MarkParsedImported(ctx context.Context, recordID, invoiceID uuid.UUID) error
	Commit() error
	Rollback() error
}

type Service struct {
	invoices InvoiceRepository
	mirrors  MirrorRepository
	uploads  ParsedRepository

	// orgVatNo is the owning organization's VAT number used for direction
	// inference; empty means inference always falls back to inbound.
	orgVatNo string
}

func NewService(invoices InvoiceRepository, mirrors MirrorRepository, uploads ParsedRepository, orgVatNo string) *Service {
	return &Service{
		invoices: invoices,
		mirrors:  mirrors,
		uploads:  uploads,
		orgVatNo: orgVatNo,
	}
}

// ImportFromMirror creates a canonical invoice from a mirror row. Mirrored
// invoices are always outbound: the external service only manages invoices
// the user issues.
func (s *Service) ImportFromMirror(ctx context.Context, userID, recordID uuid.UUID) (*invoice.Invoice, error) {
	rec, err := s.mirrors.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if rec.IsImported {
		return nil, ErrAlreadyImported
	}

	inv := mapMirror(userID, rec)

	itx, err := s.invoices.BeginImport(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	if err := itx.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	if err := itx.MarkMirrorImported(ctx, rec.ID, inv.ID); err != nil {
		return nil, err
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	return inv, nil
}

// ImportMirrorBatch imports the given mirror rows one by one, stopping at
// the first failure. Already imported invoices stay committed.
func (s *Service) ImportMirrorBatch(ctx context.Context, userID uuid.UUID, recordIDs []uuid.UUID) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice

	for _, recordID := range recordIDs {
		inv, err := s.ImportFromMirror(ctx, userID, recordID)
		if err != nil {
			return invoices, fmt.Errorf("importing mirror record %s: %w", recordID, err)
		}

		invoices = append(invoices, inv)
	}

	return invoices, nil
}

// ImportFromParsed creates a canonical invoice from an uploaded document.
// The record must have parsed cleanly, and the direction is inferred from
// the extracted VAT numbers.
func (s *Service) ImportFromParsed(ctx context.Context, recordID uuid.UUID) (*invoice.Invoice, error) {
	rec, err := s.uploads.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if rec.Status == parsed.StatusImported {
		return nil, ErrAlreadyImported
	}

	if rec.Status != parsed.StatusParsed && rec.Status != parsed.StatusReadyToImport {
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, rec.Status)
	}

	if !rec.IsValid {
		return nil, ErrInvalid
	}

	inv := s.mapParsed(rec)

	itx, err := s.invoices.BeginImport(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	if err := itx.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	if err := itx.MarkParsedImported(ctx, rec.ID, inv.ID); err != nil {
		return nil, err
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	return inv, nil
}

// Resync pulls the mirror row's current lifecycle state onto an invoice
// that was imported from it. Header, party and line data stay as-is so
// manual edits made after the import survive.
func (s *Service) Resync(ctx context.Context, invoiceID uuid.UUID) (*invoice.Invoice, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.Source != invoice.SourceFakturoid || inv.MirrorRecordID == nil {
		return nil, ErrSourceMismatch
	}

	rec, err := s.mirrors.Get(ctx, *inv.MirrorRecordID)
	if err != nil {
		return nil, err
	}

	inv.Lifecycle = invoice.Lifecycle{
		Status:          rec.Status,
		Open:            rec.Open,
		Sent:            rec.Sent,
		Overdue:         rec.Overdue,
		Paid:            rec.Paid,
		Cancelled:       rec.Cancelled,
		SentAt:          rec.SentAt,
		PaidOn:          rec.PaidOn,
		CancelledAt:     rec.CancelledAt,
		RemainingAmount: rec.RemainingAmount,
	}

	if err := s.invoices.UpdateLifecycle(ctx, inv.ID, inv.Lifecycle); err != nil {
		return nil, err
	}

	return inv, nil
}

func mapMirror(userID uuid.UUID, rec *mirror.Record) *invoice.Invoice {
	recID := rec.ID

	inv := &invoice.Invoice{
		ID:             uuid.New(),
		UserID:         userID,
		Direction:      invoice.DirectionOutbound,
		Source:         invoice.SourceFakturoid,
		MirrorRecordID: &recID,

		CustomID:     rec.CustomID,
		Number:       rec.Number,
		DocumentType: rec.DocumentType,

		Lifecycle: invoice.Lifecycle{
			Status:          rec.Status,
			Open:            rec.Open,
			Sent:            rec.Sent,
			Overdue:         rec.Overdue,
			Paid:            rec.Paid,
			Cancelled:       rec.Cancelled,
			SentAt:          rec.SentAt,
			PaidOn:          rec.PaidOn,
			CancelledAt:     rec.CancelledAt,
			RemainingAmount: rec.RemainingAmount,
		},

		IssuedOn: rec.IssuedOn,
		DueOn:    rec.DueOn,
		Due:      rec.Due,

		Subtotal:     rec.Subtotal.Decimal,
		Total:        rec.Total.Decimal,
		Currency:     rec.Currency,
		ExchangeRate: rec.ExchangeRate,
		VatPriceMode: rec.VatPriceMode,

		Client:                   rec.Client,
		ClientHasDeliveryAddress: rec.ClientHasDeliveryAddress,
		ClientDelivery:           rec.ClientDelivery,
		// The mirrored "your company" block is the supplier: outbound only.
		Supplier: rec.Owner,

		VariableSymbol: rec.VariableSymbol,
		ConstantSymbol: rec.ConstantSymbol,
		SpecificSymbol: rec.SpecificSymbol,
		BankAccount:    rec.BankAccount,
		IBAN:           rec.IBAN,
		SwiftBIC:       rec.SwiftBIC,

		Note:        rec.Note,
		FooterNote:  rec.FooterNote,
		PrivateNote: rec.PrivateNote,

		Tags:            rec.Tags,
		VatRatesSummary: rec.VatRatesSummary,
	}

	now := time.Now()

	for _, line := range rec.Lines {
		inv.Lines = append(inv.Lines, invoice.Line{
			InvoiceID:            inv.ID,
			LineOrder:            line.LineOrder,
			Name:                 line.Name,
			Quantity:             line.Quantity,
			UnitName:             line.UnitName,
			UnitPrice:            line.UnitPrice,
			VatRate:              line.VatRate,
			UnitPriceWithoutVat:  line.UnitPriceWithoutVat,
			UnitPriceWithVat:     line.UnitPriceWithVat,
			TotalPriceWithoutVat: line.TotalPriceWithoutVat,
			TotalVat:             line.TotalVat,
			TotalPriceWithVat:    line.TotalPriceWithVat,
			SKU:                  line.SKU,
		})
	}

	for _, payment := range rec.Payments {
		inv.Payments = append(inv.Payments, invoice.Payment{
			InvoiceID:      inv.ID,
			PaidOn:         payment.PaidOn,
			Currency:       payment.Currency,
			Amount:         payment.Amount,
			VariableSymbol: payment.VariableSymbol,
			CreatedAt:      now,
		})
	}

	for _, attachment := range rec.Attachments {
		inv.Attachments = append(inv.Attachments, invoice.Attachment{
			InvoiceID:   inv.ID,
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			ExternalURL: attachment.DownloadURL,
			CreatedAt:   now,
		})
	}

	return inv
}

func (s *Service) mapParsed(rec *parsed.Record) *invoice.Invoice {
	direction := s.inferDirection(rec)
	recID := rec.ID

	number := rec.Number
	if number == "" {
		number = "UNKNOWN"
	}

	documentType := rec.DocumentType
	if documentType == "" {
		documentType = "invoice"
	}

	currency := rec.Currency
	if currency == "" {
		currency = "CZK"
	}

	status := "draft"
	if rec.IsValid {
		status = "open"
	}

	client, supplier := rec.Customer, rec.Supplier
	if direction == invoice.DirectionInbound {
		client, supplier = rec.Supplier, rec.Customer
	}

	return &invoice.Invoice{
		ID:             uuid.New(),
		UserID:         rec.UserID,
		Direction:      direction,
		Source:         invoice.SourceISDOC,
		ParsedRecordID: &recID,

		CustomID:     rec.CustomID,
		Number:       number,
		DocumentType: documentType,

		Lifecycle: invoice.Lifecycle{
			Status:          status,
			Open:            true,
			RemainingAmount: rec.Total.Decimal,
		},

		IssuedOn: rec.IssuedOn,
		DueOn:    rec.DueOn,

		Subtotal:     rec.Subtotal.Decimal,
		Total:        rec.Total.Decimal,
		Currency:     currency,
		ExchangeRate: rec.ExchangeRate,
		VatPriceMode: rec.VatPriceMode,

		Client:   client,
		Supplier: supplier,

		VariableSymbol: rec.VariableSymbol,
		ConstantSymbol: rec.ConstantSymbol,
		SpecificSymbol: rec.SpecificSymbol,
		BankAccount:    rec.BankAccount,
		IBAN:           rec.IBAN,
		SwiftBIC:       rec.SwiftBIC,

		Note: rec.Note,

		VatRatesSummary: rec.VatRatesSummary,
	}
}

// inferDirection compares the extracted VAT numbers against the configured
// organization VAT number. Supplier match means the owner issued the
// document; customer match means the owner received it. Unresolvable cases
// default to inbound.
func (s *Service) inferDirection(rec *parsed.Record) invoice.Direction {
	if s.orgVatNo == "" {
		return invoice.DirectionInbound
	}

	if rec.Supplier.VatNo != "" && strings.EqualFold(rec.Supplier.VatNo, s.orgVatNo) {
		return invoice.DirectionOutbound
	}

	if rec.Customer.VatNo != "" && strings.EqualFold(rec.Customer.VatNo, s.orgVatNo) {
		return invoice.DirectionInbound
	}

	return invoice.DirectionInbound
}

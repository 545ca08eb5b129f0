// Package mirror holds the local cached copies of invoices managed by the
// connected Fakturoid account. Rows are keyed by (connection, remote id)
// and fully replaced on every sync; the remote is authoritative.
package mirror

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging"
)

var ErrNotFound = errors.New("mirror record not found")

// Record is one mirrored remote invoice.
type Record struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	RemoteID     int64
	Token        string

	staging.Header

	Status    string
	Open      bool
	Sent      bool
	Overdue   bool
	Paid      bool
	Cancelled bool

	SentAt      *time.Time
	PaidOn      *time.Time
	CancelledAt *time.Time
	Due         *int

	RemainingAmount decimal.Decimal

	Client                   invoice.Party
	ClientHasDeliveryAddress bool
	ClientDelivery           invoice.Party
	// Owner mirrors the remote record's "your company" block. Fakturoid only
	// manages issued invoices, so the owner is always the supplier.
	Owner invoice.Party

	FooterNote  string
	PrivateNote string

	Tags         json.RawMessage
	PaidAdvances json.RawMessage

	HTMLURL       string
	PublicHTMLURL string

	// RemoteUpdatedAt is the remote system's own modification timestamp.
	RemoteUpdatedAt *time.Time
	// FirstSeenAt is set when the row is first mirrored and survives upserts.
	FirstSeenAt  time.Time
	LastSyncedAt time.Time

	IsImported          bool
	ImportedInvoiceID   *uuid.UUID
	ImportedToInvoiceAt *time.Time

	Lines       []Line
	Payments    []Payment
	Attachments []Attachment
}

// Kind is the staging discriminant carried on API responses.
func (*Record) Kind() staging.Kind { return staging.KindMirror }

type Line struct {
	ID                   uuid.UUID
	RecordID             uuid.UUID
	LineOrder            int
	Name                 string
	Quantity             decimal.Decimal
	UnitName             string
	UnitPrice            decimal.Decimal
	VatRate              decimal.Decimal
	UnitPriceWithoutVat  decimal.Decimal
	UnitPriceWithVat     decimal.Decimal
	TotalPriceWithoutVat decimal.Decimal
	TotalVat             decimal.Decimal
	TotalPriceWithVat    decimal.Decimal
	SKU                  string
}

type Payment struct {
	ID             uuid.UUID
	RecordID       uuid.UUID
	PaidOn         time.Time
	Currency       string
	Amount         decimal.Decimal
	VariableSymbol string
}

type Attachment struct {
	ID          uuid.UUID
	RecordID    uuid.UUID
	Filename    string
	ContentType string
	DownloadURL string
}

package invoice

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("invoice not found")

// Direction tells whether the owner issued the invoice or received it.
type Direction string

const (
	DirectionInbound  Direction = "inbound"  // owner is the customer
	DirectionOutbound Direction = "outbound" // owner is the supplier
)

// Source records where the canonical invoice originated.
type Source string

const (
	SourceFakturoid Source = "fakturoid"
	SourceISDOC     Source = "isdoc"
	SourceManual    Source = "manual"
)

// Party is one side of an invoice. Empty strings mean the field was absent
// in the source document.
type Party struct {
	Name           string
	Street         string
	City           string
	Zip            string
	Country        string
	RegistrationNo string
	VatNo          string
}

// Lifecycle is the remote-authoritative state of an invoice. Resync pulls
// exactly these fields forward from the mirror row and nothing else, so
// manual edits to header and party data survive.
type Lifecycle struct {
	Status          string
	Open            bool
	Sent            bool
	Overdue         bool
	Paid            bool
	Cancelled       bool
	SentAt          *time.Time
	PaidOn          *time.Time
	CancelledAt     *time.Time
	RemainingAmount decimal.Decimal
}

// Invoice is the canonical aggregate used by reporting and the UI,
// regardless of whether it came from a Fakturoid sync, an ISDOC upload or
// manual entry. At most one of MirrorRecordID/ParsedRecordID is set.
type Invoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Direction Direction
	Source    Source

	MirrorRecordID *uuid.UUID
	ParsedRecordID *uuid.UUID

	CustomID     string
	Number       string
	DocumentType string

	Lifecycle

	IssuedOn *time.Time
	DueOn    *time.Time
	Due      *int // days until overdue

	Subtotal     decimal.Decimal
	Total        decimal.Decimal
	Currency     string
	ExchangeRate decimal.NullDecimal
	VatPriceMode string

	Client                   Party
	ClientHasDeliveryAddress bool
	ClientDelivery           Party
	Supplier                 Party

	VariableSymbol string
	ConstantSymbol string
	SpecificSymbol string
	BankAccount    string
	IBAN           string
	SwiftBIC       string

	Note        string
	FooterNote  string
	PrivateNote string

	Tags            json.RawMessage
	VatRatesSummary json.RawMessage

	Lines       []Line
	Payments    []Payment
	Attachments []Attachment

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Line struct {
	ID                   uuid.UUID
	InvoiceID            uuid.UUID
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
	InvoiceID      uuid.UUID
	PaidOn         time.Time
	Currency       string
	Amount         decimal.Decimal
	VariableSymbol string
	CreatedAt      time.Time
}

type Attachment struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Filename    string
	ContentType string
	ExternalURL string
	CreatedAt   time.Time
}

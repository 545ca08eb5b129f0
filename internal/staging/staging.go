// Package staging defines the field set shared by the two staging
// representations of an invoice: parsed ISDOC uploads and Fakturoid mirror
// rows. Both kinds embed Header so the document/party/financial shape is
// declared once, with the record kind as the discriminant.
package staging

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the origin of a staging record.
type Kind string

const (
	KindParsed Kind = "parsed"
	KindMirror Kind = "mirror"
)

// Header carries the document, financial and payment-symbol fields common
// to every staging representation. Optional amounts use NullDecimal so an
// absent total is distinguishable from zero.
type Header struct {
	Number         string
	CustomID       string
	DocumentType   string
	IssuedOn       *time.Time
	DueOn          *time.Time
	Subtotal       decimal.NullDecimal
	Total          decimal.NullDecimal
	Currency       string
	ExchangeRate   decimal.NullDecimal
	VatPriceMode   string
	VariableSymbol string
	ConstantSymbol string
	SpecificSymbol string
	BankAccount    string
	IBAN           string
	SwiftBIC       string
	Note           string

	// VatRatesSummary is kept opaque: the remote schema for VAT-rate
	// breakdowns evolves independently and is never queried relationally.
	VatRatesSummary json.RawMessage
}

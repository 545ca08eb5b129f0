package connection

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

// connectionResponse deliberately omits the tokens.
type connectionResponse struct {
	ID           uuid.UUID  `json:"id"`
	AccountSlug  string     `json:"account_slug"`
	AccountName  string     `json:"account_name,omitempty"`
	ConnectedAt  time.Time  `json:"connected_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	IsActive     bool       `json:"is_active"`
}

func toConnectionResponse(conn *fakturoid.Connection) connectionResponse {
	return connectionResponse{
		ID:           conn.ID,
		AccountSlug:  conn.AccountSlug,
		AccountName:  conn.AccountName,
		ConnectedAt:  conn.ConnectedAt,
		LastSyncedAt: conn.LastSyncedAt,
		IsActive:     conn.IsActive,
	}
}

type partyResponse struct {
	Name           string `json:"name"`
	Street         string `json:"street,omitempty"`
	City           string `json:"city,omitempty"`
	Zip            string `json:"zip,omitempty"`
	Country        string `json:"country,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty"`
	VatNo          string `json:"vat_no,omitempty"`
}

func toPartyResponse(p invoice.Party) partyResponse {
	return partyResponse{
		Name:           p.Name,
		Street:         p.Street,
		City:           p.City,
		Zip:            p.Zip,
		Country:        p.Country,
		RegistrationNo: p.RegistrationNo,
		VatNo:          p.VatNo,
	}
}

type mirrorLineResponse struct {
	LineOrder         int             `json:"line_order"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitName          string          `json:"unit_name,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	VatRate           decimal.Decimal `json:"vat_rate"`
	TotalPriceWithVat decimal.Decimal `json:"total_price_with_vat"`
	SKU               string          `json:"sku,omitempty"`
}

type mirrorResponse struct {
	ID       uuid.UUID    `json:"id"`
	Kind     staging.Kind `json:"kind"`
	RemoteID int64        `json:"remote_id"`

	Number       string `json:"number"`
	CustomID     string `json:"custom_id,omitempty"`
	DocumentType string `json:"document_type"`

	Status    string `json:"status"`
	Open      bool   `json:"open"`
	Sent      bool   `json:"sent"`
	Overdue   bool   `json:"overdue"`
	Paid      bool   `json:"paid"`
	Cancelled bool   `json:"cancelled"`

	IssuedOn    *time.Time `json:"issued_on,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	PaidOn      *time.Time `json:"paid_on,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Subtotal        decimal.NullDecimal `json:"subtotal"`
	Total           decimal.NullDecimal `json:"total"`
	RemainingAmount decimal.Decimal     `json:"remaining_amount"`
	Currency        string              `json:"currency"`

	Client partyResponse `json:"client"`
	Owner  partyResponse `json:"owner"`

	VariableSymbol string `json:"variable_symbol,omitempty"`
	BankAccount    string `json:"bank_account,omitempty"`
	IBAN           string `json:"iban,omitempty"`

	Tags json.RawMessage `json:"tags,omitempty"`

	HTMLURL string `json:"html_url,omitempty"`

	FirstSeenAt  time.Time `json:"first_seen_at"`
	LastSyncedAt time.Time `json:"last_synced_at"`

	IsImported          bool       `json:"is_imported"`
	ImportedInvoiceID   *uuid.UUID `json:"imported_invoice_id,omitempty"`
	ImportedToInvoiceAt *time.Time `json:"imported_to_invoice_at,omitempty"`

	Lines []mirrorLineResponse `json:"lines,omitempty"`
}

func toMirrorResponse(rec *mirror.Record) mirrorResponse {
	resp := mirrorResponse{
		ID:       rec.ID,
		Kind:     rec.Kind(),
		RemoteID: rec.RemoteID,

		Number:       rec.Number,
		CustomID:     rec.CustomID,
		DocumentType: rec.DocumentType,

		Status:    rec.Status,
		Open:      rec.Open,
		Sent:      rec.Sent,
		Overdue:   rec.Overdue,
		Paid:      rec.Paid,
		Cancelled: rec.Cancelled,

		IssuedOn:    rec.IssuedOn,
		DueOn:       rec.DueOn,
		SentAt:      rec.SentAt,
		PaidOn:      rec.PaidOn,
		CancelledAt: rec.CancelledAt,

		Subtotal:        rec.Subtotal,
		Total:           rec.Total,
		RemainingAmount: rec.RemainingAmount,
		Currency:        rec.Currency,

		Client: toPartyResponse(rec.Client),
		Owner:  toPartyResponse(rec.Owner),

		VariableSymbol: rec.VariableSymbol,
		BankAccount:    rec.BankAccount,
		IBAN:           rec.IBAN,

		Tags: rec.Tags,

		HTMLURL: rec.HTMLURL,

		FirstSeenAt:  rec.FirstSeenAt,
		LastSyncedAt: rec.LastSyncedAt,

		IsImported:          rec.IsImported,
		ImportedInvoiceID:   rec.ImportedInvoiceID,
		ImportedToInvoiceAt: rec.ImportedToInvoiceAt,
	}

	for _, line := range rec.Lines {
		resp.Lines = append(resp.Lines, mirrorLineResponse{
			LineOrder:         line.LineOrder,
			Name:              line.Name,
			Quantity:          line.Quantity,
			UnitName:          line.UnitName,
			UnitPrice:         line.UnitPrice,
			VatRate:           line.VatRate,
			TotalPriceWithVat: line.TotalPriceWithVat,
			SKU:               line.SKU,
		})
	}

	return resp
}

func toMirrorResponseList(records []*mirror.Record) []mirrorResponse {
	resp := make([]mirrorResponse, len(records))
	for i, rec := range records {
		resp[i] = toMirrorResponse(rec)
	}

	return resp
}

package invoice

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/invoice"
)

type partyPayload struct {
	Name           string `json:"name"`
	Street         string `json:"street,omitempty"`
	City           string `json:"city,omitempty"`
	Zip            string `json:"zip,omitempty"`
	Country        string `json:"country,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty"`
	VatNo          string `json:"vat_no,omitempty"`
}

func toPartyPayload(p invoice.Party) partyPayload {
	return partyPayload{
		Name:           p.Name,
		Street:         p.Street,
		City:           p.City,
		Zip:            p.Zip,
		Country:        p.Country,
		RegistrationNo: p.RegistrationNo,
		VatNo:          p.VatNo,
	}
}

func (p partyPayload) toParty() invoice.Party {
	return invoice.Party{
		Name:           p.Name,
		Street:         p.Street,
		City:           p.City,
		Zip:            p.Zip,
		Country:        p.Country,
		RegistrationNo: p.RegistrationNo,
		VatNo:          p.VatNo,
	}
}

type createInvoiceRequest struct {
	Direction    invoice.Direction `json:"direction"`
	CustomID     string            `json:"custom_id"`
	Number       string            `json:"number"`
	DocumentType string            `json:"document_type"`

	IssuedOn *time.Time `json:"issued_on"`
	DueOn    *time.Time `json:"due_on"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`

	Client   partyPayload `json:"client"`
	Supplier partyPayload `json:"supplier"`

	VariableSymbol string `json:"variable_symbol"`
	ConstantSymbol string `json:"constant_symbol"`
	SpecificSymbol string `json:"specific_symbol"`
	BankAccount    string `json:"bank_account"`
	IBAN           string `json:"iban"`
	SwiftBIC       string `json:"swift_bic"`

	Note string `json:"note"`
}

func (r createInvoiceRequest) toInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		Direction:    r.Direction,
		CustomID:     r.CustomID,
		Number:       r.Number,
		DocumentType: r.DocumentType,

		Lifecycle: invoice.Lifecycle{
			Status:          "open",
			Open:            true,
			RemainingAmount: r.Total,
		},

		IssuedOn: r.IssuedOn,
		DueOn:    r.DueOn,

		Subtotal: r.Subtotal,
		Total:    r.Total,
		Currency: r.Currency,

		Client:   r.Client.toParty(),
		Supplier: r.Supplier.toParty(),

		VariableSymbol: r.VariableSymbol,
		ConstantSymbol: r.ConstantSymbol,
		SpecificSymbol: r.SpecificSymbol,
		BankAccount:    r.BankAccount,
		IBAN:           r.IBAN,
		SwiftBIC:       r.SwiftBIC,

		Note: r.Note,
	}
}

type updateInvoiceRequest struct {
	CustomID     *string `json:"custom_id,omitempty"`
	Number       *string `json:"number,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`

	IssuedOn *time.Time `json:"issued_on,omitempty"`
	DueOn    *time.Time `json:"due_on,omitempty"`

	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
	Currency *string          `json:"currency,omitempty"`

	Client   *partyPayload `json:"client,omitempty"`
	Supplier *partyPayload `json:"supplier,omitempty"`

	VariableSymbol *string `json:"variable_symbol,omitempty"`
	BankAccount    *string `json:"bank_account,omitempty"`
	IBAN           *string `json:"iban,omitempty"`
	SwiftBIC       *string `json:"swift_bic,omitempty"`

	Note *string `json:"note,omitempty"`
}

func (r updateInvoiceRequest) apply(inv *invoice.Invoice) {
	if r.CustomID != nil {
		inv.CustomID = *r.CustomID
	}

	if r.Number != nil {
		inv.Number = *r.Number
	}

	if r.DocumentType != nil {
		inv.DocumentType = *r.DocumentType
	}

	if r.IssuedOn != nil {
		inv.IssuedOn = r.IssuedOn
	}

	if r.DueOn != nil {
		inv.DueOn = r.DueOn
	}

	if r.Subtotal != nil {
		inv.Subtotal = *r.Subtotal
	}

	if r.Total != nil {
		inv.Total = *r.Total
	}

	if r.Currency != nil {
		inv.Currency = *r.Currency
	}

	if r.Client != nil {
		inv.Client = r.Client.toParty()
	}

	if r.Supplier != nil {
		inv.Supplier = r.Supplier.toParty()
	}

	if r.VariableSymbol != nil {
		inv.VariableSymbol = *r.VariableSymbol
	}

	if r.BankAccount != nil {
		inv.BankAccount = *r.BankAccount
	}

	if r.IBAN != nil {
		inv.IBAN = *r.IBAN
	}

	if r.SwiftBIC != nil {
		inv.SwiftBIC = *r.SwiftBIC
	}

	if r.Note != nil {
		inv.Note = *r.Note
	}
}

type lineResponse struct {
	ID                   uuid.UUID       `json:"id"`
	LineOrder            int             `json:"line_order"`
	Name                 string          `json:"name"`
	Quantity             decimal.Decimal `json:"quantity"`
	UnitName             string          `json:"unit_name,omitempty"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	VatRate              decimal.Decimal `json:"vat_rate"`
	TotalPriceWithoutVat decimal.Decimal `json:"total_price_without_vat"`
	TotalVat             decimal.Decimal `json:"total_vat"`
	TotalPriceWithVat    decimal.Decimal `json:"total_price_with_vat"`
	SKU                  string          `json:"sku,omitempty"`
}

type paymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	PaidOn         time.Time       `json:"paid_on"`
	Currency       string          `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	VariableSymbol string          `json:"variable_symbol,omitempty"`
}

type attachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	ExternalURL string    `json:"external_url,omitempty"`
}

type invoiceResponse struct {
	ID        uuid.UUID         `json:"id"`
	Direction invoice.Direction `json:"direction"`
	Source    invoice.Source    `json:"source"`

	MirrorRecordID *uuid.UUID `json:"mirror_record_id,omitempty"`
	ParsedRecordID *uuid.UUID `json:"parsed_record_id,omitempty"`

	CustomID     string `json:"custom_id,omitempty"`
	Number       string `json:"number"`
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

	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	RemainingAmount decimal.Decimal     `json:"remaining_amount"`
	Currency        string              `json:"currency"`
	ExchangeRate    decimal.NullDecimal `json:"exchange_rate"`

	Client   partyPayload `json:"client"`
	Supplier partyPayload `json:"supplier"`

	VariableSymbol string `json:"variable_symbol,omitempty"`
	ConstantSymbol string `json:"constant_symbol,omitempty"`
	SpecificSymbol string `json:"specific_symbol,omitempty"`
	BankAccount    string `json:"bank_account,omitempty"`
	IBAN           string `json:"iban,omitempty"`
	SwiftBIC       string `json:"swift_bic,omitempty"`

	Note string `json:"note,omitempty"`

	Tags            json.RawMessage `json:"tags,omitempty"`
	VatRatesSummary json.RawMessage `json:"vat_rates_summary,omitempty"`

	Lines       []lineResponse       `json:"lines,omitempty"`
	Payments    []paymentResponse    `json:"payments,omitempty"`
	Attachments []attachmentResponse `json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:        inv.ID,
		Direction: inv.Direction,
		Source:    inv.Source,

		MirrorRecordID: inv.MirrorRecordID,
		ParsedRecordID: inv.ParsedRecordID,

		CustomID:     inv.CustomID,
		Number:       inv.Number,
		DocumentType: inv.DocumentType,

		Status:    inv.Status,
		Open:      inv.Open,
		Sent:      inv.Sent,
		Overdue:   inv.Overdue,
		Paid:      inv.Paid,
		Cancelled: inv.Cancelled,

		IssuedOn:    inv.IssuedOn,
		DueOn:       inv.DueOn,
		SentAt:      inv.SentAt,
		PaidOn:      inv.PaidOn,
		CancelledAt: inv.CancelledAt,

		Subtotal:        inv.Subtotal,
		Total:           inv.Total,
		RemainingAmount: inv.RemainingAmount,
		Currency:        inv.Currency,
		ExchangeRate:    inv.ExchangeRate,

		Client:   toPartyPayload(inv.Client),
		Supplier: toPartyPayload(inv.Supplier),

		VariableSymbol: inv.VariableSymbol,
		ConstantSymbol: inv.ConstantSymbol,
		SpecificSymbol: inv.SpecificSymbol,
		BankAccount:    inv.BankAccount,
		IBAN:           inv.IBAN,
		SwiftBIC:       inv.SwiftBIC,

		Note: inv.Note,

		Tags:            inv.Tags,
		VatRatesSummary: inv.VatRatesSummary,

		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}

	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:                   line.ID,
			LineOrder:            line.LineOrder,
			Name:                 line.Name,
			Quantity:             line.Quantity,
			UnitName:             line.UnitName,
			UnitPrice:            line.UnitPrice,
			VatRate:              line.VatRate,
			TotalPriceWithoutVat: line.TotalPriceWithoutVat,
			TotalVat:             line.TotalVat,
			TotalPriceWithVat:    line.TotalPriceWithVat,
			SKU:                  line.SKU,
		})
	}

	for _, payment := range inv.Payments {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:             payment.ID,
			PaidOn:         payment.PaidOn,
			Currency:       payment.Currency,
			Amount:         payment.Amount,
			VariableSymbol: payment.VariableSymbol,
		})
	}

	for _, attachment := range inv.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentResponse{
			ID:          attachment.ID,
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			ExternalURL: attachment.ExternalURL,
		})
	}

	return resp
}

func toResponseList(invoices []*invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toResponse(inv)
	}

	return resp
}

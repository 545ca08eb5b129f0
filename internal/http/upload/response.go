package upload

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
	"github.com/mdolezal/isdocsync/internal/staging/processing"
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

type headerPayload struct {
	Number          string              `json:"number"`
	CustomID        string              `json:"custom_id,omitempty"`
	DocumentType    string              `json:"document_type"`
	IssuedOn        *time.Time          `json:"issued_on,omitempty"`
	DueOn           *time.Time          `json:"due_on,omitempty"`
	Subtotal        decimal.NullDecimal `json:"subtotal"`
	Total           decimal.NullDecimal `json:"total"`
	Currency        string              `json:"currency,omitempty"`
	ExchangeRate    decimal.NullDecimal `json:"exchange_rate"`
	VatPriceMode    string              `json:"vat_price_mode,omitempty"`
	VariableSymbol  string              `json:"variable_symbol,omitempty"`
	ConstantSymbol  string              `json:"constant_symbol,omitempty"`
	SpecificSymbol  string              `json:"specific_symbol,omitempty"`
	BankAccount     string              `json:"bank_account,omitempty"`
	IBAN            string              `json:"iban,omitempty"`
	SwiftBIC        string              `json:"swift_bic,omitempty"`
	Note            string              `json:"note,omitempty"`
	VatRatesSummary json.RawMessage     `json:"vat_rates_summary,omitempty"`
}

func toHeaderPayload(h staging.Header) headerPayload {
	return headerPayload{
		Number:          h.Number,
		CustomID:        h.CustomID,
		DocumentType:    h.DocumentType,
		IssuedOn:        h.IssuedOn,
		DueOn:           h.DueOn,
		Subtotal:        h.Subtotal,
		Total:           h.Total,
		Currency:        h.Currency,
		ExchangeRate:    h.ExchangeRate,
		VatPriceMode:    h.VatPriceMode,
		VariableSymbol:  h.VariableSymbol,
		ConstantSymbol:  h.ConstantSymbol,
		SpecificSymbol:  h.SpecificSymbol,
		BankAccount:     h.BankAccount,
		IBAN:            h.IBAN,
		SwiftBIC:        h.SwiftBIC,
		Note:            h.Note,
		VatRatesSummary: h.VatRatesSummary,
	}
}

func (p headerPayload) toHeader() staging.Header {
	return staging.Header{
		Number:          p.Number,
		CustomID:        p.CustomID,
		DocumentType:    p.DocumentType,
		IssuedOn:        p.IssuedOn,
		DueOn:           p.DueOn,
		Subtotal:        p.Subtotal,
		Total:           p.Total,
		Currency:        p.Currency,
		ExchangeRate:    p.ExchangeRate,
		VatPriceMode:    p.VatPriceMode,
		VariableSymbol:  p.VariableSymbol,
		ConstantSymbol:  p.ConstantSymbol,
		SpecificSymbol:  p.SpecificSymbol,
		BankAccount:     p.BankAccount,
		IBAN:            p.IBAN,
		SwiftBIC:        p.SwiftBIC,
		Note:            p.Note,
		VatRatesSummary: p.VatRatesSummary,
	}
}

type attemptResponse struct {
	ID            uuid.UUID         `json:"id"`
	AttemptNumber int               `json:"attempt_number"`
	Status        processing.Status `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

type recordResponse struct {
	ID          uuid.UUID    `json:"id"`
	Kind        staging.Kind `json:"kind"`
	FileName    string       `json:"file_name"`
	FileSize    int64        `json:"file_size"`
	ContentType string       `json:"content_type"`
	UploadedAt  time.Time    `json:"uploaded_at"`

	Status           parsed.Status `json:"status"`
	ParsedAt         *time.Time    `json:"parsed_at,omitempty"`
	IsValid          bool          `json:"is_valid"`
	ValidationErrors string        `json:"validation_errors,omitempty"`

	headerPayload

	Supplier partyPayload `json:"supplier"`
	Customer partyPayload `json:"customer"`

	Lines json.RawMessage `json:"lines,omitempty"`

	ImportedInvoiceID   *uuid.UUID `json:"imported_invoice_id,omitempty"`
	ImportedToInvoiceAt *time.Time `json:"imported_to_invoice_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Attempts []attemptResponse `json:"attempts,omitempty"`
}

func toResponse(rec *parsed.Record) recordResponse {
	resp := recordResponse{
		ID:          rec.ID,
		Kind:        rec.Kind(),
		FileName:    rec.FileName,
		FileSize:    rec.FileSize,
		ContentType: rec.ContentType,
		UploadedAt:  rec.UploadedAt,

		Status:           rec.Status,
		ParsedAt:         rec.ParsedAt,
		IsValid:          rec.IsValid,
		ValidationErrors: rec.ValidationErrors,

		headerPayload: toHeaderPayload(rec.Header),

		Supplier: toPartyPayload(rec.Supplier),
		Customer: toPartyPayload(rec.Customer),

		Lines: rec.LinesJSON,

		ImportedInvoiceID:   rec.ImportedInvoiceID,
		ImportedToInvoiceAt: rec.ImportedToInvoiceAt,

		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	for _, attempt := range rec.Attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{
			ID:            attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			Status:        attempt.Status,
			StartedAt:     attempt.StartedAt,
			CompletedAt:   attempt.CompletedAt,
			ErrorMessage:  attempt.ErrorMessage,
		})
	}

	return resp
}

func toResponseList(records []*parsed.Record) []recordResponse {
	resp := make([]recordResponse, len(records))
	for i, rec := range records {
		resp[i] = toResponse(rec)
	}

	return resp
}

// reviewRequest is the editable slice of a record: header and parties. The
// lifecycle, blob and import-tracking fields are not reviewable.
type reviewRequest struct {
	headerPayload

	Supplier partyPayload `json:"supplier"`
	Customer partyPayload `json:"customer"`
}

func (r reviewRequest) toRecord() *parsed.Record {
	return &parsed.Record{
		Header:   r.headerPayload.toHeader(),
		Supplier: r.Supplier.toParty(),
		Customer: r.Customer.toParty(),
	}
}

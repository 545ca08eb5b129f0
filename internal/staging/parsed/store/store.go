package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/staging/parsed"
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

const recordColumns = `
	id, user_id, file_name, file_size, content_type, uploaded_at, blob_name,
	status, parsed_at, is_valid, validation_errors,
	number, custom_id, document_type, issued_on, due_on,
	subtotal, total, currency, exchange_rate, vat_price_mode,
	variable_symbol, constant_symbol, specific_symbol,
	bank_account, iban, swift_bic, note, vat_rates_summary,
	supplier_name, supplier_street, supplier_city, supplier_zip, supplier_country,
	supplier_registration_no, supplier_vat_no,
	customer_name, customer_street, customer_city, customer_zip, customer_country,
	customer_registration_no, customer_vat_no,
	raw_json, lines_json,
	imported_invoice_id, imported_to_invoice_at,
	created_at, updated_at
`

func scanRecord(s scanner) (*parsed.Record, error) {
	var rec parsed.Record

	if err := s.Scan(
		&rec.ID, &rec.UserID, &rec.FileName, &rec.FileSize, &rec.ContentType,
		&rec.UploadedAt, &rec.BlobName,
		&rec.Status, &rec.ParsedAt, &rec.IsValid, &rec.ValidationErrors,
		&rec.Number, &rec.CustomID, &rec.DocumentType, &rec.IssuedOn, &rec.DueOn,
		&rec.Subtotal, &rec.Total, &rec.Currency, &rec.ExchangeRate, &rec.VatPriceMode,
		&rec.VariableSymbol, &rec.ConstantSymbol, &rec.SpecificSymbol,
		&rec.BankAccount, &rec.IBAN, &rec.SwiftBIC, &rec.Note, &rec.VatRatesSummary,
		&rec.Supplier.Name, &rec.Supplier.Street, &rec.Supplier.City, &rec.Supplier.Zip,
		&rec.Supplier.Country, &rec.Supplier.RegistrationNo, &rec.Supplier.VatNo,
		&rec.Customer.Name, &rec.Customer.Street, &rec.Customer.City, &rec.Customer.Zip,
		&rec.Customer.Country, &rec.Customer.RegistrationNo, &rec.Customer.VatNo,
		&rec.RawJSON, &rec.LinesJSON,
		&rec.ImportedInvoiceID, &rec.ImportedToInvoiceAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec *parsed.Record) error {
	query := `
		INSERT INTO parsed_records (
			id, user_id, file_name, file_size, content_type, uploaded_at, blob_name,
			status, parsed_at, is_valid, validation_errors,
			number, custom_id, document_type, issued_on, due_on,
			subtotal, total, currency, exchange_rate, vat_price_mode,
			variable_symbol, constant_symbol, specific_symbol,
			bank_account, iban, swift_bic, note, vat_rates_summary,
			supplier_name, supplier_street, supplier_city, supplier_zip, supplier_country,
			supplier_registration_no, supplier_vat_no,
			customer_name, customer_street, customer_city, customer_zip, customer_country,
			customer_registration_no, customer_vat_no,
			raw_json, lines_json,
			imported_invoice_id, imported_to_invoice_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, $47, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.ID, rec.UserID, rec.FileName, rec.FileSize, rec.ContentType,
		rec.UploadedAt, rec.BlobName,
		rec.Status, rec.ParsedAt, rec.IsValid, rec.ValidationErrors,
		rec.Number, rec.CustomID, rec.DocumentType, rec.IssuedOn, rec.DueOn,
		rec.Subtotal, rec.Total, rec.Currency, rec.ExchangeRate, rec.VatPriceMode,
		rec.VariableSymbol, rec.ConstantSymbol, rec.SpecificSymbol,
		rec.BankAccount, rec.IBAN, rec.SwiftBIC, rec.Note, nullableJSON(rec.VatRatesSummary),
		rec.Supplier.Name, rec.Supplier.Street, rec.Supplier.City, rec.Supplier.Zip,
		rec.Supplier.Country, rec.Supplier.RegistrationNo, rec.Supplier.VatNo,
		rec.Customer.Name, rec.Customer.Street, rec.Customer.City, rec.Customer.Zip,
		rec.Customer.Country, rec.Customer.RegistrationNo, rec.Customer.VatNo,
		nullableJSON(rec.RawJSON), nullableJSON(rec.LinesJSON),
		rec.ImportedInvoiceID, rec.ImportedToInvoiceAt,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating parsed record: %w", err)
	}

	return nil
}

func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (*parsed.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM parsed_records WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, parsed.ErrNotFound
		}

		return nil, fmt.Errorf("getting parsed record: %w", err)
	}

	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context, userID uuid.UUID, status *parsed.Status) ([]*parsed.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM parsed_records WHERE user_id = $1`
	args := []any{userID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}

	query += ` ORDER BY uploaded_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing parsed records: %w", err)
	}
	defer rows.Close()

	var recs []*parsed.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning parsed record: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parsed records: %w", err)
	}

	return recs, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec *parsed.Record) error {
	query := `
		UPDATE parsed_records SET
			status = $1, parsed_at = $2, is_valid = $3, validation_errors = $4,
			number = $5, custom_id = $6, document_type = $7, issued_on = $8, due_on = $9,
			subtotal = $10, total = $11, currency = $12, exchange_rate = $13, vat_price_mode = $14,
			variable_symbol = $15, constant_symbol = $16, specific_symbol = $17,
			bank_account = $18, iban = $19, swift_bic = $20, note = $21, vat_rates_summary = $22,
			supplier_name = $23, supplier_street = $24, supplier_city = $25, supplier_zip = $26,
			supplier_country = $27, supplier_registration_no = $28, supplier_vat_no = $29,
			customer_name = $30, customer_street = $31, customer_city = $32, customer_zip = $33,
			customer_country = $34, customer_registration_no = $35, customer_vat_no = $36,
			raw_json = $37, lines_json = $38,
			updated_at = NOW()
		WHERE id = $39
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.Status, rec.ParsedAt, rec.IsValid, rec.ValidationErrors,
		rec.Number, rec.CustomID, rec.DocumentType, rec.IssuedOn, rec.DueOn,
		rec.Subtotal, rec.Total, rec.Currency, rec.ExchangeRate, rec.VatPriceMode,
		rec.VariableSymbol, rec.ConstantSymbol, rec.SpecificSymbol,
		rec.BankAccount, rec.IBAN, rec.SwiftBIC, rec.Note, nullableJSON(rec.VatRatesSummary),
		rec.Supplier.Name, rec.Supplier.Street, rec.Supplier.City, rec.Supplier.Zip,
		rec.Supplier.Country, rec.Supplier.RegistrationNo, rec.Supplier.VatNo,
		rec.Customer.Name, rec.Customer.Street, rec.Customer.City, rec.Customer.Zip,
		rec.Customer.Country, rec.Customer.RegistrationNo, rec.Customer.VatNo,
		nullableJSON(rec.RawJSON), nullableJSON(rec.LinesJSON),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating parsed record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating parsed record: %w", err)
	}

	if affected == 0 {
		return parsed.ErrNotFound
	}

	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status parsed.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE parsed_records SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating parsed record status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating parsed record status: %w", err)
	}

	if affected == 0 {
		return parsed.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parsed_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting parsed record: %w", err)
	}

	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return b
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/importer"
	"github.com/mdolezal/isdocsync/internal/invoice"
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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const invoiceColumns = `
	id, user_id, direction, source, mirror_record_id, parsed_record_id,
	custom_id, number, document_type,
	status, open, sent, overdue, paid, cancelled,
	sent_at, paid_on, cancelled_at, remaining_amount,
	issued_on, due_on, due,
	subtotal, total, currency, exchange_rate, vat_price_mode,
	client_name, client_street, client_city, client_zip, client_country,
	client_registration_no, client_vat_no,
	client_has_delivery_address, client_delivery_name, client_delivery_street,
	client_delivery_city, client_delivery_zip, client_delivery_country,
	supplier_name, supplier_street, supplier_city, supplier_zip, supplier_country,
	supplier_registration_no, supplier_vat_no,
	variable_symbol, constant_symbol, specific_symbol,
	bank_account, iban, swift_bic,
	note, footer_note, private_note,
	tags, vat_rates_summary,
	created_at, updated_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	if err := s.Scan(
		&inv.ID, &inv.UserID, &inv.Direction, &inv.Source, &inv.MirrorRecordID, &inv.ParsedRecordID,
		&inv.CustomID, &inv.Number, &inv.DocumentType,
		&inv.Status, &inv.Open, &inv.Sent, &inv.Overdue, &inv.Paid, &inv.Cancelled,
		&inv.SentAt, &inv.PaidOn, &inv.CancelledAt, &inv.RemainingAmount,
		&inv.IssuedOn, &inv.DueOn, &inv.Due,
		&inv.Subtotal, &inv.Total, &inv.Currency, &inv.ExchangeRate, &inv.VatPriceMode,
		&inv.Client.Name, &inv.Client.Street, &inv.Client.City, &inv.Client.Zip, &inv.Client.Country,
		&inv.Client.RegistrationNo, &inv.Client.VatNo,
		&inv.ClientHasDeliveryAddress, &inv.ClientDelivery.Name, &inv.ClientDelivery.Street,
		&inv.ClientDelivery.City, &inv.ClientDelivery.Zip, &inv.ClientDelivery.Country,
		&inv.Supplier.Name, &inv.Supplier.Street, &inv.Supplier.City, &inv.Supplier.Zip, &inv.Supplier.Country,
		&inv.Supplier.RegistrationNo, &inv.Supplier.VatNo,
		&inv.VariableSymbol, &inv.ConstantSymbol, &inv.SpecificSymbol,
		&inv.BankAccount, &inv.IBAN, &inv.SwiftBIC,
		&inv.Note, &inv.FooterNote, &inv.PrivateNote,
		&inv.Tags, &inv.VatRatesSummary,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &inv, nil
}

func insertInvoice(ctx context.Context, q querier, inv *invoice.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	query := `
		INSERT INTO invoices (
			id, user_id, direction, source, mirror_record_id, parsed_record_id,
			custom_id, number, document_type,
			status, open, sent, overdue, paid, cancelled,
			sent_at, paid_on, cancelled_at, remaining_amount,
			issued_on, due_on, due,
			subtotal, total, currency, exchange_rate, vat_price_mode,
			client_name, client_street, client_city, client_zip, client_country,
			client_registration_no, client_vat_no,
			client_has_delivery_address, client_delivery_name, client_delivery_street,
			client_delivery_city, client_delivery_zip, client_delivery_country,
			supplier_name, supplier_street, supplier_city, supplier_zip, supplier_country,
			supplier_registration_no, supplier_vat_no,
			variable_symbol, constant_symbol, specific_symbol,
			bank_account, iban, swift_bic,
			note, footer_note, private_note,
			tags, vat_rates_summary,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, $47, $48, $49, $50,
			$51, $52, $53, $54, $55, $56, $57, $58, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		inv.ID, inv.UserID, inv.Direction, inv.Source, inv.MirrorRecordID, inv.ParsedRecordID,
		inv.CustomID, inv.Number, inv.DocumentType,
		inv.Status, inv.Open, inv.Sent, inv.Overdue, inv.Paid, inv.Cancelled,
		inv.SentAt, inv.PaidOn, inv.CancelledAt, inv.RemainingAmount,
		inv.IssuedOn, inv.DueOn, inv.Due,
		inv.Subtotal, inv.Total, inv.Currency, inv.ExchangeRate, inv.VatPriceMode,
		inv.Client.Name, inv.Client.Street, inv.Client.City, inv.Client.Zip, inv.Client.Country,
		inv.Client.RegistrationNo, inv.Client.VatNo,
		inv.ClientHasDeliveryAddress, inv.ClientDelivery.Name, inv.ClientDelivery.Street,
		inv.ClientDelivery.City, inv.ClientDelivery.Zip, inv.ClientDelivery.Country,
		inv.Supplier.Name, inv.Supplier.Street, inv.Supplier.City, inv.Supplier.Zip, inv.Supplier.Country,
		inv.Supplier.RegistrationNo, inv.Supplier.VatNo,
		inv.VariableSymbol, inv.ConstantSymbol, inv.SpecificSymbol,
		inv.BankAccount, inv.IBAN, inv.SwiftBIC,
		inv.Note, inv.FooterNote, inv.PrivateNote,
		nullableJSON(inv.Tags), nullableJSON(inv.VatRatesSummary),
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}

	return insertChildren(ctx, q, inv)
}

func insertChildren(ctx context.Context, q querier, inv *invoice.Invoice) error {
	lineQuery := `
		INSERT INTO invoice_lines (
			id, invoice_id, line_order, name, quantity, unit_name, unit_price, vat_rate,
			unit_price_without_vat, unit_price_with_vat,
			total_price_without_vat, total_vat, total_price_with_vat, sku
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.ID = uuid.New()
		line.InvoiceID = inv.ID

		if _, err := q.ExecContext(ctx, lineQuery,
			line.ID, line.InvoiceID, line.LineOrder, line.Name, line.Quantity, line.UnitName,
			line.UnitPrice, line.VatRate, line.UnitPriceWithoutVat, line.UnitPriceWithVat,
			line.TotalPriceWithoutVat, line.TotalVat, line.TotalPriceWithVat, line.SKU,
		); err != nil {
			return fmt.Errorf("inserting invoice line: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO invoice_payments (id, invoice_id, paid_on, currency, amount, variable_symbol, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	for i := range inv.Payments {
		p := &inv.Payments[i]
		p.ID = uuid.New()
		p.InvoiceID = inv.ID

		if _, err := q.ExecContext(ctx, paymentQuery,
			p.ID, p.InvoiceID, p.PaidOn, p.Currency, p.Amount, p.VariableSymbol,
		); err != nil {
			return fmt.Errorf("inserting invoice payment: %w", err)
		}
	}

	attachmentQuery := `
		INSERT INTO invoice_attachments (id, invoice_id, filename, content_type, external_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	for i := range inv.Attachments {
		a := &inv.Attachments[i]
		a.ID = uuid.New()
		a.InvoiceID = inv.ID

		if _, err := q.ExecContext(ctx, attachmentQuery,
			a.ID, a.InvoiceID, a.Filename, a.ContentType, a.ExternalURL,
		); err != nil {
			return fmt.Errorf("inserting invoice attachment: %w", err)
		}
	}

	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning create tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertInvoice(ctx, tx, inv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing create: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	if err := s.loadChildren(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.Direction != nil {
		query += fmt.Sprintf(" AND direction = $%d", len(args)+1)
		args = append(args, *filter.Direction)
	}

	query += fmt.Sprintf(" ORDER BY issued_on DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

func (s *Store) CountInvoices(ctx context.Context, userID uuid.UUID, direction *invoice.Direction) (int, error) {
	query := `SELECT COUNT(*) FROM invoices WHERE user_id = $1`
	args := []any{userID}

	if direction != nil {
		query += ` AND direction = $2`
		args = append(args, *direction)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting invoices: %w", err)
	}

	return count, nil
}

// UpdateInvoice rewrites the editable header, party and note fields.
// Lifecycle fields are owned by resync and children by the import, neither
// is touched here.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices SET
			custom_id = $1, number = $2, document_type = $3,
			issued_on = $4, due_on = $5, due = $6,
			subtotal = $7, total = $8, currency = $9, exchange_rate = $10, vat_price_mode = $11,
			client_name = $12, client_street = $13, client_city = $14, client_zip = $15,
			client_country = $16, client_registration_no = $17, client_vat_no = $18,
			client_has_delivery_address = $19, client_delivery_name = $20, client_delivery_street = $21,
			client_delivery_city = $22, client_delivery_zip = $23, client_delivery_country = $24,
			supplier_name = $25, supplier_street = $26, supplier_city = $27, supplier_zip = $28,
			supplier_country = $29, supplier_registration_no = $30, supplier_vat_no = $31,
			variable_symbol = $32, constant_symbol = $33, specific_symbol = $34,
			bank_account = $35, iban = $36, swift_bic = $37,
			note = $38, footer_note = $39, private_note = $40,
			tags = $41, vat_rates_summary = $42,
			updated_at = NOW()
		WHERE id = $43
	`

	res, err := s.db.ExecContext(ctx, query,
		inv.CustomID, inv.Number, inv.DocumentType,
		inv.IssuedOn, inv.DueOn, inv.Due,
		inv.Subtotal, inv.Total, inv.Currency, inv.ExchangeRate, inv.VatPriceMode,
		inv.Client.Name, inv.Client.Street, inv.Client.City, inv.Client.Zip,
		inv.Client.Country, inv.Client.RegistrationNo, inv.Client.VatNo,
		inv.ClientHasDeliveryAddress, inv.ClientDelivery.Name, inv.ClientDelivery.Street,
		inv.ClientDelivery.City, inv.ClientDelivery.Zip, inv.ClientDelivery.Country,
		inv.Supplier.Name, inv.Supplier.Street, inv.Supplier.City, inv.Supplier.Zip,
		inv.Supplier.Country, inv.Supplier.RegistrationNo, inv.Supplier.VatNo,
		inv.VariableSymbol, inv.ConstantSymbol, inv.SpecificSymbol,
		inv.BankAccount, inv.IBAN, inv.SwiftBIC,
		inv.Note, inv.FooterNote, inv.PrivateNote,
		nullableJSON(inv.Tags), nullableJSON(inv.VatRatesSummary),
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	if affected == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

// UpdateLifecycle overwrites exactly the remote-authoritative state fields.
func (s *Store) UpdateLifecycle(ctx context.Context, id uuid.UUID, lc invoice.Lifecycle) error {
	query := `
		UPDATE invoices SET
			status = $1, open = $2, sent = $3, overdue = $4, paid = $5, cancelled = $6,
			sent_at = $7, paid_on = $8, cancelled_at = $9, remaining_amount = $10,
			updated_at = NOW()
		WHERE id = $11
	`

	res, err := s.db.ExecContext(ctx, query,
		lc.Status, lc.Open, lc.Sent, lc.Overdue, lc.Paid, lc.Cancelled,
		lc.SentAt, lc.PaidOn, lc.CancelledAt, lc.RemainingAmount,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating invoice lifecycle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating invoice lifecycle: %w", err)
	}

	if affected == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	return nil
}

func (s *Store) loadChildren(ctx context.Context, inv *invoice.Invoice) error {
	lineRows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, line_order, name, quantity, unit_name, unit_price, vat_rate,
			unit_price_without_vat, unit_price_with_vat,
			total_price_without_vat, total_vat, total_price_with_vat, sku
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order ASC`, inv.ID)
	if err != nil {
		return fmt.Errorf("loading invoice lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line invoice.Line
		if err := lineRows.Scan(
			&line.ID, &line.InvoiceID, &line.LineOrder, &line.Name, &line.Quantity, &line.UnitName,
			&line.UnitPrice, &line.VatRate, &line.UnitPriceWithoutVat, &line.UnitPriceWithVat,
			&line.TotalPriceWithoutVat, &line.TotalVat, &line.TotalPriceWithVat, &line.SKU,
		); err != nil {
			return fmt.Errorf("scanning invoice line: %w", err)
		}

		inv.Lines = append(inv.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return fmt.Errorf("iterating invoice lines: %w", err)
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, paid_on, currency, amount, variable_symbol, created_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY paid_on ASC`, inv.ID)
	if err != nil {
		return fmt.Errorf("loading invoice payments: %w", err)
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		var p invoice.Payment
		if err := paymentRows.Scan(
			&p.ID, &p.InvoiceID, &p.PaidOn, &p.Currency, &p.Amount, &p.VariableSymbol, &p.CreatedAt,
		); err != nil {
			return fmt.Errorf("scanning invoice payment: %w", err)
		}

		inv.Payments = append(inv.Payments, p)
	}

	if err := paymentRows.Err(); err != nil {
		return fmt.Errorf("iterating invoice payments: %w", err)
	}

	attachmentRows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, filename, content_type, external_url, created_at
		FROM invoice_attachments WHERE invoice_id = $1`, inv.ID)
	if err != nil {
		return fmt.Errorf("loading invoice attachments: %w", err)
	}
	defer attachmentRows.Close()

	for attachmentRows.Next() {
		var a invoice.Attachment
		if err := attachmentRows.Scan(
			&a.ID, &a.InvoiceID, &a.Filename, &a.ContentType, &a.ExternalURL, &a.CreatedAt,
		); err != nil {
			return fmt.Errorf("scanning invoice attachment: %w", err)
		}

		inv.Attachments = append(inv.Attachments, a)
	}

	if err := attachmentRows.Err(); err != nil {
		return fmt.Errorf("iterating invoice attachments: %w", err)
	}

	return nil
}

// importLockKey hashes the staging record id into an advisory lock key so
// two imports of the same record serialize instead of racing.
func importLockKey(stagingRecordID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(stagingRecordID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, stagingRecordID uuid.UUID) (importer.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	lockKey := importLockKey(stagingRecordID)
	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	return insertInvoice(ctx, itx.tx, inv)
}

// MarkMirrorImported consumes the mirror row. The is_imported guard makes
// the second import of the same row fail even across concurrent callers.
func (itx *importTx) MarkMirrorImported(ctx context.Context, recordID, invoiceID uuid.UUID) error {
	res, err := itx.tx.ExecContext(ctx, `
		UPDATE mirror_records
		SET is_imported = TRUE, imported_invoice_id = $1, imported_to_invoice_at = NOW()
		WHERE id = $2 AND is_imported = FALSE`,
		invoiceID, recordID,
	)
	if err != nil {
		return fmt.Errorf("marking mirror record imported: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking mirror record imported: %w", err)
	}

	if affected == 0 {
		return importer.ErrAlreadyImported
	}

	return nil
}

func (itx *importTx) MarkParsedImported(ctx context.Context, recordID, invoiceID uuid.UUID) error {
	res, err := itx.tx.ExecContext(ctx, `
		UPDATE parsed_records
		SET status = $1, imported_invoice_id = $2, imported_to_invoice_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status != $1`,
		"imported", invoiceID, recordID,
	)
	if err != nil {
		return fmt.Errorf("marking parsed record imported: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking parsed record imported: %w", err)
	}

	if affected == 0 {
		return importer.ErrAlreadyImported
	}

	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return b
}

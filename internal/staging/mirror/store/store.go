package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const recordColumns = `
	id, connection_id, remote_id, token,
	number, custom_id, document_type, issued_on, due_on,
	subtotal, total, currency, exchange_rate, vat_price_mode,
	variable_symbol, constant_symbol, specific_symbol,
	bank_account, iban, swift_bic, note, vat_rates_summary,
	status, open, sent, overdue, paid, cancelled,
	sent_at, paid_on, cancelled_at, due, remaining_amount,
	client_name, client_street, client_city, client_zip, client_country,
	client_registration_no, client_vat_no,
	client_has_delivery_address, client_delivery_name, client_delivery_street,
	client_delivery_city, client_delivery_zip, client_delivery_country,
	owner_name, owner_street, owner_city, owner_zip, owner_country,
	owner_registration_no, owner_vat_no,
	footer_note, private_note, tags, paid_advances, html_url, public_html_url,
	remote_updated_at, first_seen_at, last_synced_at,
	is_imported, imported_invoice_id, imported_to_invoice_at
`

func scanRecord(s scanner) (*mirror.Record, error) {
	var rec mirror.Record

	if err := s.Scan(
		&rec.ID, &rec.ConnectionID, &rec.RemoteID, &rec.Token,
		&rec.Number, &rec.CustomID, &rec.DocumentType, &rec.IssuedOn, &rec.DueOn,
		&rec.Subtotal, &rec.Total, &rec.Currency, &rec.ExchangeRate, &rec.VatPriceMode,
		&rec.VariableSymbol, &rec.ConstantSymbol, &rec.SpecificSymbol,
		&rec.BankAccount, &rec.IBAN, &rec.SwiftBIC, &rec.Note, &rec.VatRatesSummary,
		&rec.Status, &rec.Open, &rec.Sent, &rec.Overdue, &rec.Paid, &rec.Cancelled,
		&rec.SentAt, &rec.PaidOn, &rec.CancelledAt, &rec.Due, &rec.RemainingAmount,
		&rec.Client.Name, &rec.Client.Street, &rec.Client.City, &rec.Client.Zip, &rec.Client.Country,
		&rec.Client.RegistrationNo, &rec.Client.VatNo,
		&rec.ClientHasDeliveryAddress, &rec.ClientDelivery.Name, &rec.ClientDelivery.Street,
		&rec.ClientDelivery.City, &rec.ClientDelivery.Zip, &rec.ClientDelivery.Country,
		&rec.Owner.Name, &rec.Owner.Street, &rec.Owner.City, &rec.Owner.Zip, &rec.Owner.Country,
		&rec.Owner.RegistrationNo, &rec.Owner.VatNo,
		&rec.FooterNote, &rec.PrivateNote, &rec.Tags, &rec.PaidAdvances, &rec.HTMLURL, &rec.PublicHTMLURL,
		&rec.RemoteUpdatedAt, &rec.FirstSeenAt, &rec.LastSyncedAt,
		&rec.IsImported, &rec.ImportedInvoiceID, &rec.ImportedToInvoiceAt,
	); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*mirror.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM mirror_records WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mirror.ErrNotFound
		}

		return nil, fmt.Errorf("getting mirror record: %w", err)
	}

	if err := s.loadChildren(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Store) GetByRemoteID(ctx context.Context, connectionID uuid.UUID, remoteID int64) (*mirror.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM mirror_records WHERE connection_id = $1 AND remote_id = $2`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, connectionID, remoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mirror.ErrNotFound
		}

		return nil, fmt.Errorf("getting mirror record by remote id: %w", err)
	}

	if err := s.loadChildren(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Store) ListByConnection(ctx context.Context, connectionID uuid.UUID, page, pageSize int) ([]*mirror.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM mirror_records
		WHERE connection_id = $1
		ORDER BY issued_on DESC NULLS LAST
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, connectionID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing mirror records: %w", err)
	}
	defer rows.Close()

	var recs []*mirror.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mirror record: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mirror records: %w", err)
	}

	return recs, nil
}

func (s *Store) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mirror_records WHERE connection_id = $1`, connectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting mirror records: %w", err)
	}

	return count, nil
}

// Upsert inserts or fully replaces the mirror row for (connectionID,
// rec.RemoteID). On update every scalar field and all child collections are
// replaced with the remote's current state; first_seen_at and the
// import-tracking columns are preserved. The remote always returns complete
// state, so diffing children would gain nothing.
func (s *Store) Upsert(ctx context.Context, connectionID uuid.UUID, rec *mirror.Record) (*mirror.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning upsert tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO mirror_records (
			id, connection_id, remote_id, token,
			number, custom_id, document_type, issued_on, due_on,
			subtotal, total, currency, exchange_rate, vat_price_mode,
			variable_symbol, constant_symbol, specific_symbol,
			bank_account, iban, swift_bic, note, vat_rates_summary,
			status, open, sent, overdue, paid, cancelled,
			sent_at, paid_on, cancelled_at, due, remaining_amount,
			client_name, client_street, client_city, client_zip, client_country,
			client_registration_no, client_vat_no,
			client_has_delivery_address, client_delivery_name, client_delivery_street,
			client_delivery_city, client_delivery_zip, client_delivery_country,
			owner_name, owner_street, owner_city, owner_zip, owner_country,
			owner_registration_no, owner_vat_no,
			footer_note, private_note, tags, paid_advances, html_url, public_html_url,
			remote_updated_at, first_seen_at, last_synced_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, $47, $48, $49, $50,
			$51, $52, $53, $54, $55, $56, $57, $58, $59, $60,
			NOW(), NOW()
		)
		ON CONFLICT (connection_id, remote_id) DO UPDATE SET
			token = EXCLUDED.token,
			number = EXCLUDED.number,
			custom_id = EXCLUDED.custom_id,
			document_type = EXCLUDED.document_type,
			issued_on = EXCLUDED.issued_on,
			due_on = EXCLUDED.due_on,
			subtotal = EXCLUDED.subtotal,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			exchange_rate = EXCLUDED.exchange_rate,
			vat_price_mode = EXCLUDED.vat_price_mode,
			variable_symbol = EXCLUDED.variable_symbol,
			constant_symbol = EXCLUDED.constant_symbol,
			specific_symbol = EXCLUDED.specific_symbol,
			bank_account = EXCLUDED.bank_account,
			iban = EXCLUDED.iban,
			swift_bic = EXCLUDED.swift_bic,
			note = EXCLUDED.note,
			vat_rates_summary = EXCLUDED.vat_rates_summary,
			status = EXCLUDED.status,
			open = EXCLUDED.open,
			sent = EXCLUDED.sent,
			overdue = EXCLUDED.overdue,
			paid = EXCLUDED.paid,
			cancelled = EXCLUDED.cancelled,
			sent_at = EXCLUDED.sent_at,
			paid_on = EXCLUDED.paid_on,
			cancelled_at = EXCLUDED.cancelled_at,
			due = EXCLUDED.due,
			remaining_amount = EXCLUDED.remaining_amount,
			client_name = EXCLUDED.client_name,
			client_street = EXCLUDED.client_street,
			client_city = EXCLUDED.client_city,
			client_zip = EXCLUDED.client_zip,
			client_country = EXCLUDED.client_country,
			client_registration_no = EXCLUDED.client_registration_no,
			client_vat_no = EXCLUDED.client_vat_no,
			client_has_delivery_address = EXCLUDED.client_has_delivery_address,
			client_delivery_name = EXCLUDED.client_delivery_name,
			client_delivery_street = EXCLUDED.client_delivery_street,
			client_delivery_city = EXCLUDED.client_delivery_city,
			client_delivery_zip = EXCLUDED.client_delivery_zip,
			client_delivery_country = EXCLUDED.client_delivery_country,
			owner_name = EXCLUDED.owner_name,
			owner_street = EXCLUDED.owner_street,
			owner_city = EXCLUDED.owner_city,
			owner_zip = EXCLUDED.owner_zip,
			owner_country = EXCLUDED.owner_country,
			owner_registration_no = EXCLUDED.owner_registration_no,
			owner_vat_no = EXCLUDED.owner_vat_no,
			footer_note = EXCLUDED.footer_note,
			private_note = EXCLUDED.private_note,
			tags = EXCLUDED.tags,
			paid_advances = EXCLUDED.paid_advances,
			html_url = EXCLUDED.html_url,
			public_html_url = EXCLUDED.public_html_url,
			remote_updated_at = EXCLUDED.remote_updated_at,
			last_synced_at = NOW()
		RETURNING id, first_seen_at, last_synced_at
	`

	err = tx.QueryRowContext(ctx, query,
		uuid.New(), connectionID, rec.RemoteID, rec.Token,
		rec.Number, rec.CustomID, rec.DocumentType, rec.IssuedOn, rec.DueOn,
		rec.Subtotal, rec.Total, rec.Currency, rec.ExchangeRate, rec.VatPriceMode,
		rec.VariableSymbol, rec.ConstantSymbol, rec.SpecificSymbol,
		rec.BankAccount, rec.IBAN, rec.SwiftBIC, rec.Note, nullableJSON(rec.VatRatesSummary),
		rec.Status, rec.Open, rec.Sent, rec.Overdue, rec.Paid, rec.Cancelled,
		rec.SentAt, rec.PaidOn, rec.CancelledAt, rec.Due, rec.RemainingAmount,
		rec.Client.Name, rec.Client.Street, rec.Client.City, rec.Client.Zip, rec.Client.Country,
		rec.Client.RegistrationNo, rec.Client.VatNo,
		rec.ClientHasDeliveryAddress, rec.ClientDelivery.Name, rec.ClientDelivery.Street,
		rec.ClientDelivery.City, rec.ClientDelivery.Zip, rec.ClientDelivery.Country,
		rec.Owner.Name, rec.Owner.Street, rec.Owner.City, rec.Owner.Zip, rec.Owner.Country,
		rec.Owner.RegistrationNo, rec.Owner.VatNo,
		rec.FooterNote, rec.PrivateNote, nullableJSON(rec.Tags), nullableJSON(rec.PaidAdvances),
		rec.HTMLURL, rec.PublicHTMLURL,
		rec.RemoteUpdatedAt,
	).Scan(&rec.ID, &rec.FirstSeenAt, &rec.LastSyncedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting mirror record: %w", err)
	}

	rec.ConnectionID = connectionID

	if err := s.replaceChildren(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upsert: %w", err)
	}

	return rec, nil
}

func (s *Store) replaceChildren(ctx context.Context, tx *sql.Tx, rec *mirror.Record) error {
	for _, table := range []string{"mirror_lines", "mirror_payments", "mirror_attachments"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE record_id = $1", table), rec.ID,
		); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	lineQuery := `
		INSERT INTO mirror_lines (
			id, record_id, line_order, name, quantity, unit_name, unit_price, vat_rate,
			unit_price_without_vat, unit_price_with_vat,
			total_price_without_vat, total_vat, total_price_with_vat, sku
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for i := range rec.Lines {
		line := &rec.Lines[i]
		line.ID = uuid.New()
		line.RecordID = rec.ID

		if _, err := tx.ExecContext(ctx, lineQuery,
			line.ID, line.RecordID, line.LineOrder, line.Name, line.Quantity, line.UnitName,
			line.UnitPrice, line.VatRate, line.UnitPriceWithoutVat, line.UnitPriceWithVat,
			line.TotalPriceWithoutVat, line.TotalVat, line.TotalPriceWithVat, line.SKU,
		); err != nil {
			return fmt.Errorf("inserting mirror line: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO mirror_payments (id, record_id, paid_on, currency, amount, variable_symbol)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range rec.Payments {
		p := &rec.Payments[i]
		p.ID = uuid.New()
		p.RecordID = rec.ID

		if _, err := tx.ExecContext(ctx, paymentQuery,
			p.ID, p.RecordID, p.PaidOn, p.Currency, p.Amount, p.VariableSymbol,
		); err != nil {
			return fmt.Errorf("inserting mirror payment: %w", err)
		}
	}

	attachmentQuery := `
		INSERT INTO mirror_attachments (id, record_id, filename, content_type, download_url)
		VALUES ($1, $2, $3, $4, $5)
	`

	for i := range rec.Attachments {
		a := &rec.Attachments[i]
		a.ID = uuid.New()
		a.RecordID = rec.ID

		if _, err := tx.ExecContext(ctx, attachmentQuery,
			a.ID, a.RecordID, a.Filename, a.ContentType, a.DownloadURL,
		); err != nil {
			return fmt.Errorf("inserting mirror attachment: %w", err)
		}
	}

	return nil
}

func (s *Store) loadChildren(ctx context.Context, rec *mirror.Record) error {
	lineRows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, line_order, name, quantity, unit_name, unit_price, vat_rate,
			unit_price_without_vat, unit_price_with_vat,
			total_price_without_vat, total_vat, total_price_with_vat, sku
		FROM mirror_lines WHERE record_id = $1 ORDER BY line_order ASC`, rec.ID)
	if err != nil {
		return fmt.Errorf("loading mirror lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line mirror.Line
		if err := lineRows.Scan(
			&line.ID, &line.RecordID, &line.LineOrder, &line.Name, &line.Quantity, &line.UnitName,
			&line.UnitPrice, &line.VatRate, &line.UnitPriceWithoutVat, &line.UnitPriceWithVat,
			&line.TotalPriceWithoutVat, &line.TotalVat, &line.TotalPriceWithVat, &line.SKU,
		); err != nil {
			return fmt.Errorf("scanning mirror line: %w", err)
		}

		rec.Lines = append(rec.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return fmt.Errorf("iterating mirror lines: %w", err)
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, paid_on, currency, amount, variable_symbol
		FROM mirror_payments WHERE record_id = $1 ORDER BY paid_on ASC`, rec.ID)
	if err != nil {
		return fmt.Errorf("loading mirror payments: %w", err)
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		var p mirror.Payment
		if err := paymentRows.Scan(
			&p.ID, &p.RecordID, &p.PaidOn, &p.Currency, &p.Amount, &p.VariableSymbol,
		); err != nil {
			return fmt.Errorf("scanning mirror payment: %w", err)
		}

		rec.Payments = append(rec.Payments, p)
	}

	if err := paymentRows.Err(); err != nil {
		return fmt.Errorf("iterating mirror payments: %w", err)
	}

	attachmentRows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, filename, content_type, download_url
		FROM mirror_attachments WHERE record_id = $1`, rec.ID)
	if err != nil {
		return fmt.Errorf("loading mirror attachments: %w", err)
	}
	defer attachmentRows.Close()

	for attachmentRows.Next() {
		var a mirror.Attachment
		if err := attachmentRows.Scan(
			&a.ID, &a.RecordID, &a.Filename, &a.ContentType, &a.DownloadURL,
		); err != nil {
			return fmt.Errorf("scanning mirror attachment: %w", err)
		}

		rec.Attachments = append(rec.Attachments, a)
	}

	if err := attachmentRows.Err(); err != nil {
		return fmt.Errorf("iterating mirror attachments: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting mirror record: %w", err)
	}

	return nil
}

// nullableJSON maps an empty raw message to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return b
}

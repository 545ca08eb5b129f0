package importer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mdolezal/isdocsync/internal/importer"
	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
)

const orgVat = "CZ00000000"

type serviceMocks struct {
	invoices *importer.MockInvoiceRepository
	mirrors  *importer.MockMirrorRepository
	uploads  *importer.MockParsedRepository
	itx      *importer.MockImportTx
}

func newService(t *testing.T) (*importer.Service, serviceMocks) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := serviceMocks{
		invoices: importer.NewMockInvoiceRepository(ctrl),
		mirrors:  importer.NewMockMirrorRepository(ctrl),
		uploads:  importer.NewMockParsedRepository(ctrl),
		itx:      importer.NewMockImportTx(ctrl),
	}

	return importer.NewService(m.invoices, m.mirrors, m.uploads, orgVat), m
}

func sampleMirrorRecord() *mirror.Record {
	due := 14
	sentAt := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	rec := &mirror.Record{
		ID:           uuid.New(),
		ConnectionID: uuid.New(),
		RemoteID:     4242,
		Status:       "paid",
		Paid:         true,
		SentAt:       &sentAt,
		Due:          &due,
		Client:       invoice.Party{Name: "Odběratel a.s.", VatNo: "CZ87654321"},
		Owner:        invoice.Party{Name: "Moje firma s.r.o.", VatNo: orgVat},
		Lines: []mirror.Line{
			{LineOrder: 1, Name: "Služba", Quantity: decimal.NewFromInt(1)},
			{LineOrder: 2, Name: "Doprava", Quantity: decimal.NewFromInt(2)},
		},
		Payments: []mirror.Payment{
			{PaidOn: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(121)},
		},
		Attachments: []mirror.Attachment{
			{Filename: "faktura.pdf", ContentType: "application/pdf", DownloadURL: "https://example.test/f.pdf"},
		},
	}
	rec.Number = "2024-0042"
	rec.Currency = "CZK"
	rec.Total = decimal.NullDecimal{Decimal: decimal.NewFromInt(121), Valid: true}

	return rec
}

func TestService_ImportFromMirror(t *testing.T) {
	svc, m := newService(t)

	userID := uuid.New()
	rec := sampleMirrorRecord()

	m.mirrors.EXPECT().Get(gomock.Any(), rec.ID).Return(rec, nil)
	m.invoices.EXPECT().BeginImport(gomock.Any(), rec.ID).Return(m.itx, nil)
	m.itx.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
	m.itx.EXPECT().
		MarkMirrorImported(gomock.Any(), rec.ID, gomock.Any()).
		Return(nil)
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil).AnyTimes()

	inv, err := svc.ImportFromMirror(context.Background(), userID, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, userID, inv.UserID)
	assert.Equal(t, invoice.DirectionOutbound, inv.Direction)
	assert.Equal(t, invoice.SourceFakturoid, inv.Source)
	require.NotNil(t, inv.MirrorRecordID)
	assert.Equal(t, rec.ID, *inv.MirrorRecordID)
	assert.Nil(t, inv.ParsedRecordID)

	assert.Equal(t, "2024-0042", inv.Number)
	assert.Equal(t, "paid", inv.Status)
	assert.True(t, inv.Paid)
	assert.Equal(t, rec.SentAt, inv.SentAt)
	assert.Equal(t, "Moje firma s.r.o.", inv.Supplier.Name)
	assert.Equal(t, "Odběratel a.s.", inv.Client.Name)

	require.Len(t, inv.Lines, 2)
	assert.Equal(t, 1, inv.Lines[0].LineOrder)
	assert.Equal(t, 2, inv.Lines[1].LineOrder)
	require.Len(t, inv.Payments, 1)
	require.Len(t, inv.Attachments, 1)
	assert.Equal(t, "https://example.test/f.pdf", inv.Attachments[0].ExternalURL)
}

func TestService_ImportFromMirror_AlreadyImported(t *testing.T) {
	svc, m := newService(t)

	rec := sampleMirrorRecord()
	rec.IsImported = true

	m.mirrors.EXPECT().Get(gomock.Any(), rec.ID).Return(rec, nil)

	_, err := svc.ImportFromMirror(context.Background(), uuid.New(), rec.ID)
	assert.ErrorIs(t, err, importer.ErrAlreadyImported)
}

func TestService_ImportFromMirror_RaceRollsBack(t *testing.T) {
	svc, m := newService(t)

	rec := sampleMirrorRecord()

	m.mirrors.EXPECT().Get(gomock.Any(), rec.ID).Return(rec, nil)
	m.invoices.EXPECT().BeginImport(gomock.Any(), rec.ID).Return(m.itx, nil)
	m.itx.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
	m.itx.EXPECT().
		MarkMirrorImported(gomock.Any(), rec.ID, gomock.Any()).
		Return(importer.ErrAlreadyImported)
	m.itx.EXPECT().Rollback().Return(nil)

	_, err := svc.ImportFromMirror(context.Background(), uuid.New(), rec.ID)
	assert.ErrorIs(t, err, importer.ErrAlreadyImported)
}

func sampleParsedRecord() *parsed.Record {
	rec := &parsed.Record{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Status:   parsed.StatusParsed,
		IsValid:  true,
		Supplier: invoice.Party{Name: "Dodavatel s.r.o.", VatNo: "CZ11111111"},
		Customer: invoice.Party{Name: "Odběratel a.s.", VatNo: "CZ22222222"},
		Header: staging.Header{
			Number:   "2024-0001",
			Currency: "EUR",
			Total:    decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true},
		},
	}

	return rec
}

func TestService_ImportFromParsed_DirectionInference(t *testing.T) {
	type testCase struct {
		name          string
		supplierVat   string
		customerVat   string
		wantDirection invoice.Direction
		wantSupplier  string
		wantClient    string
	}

	tests := []testCase{
		{
			name:          "SupplierMatchIsOutbound",
			supplierVat:   orgVat,
			customerVat:   "CZ22222222",
			wantDirection: invoice.DirectionOutbound,
			wantSupplier:  "Dodavatel s.r.o.",
			wantClient:    "Odběratel a.s.",
		},
		{
			name:          "SupplierMatchIsCaseInsensitive",
			supplierVat:   "cz00000000",
			customerVat:   "",
			wantDirection: invoice.DirectionOutbound,
			wantSupplier:  "Dodavatel s.r.o.",
			wantClient:    "Odběratel a.s.",
		},
		{
			name:          "CustomerMatchIsInbound",
			supplierVat:   "CZ11111111",
			customerVat:   orgVat,
			wantDirection: invoice.DirectionInbound,
			wantSupplier:  "Odběratel a.s.",
			wantClient:    "Dodavatel s.r.o.",
		},
		{
			name:          "NoMatchDefaultsToInbound",
			supplierVat:   "CZ11111111",
			customerVat:   "CZ22222222",
			wantDirection: invoice.DirectionInbound,
			wantSupplier:  "Odběratel a.s.",
			wantClient:    "Dodavatel s.r.o.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)

			rec := sampleParsedRecord()
			rec.Supplier.VatNo = tt.supplierVat
			rec.Customer.VatNo = tt.customerVat

			m.uploads.EXPECT().GetRecord(gomock.Any(), rec.ID).Return(rec, nil)
			m.invoices.EXPECT().BeginImport(gomock.Any(), rec.ID).Return(m.itx, nil)
			m.itx.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			m.itx.EXPECT().MarkParsedImported(gomock.Any(), rec.ID, gomock.Any()).Return(nil)
			m.itx.EXPECT().Commit().Return(nil)
			m.itx.EXPECT().Rollback().Return(nil).AnyTimes()

			inv, err := svc.ImportFromParsed(context.Background(), rec.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDirection, inv.Direction)
			assert.Equal(t, tt.wantSupplier, inv.Supplier.Name)
			assert.Equal(t, tt.wantClient, inv.Client.Name)
			assert.Equal(t, invoice.SourceISDOC, inv.Source)
			assert.Equal(t, rec.UserID, inv.UserID)
		})
	}
}

func TestService_ImportFromParsed_Defaults(t *testing.T) {
	svc, m := newService(t)

	rec := sampleParsedRecord()
	rec.Number = ""
	rec.DocumentType = ""
	rec.Currency = ""
	rec.Subtotal = decimal.NullDecimal{}
	rec.Total = decimal.NullDecimal{}

	m.uploads.EXPECT().GetRecord(gomock.Any(), rec.ID).Return(rec, nil)
	m.invoices.EXPECT().BeginImport(gomock.Any(), rec.ID).Return(m.itx, nil)
	m.itx.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
	m.itx.EXPECT().MarkParsedImported(gomock.Any(), rec.ID, gomock.Any()).Return(nil)
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil).AnyTimes()

	inv, err := svc.ImportFromParsed(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, "UNKNOWN", inv.Number)
	assert.Equal(t, "invoice", inv.DocumentType)
	assert.Equal(t, "CZK", inv.Currency)
	assert.Equal(t, "open", inv.Status)
	assert.True(t, inv.Open)
	assert.True(t, inv.Subtotal.IsZero())
	assert.True(t, inv.Total.IsZero())
}

func TestService_ImportFromParsed_Preconditions(t *testing.T) {
	type testCase struct {
		name    string
		mutate  func(rec *parsed.Record)
		wantErr error
	}

	tests := []testCase{
		{
			name:    "AlreadyImported",
			mutate:  func(rec *parsed.Record) { rec.Status = parsed.StatusImported },
			wantErr: importer.ErrAlreadyImported,
		},
		{
			name:    "StillUploading",
			mutate:  func(rec *parsed.Record) { rec.Status = parsed.StatusUploaded },
			wantErr: importer.ErrNotReady,
		},
		{
			name:    "ParseFailed",
			mutate:  func(rec *parsed.Record) { rec.Status = parsed.StatusValidationFailed },
			wantErr: importer.ErrNotReady,
		},
		{
			name:    "ValidationErrors",
			mutate:  func(rec *parsed.Record) { rec.IsValid = false },
			wantErr: importer.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)

			rec := sampleParsedRecord()
			tt.mutate(rec)

			m.uploads.EXPECT().GetRecord(gomock.Any(), rec.ID).Return(rec, nil)

			_, err := svc.ImportFromParsed(context.Background(), rec.ID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Resync(t *testing.T) {
	svc, m := newService(t)

	mirrorID := uuid.New()
	paidOn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// The invoice header was edited by hand after import.
	inv := &invoice.Invoice{
		ID:             uuid.New(),
		Source:         invoice.SourceFakturoid,
		MirrorRecordID: &mirrorID,
		Number:         "edited-by-hand",
		Supplier:       invoice.Party{Name: "Edited Supplier"},
		Lifecycle:      invoice.Lifecycle{Status: "open", Open: true},
	}

	rec := sampleMirrorRecord()
	rec.ID = mirrorID
	rec.Status = "paid"
	rec.Open = false
	rec.Paid = true
	rec.PaidOn = &paidOn
	rec.RemainingAmount = decimal.Zero

	m.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	m.mirrors.EXPECT().Get(gomock.Any(), mirrorID).Return(rec, nil)
	m.invoices.EXPECT().
		UpdateLifecycle(gomock.Any(), inv.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, lc invoice.Lifecycle) error {
			assert.Equal(t, "paid", lc.Status)
			assert.True(t, lc.Paid)
			assert.Equal(t, &paidOn, lc.PaidOn)
			return nil
		})

	got, err := svc.Resync(context.Background(), inv.ID)
	require.NoError(t, err)

	// Lifecycle tracks the mirror, manual edits survive.
	assert.Equal(t, "paid", got.Status)
	assert.True(t, got.Paid)
	assert.Equal(t, "edited-by-hand", got.Number)
	assert.Equal(t, "Edited Supplier", got.Supplier.Name)
}

func TestService_Resync_SourceMismatch(t *testing.T) {
	type testCase struct {
		name string
		inv  *invoice.Invoice
	}

	tests := []testCase{
		{
			name: "ManualInvoice",
			inv:  &invoice.Invoice{ID: uuid.New(), Source: invoice.SourceManual},
		},
		{
			name: "ParsedInvoice",
			inv:  &invoice.Invoice{ID: uuid.New(), Source: invoice.SourceISDOC},
		},
		{
			name: "MissingBackReference",
			inv:  &invoice.Invoice{ID: uuid.New(), Source: invoice.SourceFakturoid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)

			m.invoices.EXPECT().GetInvoice(gomock.Any(), tt.inv.ID).Return(tt.inv, nil)

			_, err := svc.Resync(context.Background(), tt.inv.ID)
			assert.ErrorIs(t, err, importer.ErrSourceMismatch)
		})
	}
}

func TestService_ImportMirrorBatch_StopsAtFirstFailure(t *testing.T) {
	svc, m := newService(t)

	userID := uuid.New()
	first := sampleMirrorRecord()
	second := sampleMirrorRecord()
	second.IsImported = true
	third := sampleMirrorRecord()

	m.mirrors.EXPECT().Get(gomock.Any(), first.ID).Return(first, nil)
	m.invoices.EXPECT().BeginImport(gomock.Any(), first.ID).Return(m.itx, nil)
	m.itx.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
	m.itx.EXPECT().MarkMirrorImported(gomock.Any(), first.ID, gomock.Any()).Return(nil)
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil).AnyTimes()

	m.mirrors.EXPECT().Get(gomock.Any(), second.ID).Return(second, nil)
	// The third record must never be fetched.

	got, err := svc.ImportMirrorBatch(context.Background(), userID, []uuid.UUID{first.ID, second.ID, third.ID})
	assert.ErrorIs(t, err, importer.ErrAlreadyImported)
	assert.Len(t, got, 1)
}

// Package parsed stages uploaded ISDOC documents until they are reviewed
// and imported. The original XML lives in the content store; the record
// carries the extracted header fields plus the raw parse result as JSON.
package parsed

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/processing"
)

var (
	ErrNotFound = errors.New("parsed record not found")
	// ErrNotParsed guards the review transitions: a record must have parsed
	// successfully before it can be edited or marked ready.
	ErrNotParsed = errors.New("parsed record has no successful parse")
)

type Status string

const (
	StatusUploaded         Status = "uploaded"
	StatusParsing          Status = "parsing"
	StatusParsed           Status = "parsed"
	StatusValidationFailed Status = "validation_failed"
	StatusReadyToImport    Status = "ready_to_import"
	StatusImported         Status = "imported"
)

// Record is one uploaded document on its way to becoming an invoice.
type Record struct {
	ID     uuid.UUID
	UserID uuid.UUID

	FileName    string
	FileSize    int64
	ContentType string
	UploadedAt  time.Time

	// BlobName is the content-store key of the original XML.
	BlobName string

	Status           Status
	ParsedAt         *time.Time
	IsValid          bool
	ValidationErrors string

	staging.Header

	Supplier invoice.Party
	Customer invoice.Party

	// RawJSON is the complete parse result; LinesJSON holds the extracted
	// line items. Both are staging-only, canonical lines are created
	// relationally at import time.
	RawJSON   json.RawMessage
	LinesJSON json.RawMessage

	ImportedInvoiceID   *uuid.UUID
	ImportedToInvoiceAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Attempts []*processing.Attempt
}

// Kind is the staging discriminant carried on API responses.
func (*Record) Kind() staging.Kind { return staging.KindParsed }

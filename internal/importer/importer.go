// Package importer turns staging records of either kind into canonical
// invoices. All failures are terminal; the caller fixes the underlying
// state and retries the whole operation.
package importer

import "errors"

var (
	// ErrAlreadyImported guards the single-import rule for staging records.
	ErrAlreadyImported = errors.New("staging record already imported")
	// ErrNotReady means the record has not reached an importable status.
	ErrNotReady = errors.New("staging record not ready to import")
	// ErrInvalid means the record carries validation errors.
	ErrInvalid = errors.New("staging record has validation errors")
	// ErrSourceMismatch means resync was attempted on an invoice that did
	// not come from the external sync.
	ErrSourceMismatch = errors.New("invoice is not backed by a mirror record")
)

package parsed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/isdoc"
	"github.com/mdolezal/isdocsync/internal/staging/processing"
	"github.com/mdolezal/isdocsync/internal/storage"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=parsed
type Repository interface {
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecords(ctx context.Context, userID uuid.UUID, status *Status) ([]*Record, error)
	UpdateRecord(ctx context.Context, rec *Record) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

// AttemptLog is the retry history for a record, satisfied by
// *processing.Service.
type AttemptLog interface {
	Begin(ctx context.Context, stagingRecordID uuid.UUID) (*processing.Attempt, error)
	Start(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	List(ctx context.Context, stagingRecordID uuid.UUID) ([]*processing.Attempt, error)
}

type Service struct {
	repo     Repository
	blobs    storage.Store
	attempts AttemptLog
}

func NewService(repo Repository, blobs storage.Store, attempts AttemptLog) *Service {
	return &Service{repo: repo, blobs: blobs, attempts: attempts}
}

// Upload stores the original document in the content store and creates the
// staging record with an initial processing attempt.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, fileName string, fileSize int64, contentType string, content io.Reader) (*Record, error) {
	now := time.Now()

	rec := &Record{
		ID:          uuid.New(),
		UserID:      userID,
		FileName:    fileName,
		FileSize:    fileSize,
		ContentType: contentType,
		UploadedAt:  now,
		Status:      StatusUploaded,
	}
	rec.BlobName = fmt.Sprintf("%s/%s/%s", userID, rec.ID, fileName)

	if err := s.blobs.Upload(ctx, rec.BlobName, content, contentType); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		// The record never existed, remove the orphaned blob.
		_ = s.blobs.Delete(ctx, rec.BlobName)
		return nil, err
	}

	if _, err := s.attempts.Begin(ctx, rec.ID); err != nil {
		return nil, err
	}

	return rec, nil
}

// Parse downloads the original document, extracts its fields and moves the
// record to Parsed or ValidationFailed. The outcome is recorded on a fresh
// processing attempt; a failed parse is a recorded state, not an error.
func (s *Service) Parse(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	attempt, err := s.attempts.Begin(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, rec.ID, StatusParsing); err != nil {
		return nil, err
	}
	rec.Status = StatusParsing

	if err := s.attempts.Start(ctx, attempt.ID); err != nil {
		return nil, err
	}

	body, err := s.blobs.Download(ctx, rec.BlobName)
	if err != nil {
		return nil, s.failAttempt(ctx, attempt.ID, fmt.Errorf("reading upload: %w", err))
	}
	defer body.Close()

	doc, parseErr := isdoc.Parse(body)
	if parseErr != nil {
		rec.Status = StatusValidationFailed
		rec.IsValid = false
		rec.ValidationErrors = parseErr.Error()

		if err := s.attempts.Fail(ctx, attempt.ID, parseErr.Error()); err != nil {
			return nil, err
		}

		if err := s.repo.UpdateRecord(ctx, rec); err != nil {
			return nil, err
		}

		return rec, nil
	}

	applyDocument(rec, doc)

	if errs := doc.Validate(); len(errs) > 0 {
		msg := strings.Join(errs, "; ")
		rec.Status = StatusValidationFailed
		rec.IsValid = false
		rec.ValidationErrors = msg

		if err := s.attempts.Fail(ctx, attempt.ID, msg); err != nil {
			return nil, err
		}
	} else {
		now := time.Now()
		rec.Status = StatusParsed
		rec.ParsedAt = &now
		rec.IsValid = true
		rec.ValidationErrors = ""

		if err := s.attempts.Complete(ctx, attempt.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Service) failAttempt(ctx context.Context, attemptID uuid.UUID, cause error) error {
	if err := s.attempts.Fail(ctx, attemptID, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}

	return cause
}

func applyDocument(rec *Record, doc *isdoc.Document) {
	rec.Number = doc.Number
	rec.DocumentType = doc.DocumentType
	rec.IssuedOn = doc.IssuedOn
	rec.DueOn = doc.DueOn
	rec.Subtotal = doc.Subtotal
	rec.Total = doc.Total
	rec.Currency = doc.Currency
	rec.ExchangeRate = doc.ExchangeRate
	rec.VariableSymbol = doc.VariableSymbol
	rec.ConstantSymbol = doc.ConstantSymbol
	rec.SpecificSymbol = doc.SpecificSymbol
	rec.BankAccount = doc.BankAccount
	rec.IBAN = doc.IBAN
	rec.SwiftBIC = doc.SwiftBIC
	rec.Note = doc.Note
	rec.Supplier = doc.Supplier
	rec.Customer = doc.Customer

	// Marshal errors cannot happen for these types.
	rec.RawJSON, _ = json.Marshal(doc)
	rec.LinesJSON, _ = json.Marshal(doc.Lines)
	rec.VatRatesSummary, _ = json.Marshal(doc.VatRates)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Attempts, err = s.attempts.List(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, status *Status) ([]*Record, error) {
	return s.repo.ListRecords(ctx, userID, status)
}

// UpdateReview applies user corrections to the extracted fields. Only the
// reviewable header and party fields are copied; lifecycle, blob and import
// tracking fields are untouchable from review.
func (s *Service) UpdateReview(ctx context.Context, id uuid.UUID, edited *Record) (*Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status != StatusParsed && rec.Status != StatusReadyToImport {
		return nil, ErrNotParsed
	}

	rec.Header = edited.Header
	rec.Supplier = edited.Supplier
	rec.Customer = edited.Customer

	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// MarkReady confirms the review and queues the record for import.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	if rec.Status != StatusParsed || !rec.IsValid {
		return ErrNotParsed
	}

	return s.repo.UpdateStatus(ctx, id, StatusReadyToImport)
}

// DownloadURL returns a temporary read-only link to the original document.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return "", err
	}

	return s.blobs.SignedURL(ctx, rec.BlobName, expiry)
}

// Delete removes the record and its stored document.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, rec.BlobName); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return s.repo.DeleteRecord(ctx, id)
}

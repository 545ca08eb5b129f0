package upload

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
)

func TestToResponse(t *testing.T) {
	rec := &parsed.Record{
		ID:         uuid.New(),
		FileName:   "invoice.isdoc",
		Status:     parsed.StatusParsed,
		UploadedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	rec.Number = "2026-0042"

	resp := toResponse(rec)

	assert.Equal(t, rec.ID, resp.ID)
	assert.Equal(t, staging.KindParsed, resp.Kind)
	assert.Equal(t, "2026-0042", resp.Number)
	assert.Equal(t, parsed.StatusParsed, resp.Status)
}

package connection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mdolezal/isdocsync/internal/staging"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

func TestToMirrorResponse(t *testing.T) {
	rec := &mirror.Record{
		ID:       uuid.New(),
		RemoteID: 4242,
		Status:   "open",
		Open:     true,
	}
	rec.Number = "2026-0042"

	resp := toMirrorResponse(rec)

	assert.Equal(t, rec.ID, resp.ID)
	assert.Equal(t, staging.KindMirror, resp.Kind)
	assert.Equal(t, int64(4242), resp.RemoteID)
	assert.Equal(t, "open", resp.Status)
	assert.True(t, resp.Open)
}

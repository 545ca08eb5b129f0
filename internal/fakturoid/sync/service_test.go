package sync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
	syncpkg "github.com/mdolezal/isdocsync/internal/fakturoid/sync"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

type serviceMocks struct {
	connections *syncpkg.MockConnectionRepository
	fetcher     *syncpkg.MockInvoiceFetcher
	mirrors     *syncpkg.MockMirrorRepository
}

func newService(t *testing.T) (*syncpkg.Service, serviceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mocks := serviceMocks{
		connections: syncpkg.NewMockConnectionRepository(ctrl),
		fetcher:     syncpkg.NewMockInvoiceFetcher(ctrl),
		mirrors:     syncpkg.NewMockMirrorRepository(ctrl),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := syncpkg.NewService(mocks.connections, mocks.fetcher, mocks.mirrors, logger)

	return svc, mocks
}

func page(connID uuid.UUID, n int) []*mirror.Record {
	records := make([]*mirror.Record, n)
	for i := range records {
		records[i] = &mirror.Record{ConnectionID: connID, RemoteID: int64(i + 1)}
	}

	return records
}

func TestService_SyncInvoices_DrainsFullPages(t *testing.T) {
	svc, mocks := newService(t)

	userID := uuid.New()
	conn := &fakturoid.Connection{ID: uuid.New(), UserID: userID, AccountSlug: "acme"}

	mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(conn, nil)

	// Two full pages force a third fetch that comes back empty.
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 1, nil).Return(page(conn.ID, fakturoid.PageSize), nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 2, nil).Return(page(conn.ID, fakturoid.PageSize), nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 3, nil).Return(nil, nil)

	mocks.mirrors.EXPECT().Upsert(gomock.Any(), conn.ID, gomock.Any()).Return(nil, nil).Times(2 * fakturoid.PageSize)
	mocks.connections.EXPECT().UpdateLastSynced(gomock.Any(), conn.ID).Return(nil)

	synced, err := svc.SyncInvoices(context.Background(), userID, true)
	require.NoError(t, err)
	assert.Equal(t, 2*fakturoid.PageSize, synced)
}

func TestService_SyncInvoices_ShortPageEndsListing(t *testing.T) {
	svc, mocks := newService(t)

	userID := uuid.New()
	conn := &fakturoid.Connection{ID: uuid.New(), UserID: userID}

	mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(conn, nil)

	// Page 2 is short of the page size, so page 3 is never requested.
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 1, nil).Return(page(conn.ID, fakturoid.PageSize), nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 2, nil).Return(page(conn.ID, 7), nil)

	mocks.mirrors.EXPECT().Upsert(gomock.Any(), conn.ID, gomock.Any()).Return(nil, nil).Times(fakturoid.PageSize + 7)
	mocks.connections.EXPECT().UpdateLastSynced(gomock.Any(), conn.ID).Return(nil)

	synced, err := svc.SyncInvoices(context.Background(), userID, true)
	require.NoError(t, err)
	assert.Equal(t, fakturoid.PageSize+7, synced)
}

func TestService_SyncInvoices_IncrementalUsesWatermark(t *testing.T) {
	svc, mocks := newService(t)

	userID := uuid.New()
	lastSynced := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := &fakturoid.Connection{ID: uuid.New(), UserID: userID, LastSyncedAt: &lastSynced}

	mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(conn, nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 1, &lastSynced).Return(page(conn.ID, 3), nil)
	mocks.mirrors.EXPECT().Upsert(gomock.Any(), conn.ID, gomock.Any()).Return(nil, nil).Times(3)
	mocks.connections.EXPECT().UpdateLastSynced(gomock.Any(), conn.ID).Return(nil)

	synced, err := svc.SyncInvoices(context.Background(), userID, false)
	require.NoError(t, err)
	assert.Equal(t, 3, synced)
}

func TestService_SyncInvoices_NoConnection(t *testing.T) {
	svc, mocks := newService(t)

	userID := uuid.New()
	mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(nil, fakturoid.ErrNoConnection)

	_, err := svc.SyncInvoices(context.Background(), userID, false)
	assert.ErrorIs(t, err, fakturoid.ErrNoConnection)
}

func TestService_SyncInvoices_FetchErrorKeepsWatermark(t *testing.T) {
	svc, mocks := newService(t)

	userID := uuid.New()
	conn := &fakturoid.Connection{ID: uuid.New(), UserID: userID}

	mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(conn, nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 1, nil).Return(page(conn.ID, fakturoid.PageSize), nil)
	mocks.fetcher.EXPECT().FetchInvoices(gomock.Any(), conn.ID, 2, nil).Return(nil, errors.New("remote down"))
	mocks.mirrors.EXPECT().Upsert(gomock.Any(), conn.ID, gomock.Any()).Return(nil, nil).Times(fakturoid.PageSize)
	// No UpdateLastSynced expectation: the watermark must not advance.

	_, err := svc.SyncInvoices(context.Background(), userID, true)
	assert.ErrorContains(t, err, "remote down")
}

func TestService_Status(t *testing.T) {
	t.Run("Connected", func(t *testing.T) {
		svc, mocks := newService(t)

		userID := uuid.New()
		lastSynced := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		conn := &fakturoid.Connection{ID: uuid.New(), UserID: userID, AccountSlug: "acme", LastSyncedAt: &lastSynced}

		mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(conn, nil)
		mocks.mirrors.EXPECT().CountByConnection(gomock.Any(), conn.ID).Return(123, nil)

		result, err := svc.Status(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, &syncpkg.Result{
			Connected:     true,
			AccountSlug:   "acme",
			TotalInvoices: 123,
			LastSyncedAt:  &lastSynced,
		}, result)
	})

	t.Run("NotConnected", func(t *testing.T) {
		svc, mocks := newService(t)

		userID := uuid.New()
		mocks.connections.EXPECT().GetByUserID(gomock.Any(), userID).Return(nil, fakturoid.ErrNoConnection)

		result, err := svc.Status(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, &syncpkg.Result{}, result)
	})
}

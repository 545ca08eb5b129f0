// Code generated by MockGen. DO NOT EDIT.
// Source: service.go
//
// Generated by this command:
//
//	mockgen -source=service.go -destination=service_mock.go -package=sync
//

// Package sync is a generated GoMock package.
package sync

import (
	context "context"
	reflect "reflect"
	time "time"

	uuid "github.com/google/uuid"
	fakturoid "github.com/mdolezal/isdocsync/internal/fakturoid"
	mirror "github.com/mdolezal/isdocsync/internal/staging/mirror"
	gomock "go.uber.org/mock/gomock"
)

// MockConnectionRepository is a mock of ConnectionRepository interface.
type MockConnectionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockConnectionRepositoryMockRecorder
}

// MockConnectionRepositoryMockRecorder is the mock recorder for MockConnectionRepository.
type MockConnectionRepositoryMockRecorder struct {
	mock *MockConnectionRepository
}

// NewMockConnectionRepository creates a new mock instance.
func NewMockConnectionRepository(ctrl *gomock.Controller) *MockConnectionRepository {
	mock := &MockConnectionRepository{ctrl: ctrl}
	mock.recorder = &MockConnectionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockConnectionRepository) EXPECT() *MockConnectionRepositoryMockRecorder {
	return m.recorder
}

// GetByUserID mocks base method.
func (m *MockConnectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*fakturoid.Connection, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByUserID", ctx, userID)
	ret0, _ := ret[0].(*fakturoid.Connection)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByUserID indicates an expected call of GetByUserID.
func (mr *MockConnectionRepositoryMockRecorder) GetByUserID(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByUserID", reflect.TypeOf((*MockConnectionRepository)(nil).GetByUserID), ctx, userID)
}

// UpdateLastSynced mocks base method.
func (m *MockConnectionRepository) UpdateLastSynced(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateLastSynced", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateLastSynced indicates an expected call of UpdateLastSynced.
func (mr *MockConnectionRepositoryMockRecorder) UpdateLastSynced(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateLastSynced", reflect.TypeOf((*MockConnectionRepository)(nil).UpdateLastSynced), ctx, id)
}

// MockInvoiceFetcher is a mock of InvoiceFetcher interface.
type MockInvoiceFetcher struct {
	ctrl     *gomock.Controller
	recorder *MockInvoiceFetcherMockRecorder
}

// MockInvoiceFetcherMockRecorder is the mock recorder for MockInvoiceFetcher.
type MockInvoiceFetcherMockRecorder struct {
	mock *MockInvoiceFetcher
}

// NewMockInvoiceFetcher creates a new mock instance.
func NewMockInvoiceFetcher(ctrl *gomock.Controller) *MockInvoiceFetcher {
	mock := &MockInvoiceFetcher{ctrl: ctrl}
	mock.recorder = &MockInvoiceFetcherMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInvoiceFetcher) EXPECT() *MockInvoiceFetcherMockRecorder {
	return m.recorder
}

// FetchInvoices mocks base method.
func (m *MockInvoiceFetcher) FetchInvoices(ctx context.Context, connectionID uuid.UUID, page int, updatedSince *time.Time) ([]*mirror.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FetchInvoices", ctx, connectionID, page, updatedSince)
	ret0, _ := ret[0].([]*mirror.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FetchInvoices indicates an expected call of FetchInvoices.
func (mr *MockInvoiceFetcherMockRecorder) FetchInvoices(ctx, connectionID, page, updatedSince any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FetchInvoices", reflect.TypeOf((*MockInvoiceFetcher)(nil).FetchInvoices), ctx, connectionID, page, updatedSince)
}

// MockMirrorRepository is a mock of MirrorRepository interface.
type MockMirrorRepository struct {
	ctrl     *gomock.Controller
	recorder *MockMirrorRepositoryMockRecorder
}

// MockMirrorRepositoryMockRecorder is the mock recorder for MockMirrorRepository.
type MockMirrorRepositoryMockRecorder struct {
	mock *MockMirrorRepository
}

// NewMockMirrorRepository creates a new mock instance.
func NewMockMirrorRepository(ctrl *gomock.Controller) *MockMirrorRepository {
	mock := &MockMirrorRepository{ctrl: ctrl}
	mock.recorder = &MockMirrorRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMirrorRepository) EXPECT() *MockMirrorRepositoryMockRecorder {
	return m.recorder
}

// CountByConnection mocks base method.
func (m *MockMirrorRepository) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CountByConnection", ctx, connectionID)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CountByConnection indicates an expected call of CountByConnection.
func (mr *MockMirrorRepositoryMockRecorder) CountByConnection(ctx, connectionID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CountByConnection", reflect.TypeOf((*MockMirrorRepository)(nil).CountByConnection), ctx, connectionID)
}

// Get mocks base method.
func (m *MockMirrorRepository) Get(ctx context.Context, id uuid.UUID) (*mirror.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, id)
	ret0, _ := ret[0].(*mirror.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockMirrorRepositoryMockRecorder) Get(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockMirrorRepository)(nil).Get), ctx, id)
}

// ListByConnection mocks base method.
func (m *MockMirrorRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, page, pageSize int) ([]*mirror.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListByConnection", ctx, connectionID, page, pageSize)
	ret0, _ := ret[0].([]*mirror.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListByConnection indicates an expected call of ListByConnection.
func (mr *MockMirrorRepositoryMockRecorder) ListByConnection(ctx, connectionID, page, pageSize any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListByConnection", reflect.TypeOf((*MockMirrorRepository)(nil).ListByConnection), ctx, connectionID, page, pageSize)
}

// Upsert mocks base method.
func (m *MockMirrorRepository) Upsert(ctx context.Context, connectionID uuid.UUID, rec *mirror.Record) (*mirror.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Upsert", ctx, connectionID, rec)
	ret0, _ := ret[0].(*mirror.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Upsert indicates an expected call of Upsert.
func (mr *MockMirrorRepositoryMockRecorder) Upsert(ctx, connectionID, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Upsert", reflect.TypeOf((*MockMirrorRepository)(nil).Upsert), ctx, connectionID, rec)
}

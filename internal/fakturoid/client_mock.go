// Code generated by MockGen. DO NOT EDIT.
// Source: client.go
//
// Generated by this command:
//
//	mockgen -source=client.go -destination=client_mock.go -package=fakturoid
//

// Package fakturoid is a generated GoMock package.
package fakturoid

import (
	context "context"
	reflect "reflect"

	uuid "github.com/google/uuid"
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

// Create mocks base method.
func (m *MockConnectionRepository) Create(ctx context.Context, conn *Connection) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, conn)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockConnectionRepositoryMockRecorder) Create(ctx, conn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockConnectionRepository)(nil).Create), ctx, conn)
}

// Disconnect mocks base method.
func (m *MockConnectionRepository) Disconnect(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Disconnect", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Disconnect indicates an expected call of Disconnect.
func (mr *MockConnectionRepositoryMockRecorder) Disconnect(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Disconnect", reflect.TypeOf((*MockConnectionRepository)(nil).Disconnect), ctx, id)
}

// GetByID mocks base method.
func (m *MockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Connection, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*Connection)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockConnectionRepositoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockConnectionRepository)(nil).GetByID), ctx, id)
}

// GetByUserID mocks base method.
func (m *MockConnectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Connection, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByUserID", ctx, userID)
	ret0, _ := ret[0].(*Connection)
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

// UpdateTokens mocks base method.
func (m *MockConnectionRepository) UpdateTokens(ctx context.Context, id uuid.UUID, pair TokenPair) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateTokens", ctx, id, pair)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateTokens indicates an expected call of UpdateTokens.
func (mr *MockConnectionRepositoryMockRecorder) UpdateTokens(ctx, id, pair any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateTokens", reflect.TypeOf((*MockConnectionRepository)(nil).UpdateTokens), ctx, id, pair)
}

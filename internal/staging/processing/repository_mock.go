// Code generated by MockGen. DO NOT EDIT.
// Source: service.go
//
// Generated by this command:
//
//	mockgen -source=service.go -destination=repository_mock.go -package=processing
//

// Package processing is a generated GoMock package.
package processing

import (
	context "context"
	reflect "reflect"

	uuid "github.com/google/uuid"
	gomock "go.uber.org/mock/gomock"
)

// MockRepository is a mock of Repository interface.
type MockRepository struct {
	ctrl     *gomock.Controller
	recorder *MockRepositoryMockRecorder
}

// MockRepositoryMockRecorder is the mock recorder for MockRepository.
type MockRepositoryMockRecorder struct {
	mock *MockRepository
}

// NewMockRepository creates a new mock instance.
func NewMockRepository(ctrl *gomock.Controller) *MockRepository {
	mock := &MockRepository{ctrl: ctrl}
	mock.recorder = &MockRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRepository) EXPECT() *MockRepositoryMockRecorder {
	return m.recorder
}

// CreateAttempt mocks base method.
func (m *MockRepository) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateAttempt", ctx, attempt)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateAttempt indicates an expected call of CreateAttempt.
func (mr *MockRepositoryMockRecorder) CreateAttempt(ctx, attempt any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateAttempt", reflect.TypeOf((*MockRepository)(nil).CreateAttempt), ctx, attempt)
}

// GetAttempt mocks base method.
func (m *MockRepository) GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAttempt", ctx, id)
	ret0, _ := ret[0].(*Attempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAttempt indicates an expected call of GetAttempt.
func (mr *MockRepositoryMockRecorder) GetAttempt(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAttempt", reflect.TypeOf((*MockRepository)(nil).GetAttempt), ctx, id)
}

// LatestAttempt mocks base method.
func (m *MockRepository) LatestAttempt(ctx context.Context, stagingRecordID uuid.UUID) (*Attempt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LatestAttempt", ctx, stagingRecordID)
	ret0, _ := ret[0].(*Attempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LatestAttempt indicates an expected call of LatestAttempt.
func (mr *MockRepositoryMockRecorder) LatestAttempt(ctx, stagingRecordID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LatestAttempt", reflect.TypeOf((*MockRepository)(nil).LatestAttempt), ctx, stagingRecordID)
}

// ListAttempts mocks base method.
func (m *MockRepository) ListAttempts(ctx context.Context, stagingRecordID uuid.UUID) ([]*Attempt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListAttempts", ctx, stagingRecordID)
	ret0, _ := ret[0].([]*Attempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListAttempts indicates an expected call of ListAttempts.
func (mr *MockRepositoryMockRecorder) ListAttempts(ctx, stagingRecordID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListAttempts", reflect.TypeOf((*MockRepository)(nil).ListAttempts), ctx, stagingRecordID)
}

// UpdateAttempt mocks base method.
func (m *MockRepository) UpdateAttempt(ctx context.Context, attempt *Attempt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateAttempt", ctx, attempt)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateAttempt indicates an expected call of UpdateAttempt.
func (mr *MockRepositoryMockRecorder) UpdateAttempt(ctx, attempt any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateAttempt", reflect.TypeOf((*MockRepository)(nil).UpdateAttempt), ctx, attempt)
}

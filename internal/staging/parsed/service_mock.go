// Code generated by MockGen. DO NOT EDIT.
// Source: service.go
//
// Generated by this command:
//
//	mockgen -source=service.go -destination=service_mock.go -package=parsed
//

// Package parsed is a generated GoMock package.
package parsed

import (
	context "context"
	reflect "reflect"

	uuid "github.com/google/uuid"
	processing "github.com/mdolezal/isdocsync/internal/staging/processing"
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

// CreateRecord mocks base method.
func (m *MockRepository) CreateRecord(ctx context.Context, rec *Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateRecord", ctx, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateRecord indicates an expected call of CreateRecord.
func (mr *MockRepositoryMockRecorder) CreateRecord(ctx, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateRecord", reflect.TypeOf((*MockRepository)(nil).CreateRecord), ctx, rec)
}

// DeleteRecord mocks base method.
func (m *MockRepository) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteRecord", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteRecord indicates an expected call of DeleteRecord.
func (mr *MockRepositoryMockRecorder) DeleteRecord(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteRecord", reflect.TypeOf((*MockRepository)(nil).DeleteRecord), ctx, id)
}

// GetRecord mocks base method.
func (m *MockRepository) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetRecord", ctx, id)
	ret0, _ := ret[0].(*Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetRecord indicates an expected call of GetRecord.
func (mr *MockRepositoryMockRecorder) GetRecord(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetRecord", reflect.TypeOf((*MockRepository)(nil).GetRecord), ctx, id)
}

// ListRecords mocks base method.
func (m *MockRepository) ListRecords(ctx context.Context, userID uuid.UUID, status *Status) ([]*Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListRecords", ctx, userID, status)
	ret0, _ := ret[0].([]*Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListRecords indicates an expected call of ListRecords.
func (mr *MockRepositoryMockRecorder) ListRecords(ctx, userID, status any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListRecords", reflect.TypeOf((*MockRepository)(nil).ListRecords), ctx, userID, status)
}

// UpdateRecord mocks base method.
func (m *MockRepository) UpdateRecord(ctx context.Context, rec *Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateRecord", ctx, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateRecord indicates an expected call of UpdateRecord.
func (mr *MockRepositoryMockRecorder) UpdateRecord(ctx, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateRecord", reflect.TypeOf((*MockRepository)(nil).UpdateRecord), ctx, rec)
}

// UpdateStatus mocks base method.
func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateStatus", ctx, id, status)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateStatus indicates an expected call of UpdateStatus.
func (mr *MockRepositoryMockRecorder) UpdateStatus(ctx, id, status any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateStatus", reflect.TypeOf((*MockRepository)(nil).UpdateStatus), ctx, id, status)
}

// MockAttemptLog is a mock of AttemptLog interface.
type MockAttemptLog struct {
	ctrl     *gomock.Controller
	recorder *MockAttemptLogMockRecorder
}

// MockAttemptLogMockRecorder is the mock recorder for MockAttemptLog.
type MockAttemptLogMockRecorder struct {
	mock *MockAttemptLog
}

// NewMockAttemptLog creates a new mock instance.
func NewMockAttemptLog(ctrl *gomock.Controller) *MockAttemptLog {
	mock := &MockAttemptLog{ctrl: ctrl}
	mock.recorder = &MockAttemptLogMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAttemptLog) EXPECT() *MockAttemptLogMockRecorder {
	return m.recorder
}

// Begin mocks base method.
func (m *MockAttemptLog) Begin(ctx context.Context, stagingRecordID uuid.UUID) (*processing.Attempt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Begin", ctx, stagingRecordID)
	ret0, _ := ret[0].(*processing.Attempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Begin indicates an expected call of Begin.
func (mr *MockAttemptLogMockRecorder) Begin(ctx, stagingRecordID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Begin", reflect.TypeOf((*MockAttemptLog)(nil).Begin), ctx, stagingRecordID)
}

// Complete mocks base method.
func (m *MockAttemptLog) Complete(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Complete", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Complete indicates an expected call of Complete.
func (mr *MockAttemptLogMockRecorder) Complete(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Complete", reflect.TypeOf((*MockAttemptLog)(nil).Complete), ctx, id)
}

// Fail mocks base method.
func (m *MockAttemptLog) Fail(ctx context.Context, id uuid.UUID, message string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Fail", ctx, id, message)
	ret0, _ := ret[0].(error)
	return ret0
}

// Fail indicates an expected call of Fail.
func (mr *MockAttemptLogMockRecorder) Fail(ctx, id, message any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Fail", reflect.TypeOf((*MockAttemptLog)(nil).Fail), ctx, id, message)
}

// List mocks base method.
func (m *MockAttemptLog) List(ctx context.Context, stagingRecordID uuid.UUID) ([]*processing.Attempt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "List", ctx, stagingRecordID)
	ret0, _ := ret[0].([]*processing.Attempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// List indicates an expected call of List.
func (mr *MockAttemptLogMockRecorder) List(ctx, stagingRecordID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "List", reflect.TypeOf((*MockAttemptLog)(nil).List), ctx, stagingRecordID)
}

// Start mocks base method.
func (m *MockAttemptLog) Start(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Start", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Start indicates an expected call of Start.
func (mr *MockAttemptLogMockRecorder) Start(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Start", reflect.TypeOf((*MockAttemptLog)(nil).Start), ctx, id)
}

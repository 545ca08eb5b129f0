// Code generated by MockGen. DO NOT EDIT.
// Source: service.go
//
// Generated by this command:
//
//	mockgen -source=service.go -destination=service_mock.go -package=importer
//

// Package importer is a generated GoMock package.
package importer

import (
	context "context"
	reflect "reflect"

	uuid "github.com/google/uuid"
	invoice "github.com/mdolezal/isdocsync/internal/invoice"
	mirror "github.com/mdolezal/isdocsync/internal/staging/mirror"
	parsed "github.com/mdolezal/isdocsync/internal/staging/parsed"
	gomock "go.uber.org/mock/gomock"
)

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

// MockParsedRepository is a mock of ParsedRepository interface.
type MockParsedRepository struct {
	ctrl     *gomock.Controller
	recorder *MockParsedRepositoryMockRecorder
}

// MockParsedRepositoryMockRecorder is the mock recorder for MockParsedRepository.
type MockParsedRepositoryMockRecorder struct {
	mock *MockParsedRepository
}

// NewMockParsedRepository creates a new mock instance.
func NewMockParsedRepository(ctrl *gomock.Controller) *MockParsedRepository {
	mock := &MockParsedRepository{ctrl: ctrl}
	mock.recorder = &MockParsedRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockParsedRepository) EXPECT() *MockParsedRepositoryMockRecorder {
	return m.recorder
}

// GetRecord mocks base method.
func (m *MockParsedRepository) GetRecord(ctx context.Context, id uuid.UUID) (*parsed.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetRecord", ctx, id)
	ret0, _ := ret[0].(*parsed.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetRecord indicates an expected call of GetRecord.
func (mr *MockParsedRepositoryMockRecorder) GetRecord(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetRecord", reflect.TypeOf((*MockParsedRepository)(nil).GetRecord), ctx, id)
}

// MockInvoiceRepository is a mock of InvoiceRepository interface.
type MockInvoiceRepository struct {
	ctrl     *gomock.Controller
	recorder *MockInvoiceRepositoryMockRecorder
}

// MockInvoiceRepositoryMockRecorder is the mock recorder for MockInvoiceRepository.
type MockInvoiceRepositoryMockRecorder struct {
	mock *MockInvoiceRepository
}

// NewMockInvoiceRepository creates a new mock instance.
func NewMockInvoiceRepository(ctrl *gomock.Controller) *MockInvoiceRepository {
	mock := &MockInvoiceRepository{ctrl: ctrl}
	mock.recorder = &MockInvoiceRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInvoiceRepository) EXPECT() *MockInvoiceRepositoryMockRecorder {
	return m.recorder
}

// BeginImport mocks base method.
func (m *MockInvoiceRepository) BeginImport(ctx context.Context, stagingRecordID uuid.UUID) (ImportTx, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BeginImport", ctx, stagingRecordID)
	ret0, _ := ret[0].(ImportTx)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// BeginImport indicates an expected call of BeginImport.
func (mr *MockInvoiceRepositoryMockRecorder) BeginImport(ctx, stagingRecordID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BeginImport", reflect.TypeOf((*MockInvoiceRepository)(nil).BeginImport), ctx, stagingRecordID)
}

// GetInvoice mocks base method.
func (m *MockInvoiceRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetInvoice", ctx, id)
	ret0, _ := ret[0].(*invoice.Invoice)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetInvoice indicates an expected call of GetInvoice.
func (mr *MockInvoiceRepositoryMockRecorder) GetInvoice(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetInvoice", reflect.TypeOf((*MockInvoiceRepository)(nil).GetInvoice), ctx, id)
}

// UpdateLifecycle mocks base method.
func (m *MockInvoiceRepository) UpdateLifecycle(ctx context.Context, id uuid.UUID, lc invoice.Lifecycle) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateLifecycle", ctx, id, lc)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateLifecycle indicates an expected call of UpdateLifecycle.
func (mr *MockInvoiceRepositoryMockRecorder) UpdateLifecycle(ctx, id, lc any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateLifecycle", reflect.TypeOf((*MockInvoiceRepository)(nil).UpdateLifecycle), ctx, id, lc)
}

// MockImportTx is a mock of ImportTx interface.
type MockImportTx struct {
	ctrl     *gomock.Controller
	recorder *MockImportTxMockRecorder
}

// MockImportTxMockRecorder is the mock recorder for MockImportTx.
type MockImportTxMockRecorder struct {
	mock *MockImportTx
}

// NewMockImportTx creates a new mock instance.
func NewMockImportTx(ctrl *gomock.Controller) *MockImportTx {
	mock := &MockImportTx{ctrl: ctrl}
	mock.recorder = &MockImportTxMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockImportTx) EXPECT() *MockImportTxMockRecorder {
	return m.recorder
}

// Commit mocks base method.
func (m *MockImportTx) Commit() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Commit")
	ret0, _ := ret[0].(error)
	return ret0
}

// Commit indicates an expected call of Commit.
func (mr *MockImportTxMockRecorder) Commit() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Commit", reflect.TypeOf((*MockImportTx)(nil).Commit))
}

// CreateInvoice mocks base method.
func (m *MockImportTx) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateInvoice", ctx, inv)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateInvoice indicates an expected call of CreateInvoice.
func (mr *MockImportTxMockRecorder) CreateInvoice(ctx, inv any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateInvoice", reflect.TypeOf((*MockImportTx)(nil).CreateInvoice), ctx, inv)
}

// MarkMirrorImported mocks base method.
func (m *MockImportTx) MarkMirrorImported(ctx context.Context, recordID, invoiceID uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkMirrorImported", ctx, recordID, invoiceID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkMirrorImported indicates an expected call of MarkMirrorImported.
func (mr *MockImportTxMockRecorder) MarkMirrorImported(ctx, recordID, invoiceID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkMirrorImported", reflect.TypeOf((*MockImportTx)(nil).MarkMirrorImported), ctx, recordID, invoiceID)
}

// MarkParsedImported mocks base method.
func (m *MockImportTx) MarkParsedImported(ctx context.Context, recordID, invoiceID uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkParsedImported", ctx, recordID, invoiceID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkParsedImported indicates an expected call of MarkParsedImported.
func (mr *MockImportTxMockRecorder) MarkParsedImported(ctx, recordID, invoiceID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkParsedImported", reflect.TypeOf((*MockImportTx)(nil).MarkParsedImported), ctx, recordID, invoiceID)
}

// Rollback mocks base method.
func (m *MockImportTx) Rollback() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Rollback")
	ret0, _ := ret[0].(error)
	return ret0
}

// Rollback indicates an expected call of Rollback.
func (mr *MockImportTxMockRecorder) Rollback() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Rollback", reflect.TypeOf((*MockImportTx)(nil).Rollback))
}

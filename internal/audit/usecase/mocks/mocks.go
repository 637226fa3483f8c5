// Package mocks provides testify mock implementations of the audit usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	"github.com/heirclark/dataguard/internal/audit/usecase"
)

// MockAuditLogRepository is a mock implementation of usecase.AuditLogRepository.
type MockAuditLogRepository struct {
	mock.Mock
}

// CreateBatch mocks the CreateBatch method.
func (m *MockAuditLogRepository) CreateBatch(ctx context.Context, auditLogs []*auditDomain.AuditLog) error {
	args := m.Called(ctx, auditLogs)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockAuditLogRepository) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

// Anonymize mocks the Anonymize method.
func (m *MockAuditLogRepository) Anonymize(ctx context.Context, filter auditDomain.AnonymizeFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// CountAnonymizable mocks the CountAnonymizable method.
func (m *MockAuditLogRepository) CountAnonymizable(
	ctx context.Context,
	filter auditDomain.AnonymizeFilter,
) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditLogUseCase is a mock implementation of usecase.AuditLogUseCase.
type MockAuditLogUseCase struct {
	mock.Mock
}

// Record mocks the Record method.
func (m *MockAuditLogUseCase) Record(ctx context.Context, input usecase.RecordInput) {
	m.Called(ctx, input)
}

// List mocks the List method.
func (m *MockAuditLogUseCase) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

// AnonymizeExpired mocks the AnonymizeExpired method.
func (m *MockAuditLogUseCase) AnonymizeExpired(ctx context.Context, dryRun bool) (int64, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// MockSink is a mock implementation of usecase.Sink.
type MockSink struct {
	mock.Mock
}

// Log mocks the Log method.
func (m *MockSink) Log(ctx context.Context, entry *auditDomain.AuditLog) {
	m.Called(ctx, entry)
}

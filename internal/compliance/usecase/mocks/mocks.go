// Package mocks provides testify mock implementations of the compliance usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/compliance/usecase"
)

// MockUserDataRepository is a mock implementation of usecase.UserDataRepository.
type MockUserDataRepository struct {
	mock.Mock
}

// FetchRows mocks the FetchRows method.
func (m *MockUserDataRepository) FetchRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) ([]usecase.Row, error) {
	args := m.Called(ctx, table, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.Row), args.Error(1)
}

// DeleteRows mocks the DeleteRows method.
func (m *MockUserDataRepository) DeleteRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) (int64, error) {
	args := m.Called(ctx, table, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditScrubber is a mock implementation of usecase.AuditScrubber.
type MockAuditScrubber struct {
	mock.Mock
}

// ScrubUser mocks the ScrubUser method.
func (m *MockAuditScrubber) ScrubUser(userID string) int {
	args := m.Called(userID)
	return args.Int(0)
}

// CommitScrub mocks the CommitScrub method.
func (m *MockAuditScrubber) CommitScrub(userID string) int {
	args := m.Called(userID)
	return args.Int(0)
}

// ReleaseUser mocks the ReleaseUser method.
func (m *MockAuditScrubber) ReleaseUser(userID string) {
	m.Called(userID)
}

// MockComplianceUseCase is a mock implementation of usecase.ComplianceUseCase.
type MockComplianceUseCase struct {
	mock.Mock
}

// Export mocks the Export method.
func (m *MockComplianceUseCase) Export(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ExportDocument, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complianceDomain.ExportDocument), args.Error(1)
}

// Erase mocks the Erase method.
func (m *MockComplianceUseCase) Erase(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ErasureManifest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complianceDomain.ErasureManifest), args.Error(1)
}

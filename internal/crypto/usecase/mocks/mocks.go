// Package mocks provides testify mock implementations of the crypto usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	"github.com/heirclark/dataguard/internal/crypto/usecase"
)

// MockBackfillRepository is a mock implementation of usecase.BackfillRepository.
type MockBackfillRepository struct {
	mock.Mock
}

// FetchPending mocks the FetchPending method.
func (m *MockBackfillRepository) FetchPending(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	afterID string,
	limit int,
) ([]cryptoDomain.BackfillRow, error) {
	args := m.Called(ctx, target, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cryptoDomain.BackfillRow), args.Error(1)
}

// StoreEnvelope mocks the StoreEnvelope method.
func (m *MockBackfillRepository) StoreEnvelope(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	id, envelope string,
	clearPlaintext bool,
) (bool, error) {
	args := m.Called(ctx, target, id, envelope, clearPlaintext)
	return args.Bool(0), args.Error(1)
}

// MockBackfillUseCase is a mock implementation of usecase.BackfillUseCase.
type MockBackfillUseCase struct {
	mock.Mock
}

// Run mocks the Run method.
func (m *MockBackfillUseCase) Run(
	ctx context.Context,
	input usecase.BackfillInput,
) (*cryptoDomain.BackfillResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.BackfillResult), args.Error(1)
}

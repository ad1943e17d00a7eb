package mocks

import (
	"context"

	"docflow/internal/model"
	"docflow/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockSignatureRepository struct {
	mock.Mock
}

var _ repository.SignatureRepository = (*MockSignatureRepository)(nil)

func (m *MockSignatureRepository) Record(ctx context.Context, sig *model.SignatureRecord) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockSignatureRepository) SignedRoles(ctx context.Context, docID string, action model.DocumentAction) ([]model.ModuleRole, error) {
	args := m.Called(ctx, docID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ModuleRole), args.Error(1)
}

func (m *MockSignatureRepository) DeleteForDocument(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

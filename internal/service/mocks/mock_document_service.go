package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docflow/internal/model"
	"docflow/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) Create(ctx context.Context, title, typeCode string, owner model.UserIdentity) (*model.DocumentRecord, error) {
	args := m.Called(ctx, title, typeCode, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

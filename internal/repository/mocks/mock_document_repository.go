package mocks

import (
	"context"

	"docflow/internal/model"
	"docflow/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

func (m *MockDocumentRepository) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.DocumentRecord], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.DocumentRecord]), args.Error(1)
}

func (m *MockDocumentRepository) Assignees(ctx context.Context, docID string) (model.Assignments, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Assignments), args.Error(1)
}

func (m *MockDocumentRepository) SetWorkflowActive(ctx context.Context, docID string, active bool, startedBy string) error {
	args := m.Called(ctx, docID, active, startedBy)
	return args.Error(0)
}

func (m *MockDocumentRepository) WorkflowActive(ctx context.Context, docID string) (bool, error) {
	args := m.Called(ctx, docID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) WorkflowStarter(ctx context.Context, docID string) (string, error) {
	args := m.Called(ctx, docID)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentRepository) Owner(ctx context.Context, docID string) (string, error) {
	args := m.Called(ctx, docID)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentRepository) SetStatus(ctx context.Context, docID string, status model.DocumentStatus, actorID, reason string) error {
	args := m.Called(ctx, docID, status, actorID, reason)
	return args.Error(0)
}

func (m *MockDocumentRepository) BumpMinorVersion(ctx context.Context, docID string, actorID, reason string) error {
	args := m.Called(ctx, docID, actorID, reason)
	return args.Error(0)
}

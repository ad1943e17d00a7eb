package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"docflow/internal/model"
	"docflow/internal/service"
)

type MockWorkflowService struct {
	mock.Mock
}

var _ service.WorkflowService = (*MockWorkflowService)(nil)

func (m *MockWorkflowService) StartWorkflow(ctx context.Context, docID string, userRoles, assignedRoles []string, ensure service.EnsureAssignmentsFunc) error {
	args := m.Called(ctx, docID, userRoles, assignedRoles, ensure)
	return args.Error(0)
}

func (m *MockWorkflowService) AbortWorkflow(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	args := m.Called(ctx, docID, reason, userRoles, assignedRoles)
	return args.Error(0)
}

func (m *MockWorkflowService) ForwardTransition(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	args := m.Called(ctx, docID, reason, userRoles, assignedRoles)
	return args.Error(0)
}

func (m *MockWorkflowService) BackwardToDraft(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	args := m.Called(ctx, docID, reason, userRoles, assignedRoles)
	return args.Error(0)
}

func (m *MockWorkflowService) Archive(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	args := m.Called(ctx, docID, reason, userRoles, assignedRoles)
	return args.Error(0)
}

func (m *MockWorkflowService) Sign(ctx context.Context, docID string, action model.DocumentAction, role model.ModuleRole, userRoles []string, artifact io.Reader, size int64) (*model.SignatureRecord, error) {
	args := m.Called(ctx, docID, action, role, userRoles, artifact, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureRecord), args.Error(1)
}

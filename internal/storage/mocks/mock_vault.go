package mocks

import (
	"context"
	"io"
	"time"

	"docflow/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockVault struct {
	mock.Mock
}

var _ storage.Vault = (*MockVault)(nil)

func (m *MockVault) Put(ctx context.Context, key string, r io.Reader, opt storage.PutOptions) (storage.ArtifactInfo, error) {
	args := m.Called(ctx, key, r, opt)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.PutOptions) storage.ArtifactInfo); ok {
		return f(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ArtifactInfo), args.Error(1)
}

func (m *MockVault) Get(ctx context.Context, key string) (io.ReadCloser, storage.ArtifactInfo, error) {
	args := m.Called(ctx, key)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	return rc, args.Get(1).(storage.ArtifactInfo), args.Error(2)
}

func (m *MockVault) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockVault) DeletePrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *MockVault) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

package storage

import (
	"context"
	"io"
	"time"
)

// Package storage holds the object vault used for signed document artifacts
// (signed PDFs and content snapshots). Implementations stream to an
// S3-compatible backend and never touch local disk.

// PutOptions define optional parameters for storing an artifact.
// Size should be the exact number of bytes if known; -1 lets the backend
// chunk as it sees fit.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Vault is the object storage port for document artifacts.
type Vault interface {
	// Put stores an artifact under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ArtifactInfo, error)
	// Get retrieves an artifact's content as a streaming reader with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ArtifactInfo, error)
	// Delete removes a single artifact by key.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every artifact whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// PresignGet returns a time-limited download URL for the artifact.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/model"
	"docflow/internal/repository"
	"docflow/internal/typespec"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrTitleRequired = errors.New("title is required")
	ErrNotFound      = errors.New("document not found")
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.DocumentRecord `json:"data"`
	Total int                    `json:"total"`
}

// DocumentService covers the non-workflow use cases: creating drafts and
// reading records. Status is never touched here.
type DocumentService interface {
	// Create registers a new document in DRAFT at version 1.0, owned by the
	// given user. The type code must be configured in the registry.
	Create(ctx context.Context, title, typeCode string, owner model.UserIdentity) (*model.DocumentRecord, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its id.
	Get(ctx context.Context, id string) (*model.DocumentRecord, error)
}

type documentService struct {
	repo     repository.DocumentRepository
	registry *typespec.Registry
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(repo repository.DocumentRepository, registry *typespec.Registry) DocumentService {
	return &documentService{repo: repo, registry: registry}
}

func (s *documentService) Create(ctx context.Context, title, typeCode string, owner model.UserIdentity) (*model.DocumentRecord, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if owner.ID == "" {
		return nil, ErrIDRequired
	}
	spec, err := s.registry.Get(typeCode)
	if err != nil {
		return nil, fmt.Errorf("resolve document type: %w", err)
	}

	doc := &model.DocumentRecord{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		TypeCode:  spec.Code,
		Status:    model.StatusDraft,
		OwnerID:   owner.ID,
		Version:   model.Version{Major: 1, Minor: 0},
		CreatedAt: time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return stored, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by id.
func (s *documentService) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

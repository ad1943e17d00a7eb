package repository

import (
	"context"

	"docflow/internal/model"
)

// DocumentRepository is the persistence port of the document lifecycle. It is
// strictly data access: callers (the workflow service) own every rule about
// when a mutation is allowed.
//
// Lookups of a missing document return sql.ErrNoRows so callers can translate
// it into a not-found failure.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error)

	// Get returns a document by its id.
	Get(ctx context.Context, id string) (*model.DocumentRecord, error)

	// List returns a paginated list of documents and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.DocumentRecord], error)

	// Assignees returns the per-document role assignments.
	Assignees(ctx context.Context, docID string) (model.Assignments, error)

	// SetWorkflowActive marks the workflow active or inactive. startedBy is
	// recorded when activating and ignored when deactivating.
	SetWorkflowActive(ctx context.Context, docID string, active bool, startedBy string) error

	// WorkflowActive reports whether a workflow is currently running.
	WorkflowActive(ctx context.Context, docID string) (bool, error)

	// WorkflowStarter returns the user id recorded as having started the
	// active workflow, or "" when none is recorded.
	WorkflowStarter(ctx context.Context, docID string) (string, error)

	// Owner returns the owner user id of the document.
	Owner(ctx context.Context, docID string) (string, error)

	// SetStatus persists a new status together with the acting user and the
	// stated reason (status history row).
	SetStatus(ctx context.Context, docID string, status model.DocumentStatus, actorID, reason string) error

	// BumpMinorVersion increments the document's minor version.
	BumpMinorVersion(ctx context.Context, docID string, actorID, reason string) error
}

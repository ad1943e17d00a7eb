package repository

import (
	"context"

	"docflow/internal/model"
)

// SignatureRepository persists recorded sign-offs. The workflow service reads
// them back to gate the publish transition.
type SignatureRepository interface {
	// Record inserts a signature row.
	Record(ctx context.Context, sig *model.SignatureRecord) error

	// SignedRoles returns the roles with a recorded signature for the given
	// document and action.
	SignedRoles(ctx context.Context, docID string, action model.DocumentAction) ([]model.ModuleRole, error)

	// DeleteForDocument removes all signature rows of a document. Used when a
	// workflow is aborted and its sign-offs become void.
	DeleteForDocument(ctx context.Context, docID string) error
}

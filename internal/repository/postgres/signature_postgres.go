package postgres

import (
	"context"
	"database/sql"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// SignaturePostgres is a PostgreSQL implementation of
// repository.SignatureRepository.
type SignaturePostgres struct {
	db *sql.DB
}

// NewSignaturePostgres creates a new SignaturePostgres repository.
func NewSignaturePostgres(db *sql.DB) *SignaturePostgres {
	return &SignaturePostgres{db: db}
}

var _ repository.SignatureRepository = (*SignaturePostgres)(nil)

// Record inserts a signature row.
func (r *SignaturePostgres) Record(ctx context.Context, sig *model.SignatureRecord) error {
	const q = `
		INSERT INTO document_signatures (id, doc_id, action, role, signer_id, artifact_key, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, q,
		sig.ID,
		sig.DocID,
		string(sig.Action),
		string(sig.Role),
		sig.SignerID,
		sig.ArtifactKey,
		sig.SignedAt,
	)
	return err
}

// SignedRoles returns the distinct roles with a recorded signature for the
// document and action.
func (r *SignaturePostgres) SignedRoles(ctx context.Context, docID string, action model.DocumentAction) ([]model.ModuleRole, error) {
	const q = `
		SELECT DISTINCT role FROM document_signatures
		WHERE doc_id = $1 AND action = $2
		ORDER BY role
	`
	rows, err := r.db.QueryContext(ctx, q, docID, string(action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.ModuleRole
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if role, ok := model.ParseModuleRole(raw); ok {
			roles = append(roles, role)
		}
	}
	return roles, rows.Err()
}

// DeleteForDocument removes all signature rows of a document.
func (r *SignaturePostgres) DeleteForDocument(ctx context.Context, docID string) error {
	const q = `DELETE FROM document_signatures WHERE doc_id = $1`
	_, err := r.db.ExecContext(ctx, q, docID)
	return err
}

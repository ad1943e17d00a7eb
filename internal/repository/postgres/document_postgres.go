package postgres

import (
	"context"
	"database/sql"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries and contains no workflow logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, title, type_code, status, owner_id, version_major, version_minor, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.DocumentRecord, error) {
	var d model.DocumentRecord
	var status string
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.TypeCode,
		&status,
		&d.OwnerID,
		&d.Version.Major,
		&d.Version.Minor,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	d.Status = parsed
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.DocumentRecord) (*model.DocumentRecord, error) {
	const q = `
		INSERT INTO documents (id, title, type_code, status, owner_id, version_major, version_minor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.TypeCode,
		string(doc.Status),
		doc.OwnerID,
		doc.Version.Major,
		doc.Version.Minor,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// Get fetches a single document by its id.
func (r *DocumentPostgres) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.DocumentRecord], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentRecord, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.DocumentRecord]{
		Items: items,
		Total: total,
	}, nil
}

// Assignees returns the per-document role assignments grouped by role.
func (r *DocumentPostgres) Assignees(ctx context.Context, docID string) (model.Assignments, error) {
	const q = `SELECT role, user_id FROM document_assignments WHERE doc_id = $1 ORDER BY role, user_id`
	rows, err := r.db.QueryContext(ctx, q, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make(model.Assignments)
	for rows.Next() {
		var rawRole, userID string
		if err := rows.Scan(&rawRole, &userID); err != nil {
			return nil, err
		}
		role, ok := model.ParseModuleRole(rawRole)
		if !ok {
			// Stale rows with retired role tokens are skipped, not fatal.
			continue
		}
		assignments[role] = append(assignments[role], userID)
	}
	return assignments, rows.Err()
}

// SetWorkflowActive flips the workflow flag and records the starter.
func (r *DocumentPostgres) SetWorkflowActive(ctx context.Context, docID string, active bool, startedBy string) error {
	if active {
		const q = `UPDATE documents SET workflow_active = TRUE, workflow_started_by = $2 WHERE id = $1`
		return execOne(ctx, r.db, q, docID, startedBy)
	}
	const q = `UPDATE documents SET workflow_active = FALSE, workflow_started_by = NULL WHERE id = $1`
	return execOne(ctx, r.db, q, docID)
}

// WorkflowActive reports whether a workflow is currently running.
func (r *DocumentPostgres) WorkflowActive(ctx context.Context, docID string) (bool, error) {
	const q = `SELECT workflow_active FROM documents WHERE id = $1`
	var active bool
	if err := r.db.QueryRowContext(ctx, q, docID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// WorkflowStarter returns the recorded workflow starter id, or "".
func (r *DocumentPostgres) WorkflowStarter(ctx context.Context, docID string) (string, error) {
	const q = `SELECT COALESCE(workflow_started_by, '') FROM documents WHERE id = $1`
	var starter string
	if err := r.db.QueryRowContext(ctx, q, docID).Scan(&starter); err != nil {
		return "", err
	}
	return starter, nil
}

// Owner returns the document owner id.
func (r *DocumentPostgres) Owner(ctx context.Context, docID string) (string, error) {
	const q = `SELECT owner_id FROM documents WHERE id = $1`
	var owner string
	if err := r.db.QueryRowContext(ctx, q, docID).Scan(&owner); err != nil {
		return "", err
	}
	return owner, nil
}

// SetStatus updates the status and appends a history event in one
// transaction.
func (r *DocumentPostgres) SetStatus(ctx context.Context, docID string, status model.DocumentStatus, actorID, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const qUpdate = `UPDATE documents SET status = $2 WHERE id = $1`
	res, err := tx.ExecContext(ctx, qUpdate, docID, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	const qEvent = `
		INSERT INTO document_events (doc_id, event, detail, actor_id, reason, created_at)
		VALUES ($1, 'status_change', $2, $3, $4, now())
	`
	if _, err := tx.ExecContext(ctx, qEvent, docID, string(status), actorID, reason); err != nil {
		return err
	}

	return tx.Commit()
}

// BumpMinorVersion increments the minor version and appends a history event
// in one transaction.
func (r *DocumentPostgres) BumpMinorVersion(ctx context.Context, docID string, actorID, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const qUpdate = `
		UPDATE documents SET version_minor = version_minor + 1 WHERE id = $1
		RETURNING version_major, version_minor
	`
	var major, minor int
	if err := tx.QueryRowContext(ctx, qUpdate, docID).Scan(&major, &minor); err != nil {
		return err
	}

	const qEvent = `
		INSERT INTO document_events (doc_id, event, detail, actor_id, reason, created_at)
		VALUES ($1, 'version_bump', $2, $3, $4, now())
	`
	version := model.Version{Major: major, Minor: minor}
	if _, err := tx.ExecContext(ctx, qEvent, docID, version.String(), actorID, reason); err != nil {
		return err
	}

	return tx.Commit()
}

func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

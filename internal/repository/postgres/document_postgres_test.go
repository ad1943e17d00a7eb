package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docflow/internal/model"
	"docflow/internal/repository"
)

func documentRows(doc *model.DocumentRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "type_code", "status", "owner_id", "version_major", "version_minor", "created_at"}).
		AddRow(doc.ID, doc.Title, doc.TypeCode, string(doc.Status), doc.OwnerID, doc.Version.Major, doc.Version.Minor, doc.CreatedAt)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.DocumentRecord{
		ID:        "test-uuid",
		Title:     "Change Control Procedure",
		TypeCode:  "VA",
		Status:    model.StatusDraft,
		OwnerID:   "u1",
		Version:   model.Version{Major: 1, Minor: 0},
		CreatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Title, doc.TypeCode, "DRAFT", doc.OwnerID, 1, 0, now).
		WillReturnRows(documentRows(doc))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, model.StatusDraft, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		doc := &model.DocumentRecord{
			ID: "test-id", Title: "Doc", TypeCode: "VA",
			Status: model.StatusReview, OwnerID: "u1",
			Version: model.Version{Major: 1, Minor: 2}, CreatedAt: time.Now(),
		}
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(documentRows(doc))

		got, err := repo.Get(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, model.StatusReview, got.Status)
		assert.Equal(t, "1.2", got.Version.String())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.Get(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})

	t.Run("corrupt status is rejected", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "title", "type_code", "status", "owner_id", "version_major", "version_minor", "created_at"}).
			AddRow("bad-id", "Doc", "VA", "LIMBO", "u1", 1, 0, time.Now())
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("bad-id").
			WillReturnRows(rows)

		got, err := repo.Get(ctx, "bad-id")

		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	doc := &model.DocumentRecord{
		ID: "test-id", Title: "Doc", TypeCode: "VA",
		Status: model.StatusDraft, OwnerID: "u1",
		Version: model.Version{Major: 1, Minor: 0}, CreatedAt: time.Now(),
	}
	mock.ExpectQuery("SELECT (.+) FROM documents ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(documentRows(doc))

	res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Assignees(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"role", "user_id"}).
		AddRow("APPROVER", "u9").
		AddRow("APPROVER", "u10").
		AddRow("REVIEWER", "u3").
		AddRow("RETIRED_ROLE", "u4")

	mock.ExpectQuery("SELECT role, user_id FROM document_assignments").
		WithArgs("doc1").
		WillReturnRows(rows)

	got, err := repo.Assignees(ctx, "doc1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"u9", "u10"}, got.UserIDs(model.RoleApprover))
	assert.Equal(t, []string{"u3"}, got.UserIDs(model.RoleReviewer))
	// Rows with retired role tokens are skipped.
	assert.Len(t, got, 2)
}

func TestDocumentPostgres_WorkflowState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("activate records the starter", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET workflow_active = TRUE").
			WithArgs("doc1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetWorkflowActive(ctx, "doc1", true, "u1"))
	})

	t.Run("deactivate clears the starter", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET workflow_active = FALSE").
			WithArgs("doc1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetWorkflowActive(ctx, "doc1", false, ""))
	})

	t.Run("missing document maps to ErrNoRows", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET workflow_active = TRUE").
			WithArgs("missing", "u1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetWorkflowActive(ctx, "missing", true, "u1"), sql.ErrNoRows)
	})

	t.Run("reads flag and starter", func(t *testing.T) {
		mock.ExpectQuery("SELECT workflow_active FROM documents").
			WithArgs("doc1").
			WillReturnRows(sqlmock.NewRows([]string{"workflow_active"}).AddRow(true))
		mock.ExpectQuery("SELECT COALESCE\\(workflow_started_by, ''\\) FROM documents").
			WithArgs("doc1").
			WillReturnRows(sqlmock.NewRows([]string{"workflow_started_by"}).AddRow("u1"))

		active, err := repo.WorkflowActive(ctx, "doc1")
		assert.NoError(t, err)
		assert.True(t, active)

		starter, err := repo.WorkflowStarter(ctx, "doc1")
		assert.NoError(t, err)
		assert.Equal(t, "u1", starter)
	})
}

func TestDocumentPostgres_SetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("updates status and appends history event", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs("doc1", "REVIEW").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO document_events").
			WithArgs("doc1", "REVIEW", "u1", "").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.SetStatus(ctx, "doc1", model.StatusReview, "u1", "")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing document rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs("missing", "REVIEW").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SetStatus(ctx, "missing", model.StatusReview, "u1", "")

		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestDocumentPostgres_BumpMinorVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents SET version_minor = version_minor \\+ 1").
		WithArgs("doc1").
		WillReturnRows(sqlmock.NewRows([]string{"version_major", "version_minor"}).AddRow(1, 1))
	mock.ExpectExec("INSERT INTO document_events").
		WithArgs("doc1", "1.1", "u1", "published").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = repo.BumpMinorVersion(ctx, "doc1", "u1", "published")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docflow/internal/model"
)

func TestSignaturePostgres_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSignaturePostgres(db)
	ctx := context.Background()

	signedAt := time.Now().UTC()
	sig := &model.SignatureRecord{
		ID:          "sig-1",
		DocID:       "doc1",
		Action:      model.ActionPublish,
		Role:        model.RoleApprover,
		SignerID:    "u2",
		ArtifactKey: "signed/doc1/publish-sig-1.pdf",
		SignedAt:    signedAt,
	}

	mock.ExpectExec("INSERT INTO document_signatures").
		WithArgs("sig-1", "doc1", "publish", "APPROVER", "u2", "signed/doc1/publish-sig-1.pdf", signedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Record(ctx, sig))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignaturePostgres_SignedRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSignaturePostgres(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"role"}).
		AddRow("APPROVER").
		AddRow("REVIEWER").
		AddRow("RETIRED_ROLE")

	mock.ExpectQuery("SELECT DISTINCT role FROM document_signatures").
		WithArgs("doc1", "publish").
		WillReturnRows(rows)

	roles, err := repo.SignedRoles(ctx, "doc1", model.ActionPublish)

	assert.NoError(t, err)
	assert.Equal(t, []model.ModuleRole{model.RoleApprover, model.RoleReviewer}, roles)
}

func TestSignaturePostgres_DeleteForDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSignaturePostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM document_signatures WHERE doc_id = ?").
		WithArgs("doc1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	assert.NoError(t, repo.DeleteForDocument(ctx, "doc1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

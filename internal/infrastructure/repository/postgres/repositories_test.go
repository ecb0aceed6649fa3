package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/docudex/docudex-api/internal/core/domain"
)

func TestShareRepositoryResolveCountsAccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	expiresAt := now.Add(24 * time.Hour)
	mock.ExpectQuery("SET access_count = access_count \\+ 1").
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{
			"original_name", "mime_type", "file_size", "status", "document_type", "holder_name", "expiry_date", "expires_at",
		}).AddRow("pan.pdf", "application/pdf", int64(1024), "CURRENT", nil, nil, nil, expiresAt))

	view, err := NewShareRepository(db).Resolve(context.Background(), "tok", now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if view.DocumentName != "pan.pdf" || view.DocumentType != domain.TypeOther {
		t.Fatalf("unexpected view: %+v", view)
	}
	if !view.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, view.ExpiresAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestShareRepositoryResolveExpiredIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("WITH hit AS").
		WillReturnRows(sqlmock.NewRows([]string{"original_name"}))

	_, err = NewShareRepository(db).Resolve(context.Background(), "tok", time.Now())
	if !domain.IsKind(err, domain.ErrShareNotFound) {
		t.Fatalf("expected ErrShareNotFound, got %v", err)
	}
}

func TestShareRepositoryRevokeRequiresOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM document_shares").
		WithArgs("u-2", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewShareRepository(db).Revoke(context.Background(), "u-2", "tok")
	if !domain.IsKind(err, domain.ErrShareNotFound) {
		t.Fatalf("expected ErrShareNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNotificationRepositoryMarkAllReadReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE notifications").
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewNotificationRepository(db).MarkAllRead(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNotificationRepositoryMarkReadReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE notifications").
		WithArgs("u-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewNotificationRepository(db).MarkRead(context.Background(), "u-1", "missing")
	if !domain.IsKind(err, domain.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestNotificationRepositoryListScansOptionalLinks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM notifications").
		WithArgs("u-1", domain.NotificationListLimit).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "type", "title", "message", "is_read", "document_id", "workflow_id", "created_at",
		}).AddRow("n-1", "u-1", "DOCUMENT_EXPIRED", "Document expired", "pan.pdf expired", false, "doc-1", nil, time.Now()))

	items, err := NewNotificationRepository(db).List(context.Background(), "u-1", domain.NotificationListLimit)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 || items[0].Type != domain.NotificationDocumentExpired {
		t.Fatalf("unexpected notifications: %+v", items)
	}
	if items[0].DocumentID == nil || *items[0].DocumentID != "doc-1" || items[0].WorkflowID != nil {
		t.Fatalf("unexpected links: %+v", items[0])
	}
}

func TestWorkflowRepositoryGetByIDDecodesDocumentIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM workflow_instances").
		WithArgs("u-1", "wf-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "template_id", "template_name", "status", "current_step", "total_steps",
			"reference_number", "document_ids", "submitted_at", "completed_at", "created_at", "updated_at",
		}).AddRow("wf-1", "u-1", "passport-renewal", "Passport Renewal", "SUBMITTED", 2, 3,
			nil, []byte(`["doc-1","doc-2"]`), created, nil, created, created))

	w, err := NewWorkflowRepository(db).GetByID(context.Background(), "u-1", "wf-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if w.Status != domain.WorkflowSubmitted || len(w.DocumentIDs) != 2 {
		t.Fatalf("unexpected workflow: %+v", w)
	}
	if w.SubmittedAt == nil || w.CompletedAt != nil {
		t.Fatalf("unexpected timestamps: submitted=%v completed=%v", w.SubmittedAt, w.CompletedAt)
	}
}

func TestWorkflowRepositorySaveReturnsNotFoundWhenNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE workflow_instances").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewWorkflowRepository(db).Save(context.Background(), &domain.WorkflowInstance{
		ID: "wf-1", OwnerID: "u-2", Status: domain.WorkflowInProgress,
	})
	if !domain.IsKind(err, domain.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestAuditRepositoryRecordStoresMetadataAsJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "document.upload", "document", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), []byte(`{"mimeType":"application/pdf"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewAuditRepository(db).Record(context.Background(), domain.AuditEntry{
		OwnerID:      "u-1",
		Action:       "document.upload",
		ResourceType: "document",
		ResourceID:   "doc-1",
		Metadata:     map[string]string{"mimeType": "application/pdf"},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

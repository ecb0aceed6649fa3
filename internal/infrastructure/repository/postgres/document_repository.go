package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

const documentColumns = `id, user_id, folder_id, file_name, original_name, mime_type, file_size, storage_key, status,
	document_type, category, issue_date, expiry_date, issuing_authority, document_number, holder_name,
	tags, extracted_fields, classification_confidence, is_starred, created_at, updated_at`

const statusChangeColumns = `id, user_id, original_name, expiry_date`

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	tagsJSON, err := marshalJSON(doc.Metadata.Tags, "[]")
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	fieldsJSON, err := marshalJSON(doc.Metadata.ExtractedFields, "{}")
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, user_id, folder_id, file_name, original_name, mime_type, file_size, storage_key, status,
	tags, extracted_fields, is_starred, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.OwnerID, doc.FolderID, doc.FileName, doc.OriginalName, doc.MimeType, doc.FileSize,
		doc.StorageKey, string(doc.Status), tagsJSON, fieldsJSON, doc.IsStarred, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1 AND user_id = $2
`, id, ownerID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentNotFound("get document", id)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error) {
	filter = filter.Normalize()
	where, args := documentFilterClause(ownerID, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return domain.DocumentPage{}, fmt.Errorf("count documents: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset())
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM documents
WHERE %s
ORDER BY created_at DESC, id
LIMIT $%d OFFSET $%d
`, documentColumns, where, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return domain.DocumentPage{}, fmt.Errorf("list documents: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return domain.DocumentPage{}, err
	}
	return domain.DocumentPage{Documents: docs, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (r *DocumentRepository) Update(ctx context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	b := newUpdateBuilder("documents")
	if patch.Tags != nil {
		tagsJSON, err := marshalJSON(*patch.Tags, "[]")
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		b.Set("tags", tagsJSON)
	}
	if patch.IsStarred != nil {
		b.Set("is_starred", *patch.IsStarred)
	}
	if patch.FolderID != nil {
		b.Set("folder_id", nullString(*patch.FolderID))
	}
	if patch.DocumentType != nil {
		b.Set("document_type", string(*patch.DocumentType))
	}
	if patch.Category != nil {
		b.Set("category", string(*patch.Category))
	}
	query, args, err := b.Set("updated_at", time.Now().UTC()).
		Where("id", id).
		Where("user_id", ownerID).
		Returning(documentColumns).
		Build()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentNotFound("update document", id)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, ownerID, id string) (string, error) {
	var storageKey string
	err := r.db.QueryRowContext(ctx, `
DELETE FROM documents
WHERE id = $1 AND user_id = $2
RETURNING storage_key
`, id, ownerID).Scan(&storageKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", documentNotFound("delete document", id)
		}
		return "", fmt.Errorf("delete document: %w", err)
	}
	return storageKey, nil
}

func (r *DocumentRepository) Stats(ctx context.Context, ownerID string) (domain.DocumentStats, error) {
	var stats domain.DocumentStats
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'CURRENT'),
	COUNT(*) FILTER (WHERE status = 'EXPIRING_SOON'),
	COUNT(*) FILTER (WHERE status = 'EXPIRED'),
	COUNT(*) FILTER (WHERE status = 'PROCESSING')
FROM documents
WHERE user_id = $1
`, ownerID).Scan(&stats.Total, &stats.Current, &stats.ExpiringSoon, &stats.Expired, &stats.Processing)
	if err != nil {
		return domain.DocumentStats{}, fmt.Errorf("document stats: %w", err)
	}
	return stats, nil
}

func (r *DocumentRepository) CountOwned(ctx context.Context, ownerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return 0, fmt.Errorf("marshal ids: %w", err)
	}
	var count int
	err = r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM documents
WHERE user_id = $1 AND id IN (SELECT jsonb_array_elements_text($2::jsonb))
`, ownerID, idsJSON).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count owned documents: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) ListByTypes(ctx context.Context, ownerID string, types []domain.DocumentType) ([]domain.Document, error) {
	if len(types) == 0 {
		return []domain.Document{}, nil
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return nil, fmt.Errorf("marshal document types: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE user_id = $1 AND document_type IN (SELECT jsonb_array_elements_text($2::jsonb))
ORDER BY created_at DESC, id
`, ownerID, typesJSON)
	if err != nil {
		return nil, fmt.Errorf("list documents by type: %w", err)
	}
	return collectDocuments(rows)
}

// ApplyClassification writes the update only while the row is still PROCESSING.
// Zero matching rows is reported as not found.
func (r *DocumentRepository) ApplyClassification(ctx context.Context, id string, update domain.ClassificationUpdate) (*domain.Document, error) {
	b := newUpdateBuilder("documents").Set("status", string(update.Status))
	if update.DocumentType != nil {
		b.Set("document_type", string(*update.DocumentType))
	}
	if update.Category != nil {
		b.Set("category", string(*update.Category))
	}
	if update.Confidence != nil {
		b.Set("classification_confidence", *update.Confidence)
	}
	if update.ExtractedFields != nil {
		fieldsJSON, err := marshalJSON(update.ExtractedFields, "{}")
		if err != nil {
			return nil, fmt.Errorf("marshal extracted fields: %w", err)
		}
		b.Set("extracted_fields", fieldsJSON)
	}
	if update.HolderName != nil {
		b.Set("holder_name", *update.HolderName)
	}
	if update.DocumentNumber != nil {
		b.Set("document_number", *update.DocumentNumber)
	}
	if update.IssuingAuthority != nil {
		b.Set("issuing_authority", *update.IssuingAuthority)
	}
	if update.IssueDate != nil {
		b.Set("issue_date", update.IssueDate.String())
	}
	if update.ExpiryDate != nil {
		b.Set("expiry_date", update.ExpiryDate.String())
	}
	query, args, err := b.Set("updated_at", time.Now().UTC()).
		Where("id", id).
		Where("status", string(domain.StatusProcessing)).
		Returning(documentColumns).
		Build()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentNotFound("apply classification", id)
		}
		return nil, fmt.Errorf("apply classification: %w", err)
	}
	return &doc, nil
}

// The sweep rules partition non-PROCESSING rows with an expiry date by day bucket.
// Each rule skips rows already in its target status, so a second run changes nothing.
const (
	sweepExpiredQuery = `
UPDATE documents
SET status = 'EXPIRED', updated_at = NOW()
WHERE expiry_date IS NOT NULL
	AND expiry_date < $1::date
	AND status NOT IN ('PROCESSING', 'EXPIRED')
RETURNING ` + statusChangeColumns

	sweepExpiringSoonQuery = `
UPDATE documents
SET status = 'EXPIRING_SOON', updated_at = NOW()
WHERE expiry_date IS NOT NULL
	AND expiry_date BETWEEN $1::date AND $2::date
	AND status NOT IN ('PROCESSING', 'EXPIRING_SOON')
RETURNING ` + statusChangeColumns

	sweepCurrentQuery = `
UPDATE documents
SET status = 'CURRENT', updated_at = NOW()
WHERE expiry_date IS NOT NULL
	AND expiry_date > $1::date
	AND status NOT IN ('PROCESSING', 'CURRENT')
RETURNING ` + statusChangeColumns
)

func (r *DocumentRepository) SweepStatuses(ctx context.Context, window domain.SweepWindow) (domain.SweepResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SweepResult{}, fmt.Errorf("begin sweep tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	today, horizon := window.Today.String(), window.Horizon.String()
	var result domain.SweepResult
	if result.Expired, err = sweepRule(ctx, tx, domain.StatusExpired, sweepExpiredQuery, today); err != nil {
		return domain.SweepResult{}, err
	}
	if result.ExpiringSoon, err = sweepRule(ctx, tx, domain.StatusExpiringSoon, sweepExpiringSoonQuery, today, horizon); err != nil {
		return domain.SweepResult{}, err
	}
	if result.Current, err = sweepRule(ctx, tx, domain.StatusCurrent, sweepCurrentQuery, horizon); err != nil {
		return domain.SweepResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.SweepResult{}, fmt.Errorf("commit sweep tx: %w", err)
	}
	return result, nil
}

func sweepRule(ctx context.Context, tx *sql.Tx, status domain.DocumentStatus, query string, args ...interface{}) ([]domain.StatusChange, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", status, err)
	}
	defer rows.Close()

	var out []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		var expiry time.Time
		if err := rows.Scan(&change.DocumentID, &change.OwnerID, &change.OriginalName, &expiry); err != nil {
			return nil, fmt.Errorf("scan sweep %s: %w", status, err)
		}
		change.ExpiryDate = domain.DateOf(expiry)
		change.Status = status
		out = append(out, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep %s: %w", status, err)
	}
	return out, nil
}

func (r *DocumentRepository) ListStaleProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE status = 'PROCESSING' AND created_at < $1
ORDER BY created_at
LIMIT $2
`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale processing documents: %w", err)
	}
	return collectDocuments(rows)
}

// documentFilterClause builds the WHERE clause for a listing; $1 is always the owner.
func documentFilterClause(ownerID string, filter domain.DocumentFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{ownerID}
	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Category != "" {
		add("category = $%d", string(filter.Category))
	}
	if filter.DocumentType != "" {
		add("document_type = $%d", string(filter.DocumentType))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.IsStarred != nil {
		add("is_starred = $%d", *filter.IsStarred)
	}
	if filter.FolderID != "" {
		add("folder_id = $%d", filter.FolderID)
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(original_name ILIKE $%[1]d ESCAPE '\' OR holder_name ILIKE $%[1]d ESCAPE '\' OR document_number ILIKE $%[1]d ESCAPE '\')`, n))
	}
	return strings.Join(conditions, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	defer rows.Close()
	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var (
		folderID, docType, category                  sql.NullString
		issuingAuthority, documentNumber, holderName sql.NullString
		issueDate, expiryDate                        sql.NullTime
		confidence                                   sql.NullFloat64
		status                                       string
		tagsRaw, fieldsRaw                           []byte
	)
	err := row.Scan(
		&doc.ID, &doc.OwnerID, &folderID, &doc.FileName, &doc.OriginalName, &doc.MimeType, &doc.FileSize,
		&doc.StorageKey, &status, &docType, &category, &issueDate, &expiryDate, &issuingAuthority,
		&documentNumber, &holderName, &tagsRaw, &fieldsRaw, &confidence, &doc.IsStarred, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}

	doc.Status = domain.DocumentStatus(status)
	if folderID.Valid {
		doc.FolderID = &folderID.String
	}
	meta := &doc.Metadata
	meta.DocumentType = domain.DocumentType(docType.String)
	meta.Category = domain.DocumentCategory(category.String)
	meta.IssuingAuthority = issuingAuthority.String
	meta.DocumentNumber = documentNumber.String
	meta.HolderName = holderName.String
	if issueDate.Valid {
		d := domain.DateOf(issueDate.Time)
		meta.IssueDate = &d
	}
	if expiryDate.Valid {
		d := domain.DateOf(expiryDate.Time)
		meta.ExpiryDate = &d
	}
	if confidence.Valid {
		meta.ClassificationConfidence = &confidence.Float64
	}
	meta.Tags = []string{}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &meta.Tags); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	meta.ExtractedFields = map[string]string{}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &meta.ExtractedFields); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal extracted fields: %w", err)
		}
	}
	doc.ApplyReadDefaults()
	return doc, nil
}

func marshalJSON(v interface{}, empty string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return []byte(empty), nil
	}
	return raw, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func documentNotFound(operation, id string) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
}

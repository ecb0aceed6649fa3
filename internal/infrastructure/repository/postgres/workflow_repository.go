package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docudex/docudex-api/internal/core/domain"
)

const workflowColumns = `id, user_id, template_id, template_name, status, current_step, total_steps,
	reference_number, document_ids, submitted_at, completed_at, created_at, updated_at`

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) Create(ctx context.Context, w *domain.WorkflowInstance) error {
	idsJSON, err := marshalJSON(w.DocumentIDs, "[]")
	if err != nil {
		return fmt.Errorf("marshal workflow document ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO workflow_instances (`+workflowColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		w.ID, w.OwnerID, w.TemplateID, w.TemplateName, string(w.Status), w.CurrentStep, w.TotalSteps,
		w.ReferenceNumber, idsJSON, w.SubmittedAt, w.CompletedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.WorkflowInstance, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+workflowColumns+`
FROM workflow_instances
WHERE user_id = $1 AND id = $2
`, ownerID, id)

	w, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, workflowNotFound("get workflow", id)
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return &w, nil
}

func (r *WorkflowRepository) List(ctx context.Context, ownerID string) ([]domain.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+workflowColumns+`
FROM workflow_instances
WHERE user_id = $1
ORDER BY created_at DESC, id
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WorkflowInstance, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return out, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, w *domain.WorkflowInstance) error {
	idsJSON, err := marshalJSON(w.DocumentIDs, "[]")
	if err != nil {
		return fmt.Errorf("marshal workflow document ids: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE workflow_instances
SET status = $3, current_step = $4, reference_number = $5, document_ids = $6,
	submitted_at = $7, completed_at = $8, updated_at = $9
WHERE user_id = $1 AND id = $2
`, w.OwnerID, w.ID, string(w.Status), w.CurrentStep, w.ReferenceNumber, idsJSON, w.SubmittedAt, w.CompletedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	n, err := rowsAffected(result, "save workflow")
	if err != nil {
		return err
	}
	if n == 0 {
		return workflowNotFound("save workflow", w.ID)
	}
	return nil
}

func scanWorkflow(row rowScanner) (domain.WorkflowInstance, error) {
	var w domain.WorkflowInstance
	var status string
	var reference sql.NullString
	var submitted, completed sql.NullTime
	var idsRaw []byte
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.TemplateID, &w.TemplateName, &status, &w.CurrentStep, &w.TotalSteps,
		&reference, &idsRaw, &submitted, &completed, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return domain.WorkflowInstance{}, err
	}
	w.Status = domain.WorkflowStatus(status)
	if reference.Valid {
		w.ReferenceNumber = &reference.String
	}
	if submitted.Valid {
		w.SubmittedAt = &submitted.Time
	}
	if completed.Valid {
		w.CompletedAt = &completed.Time
	}
	w.DocumentIDs = []string{}
	if len(idsRaw) > 0 {
		if err := json.Unmarshal(idsRaw, &w.DocumentIDs); err != nil {
			return domain.WorkflowInstance{}, fmt.Errorf("unmarshal workflow document ids: %w", err)
		}
	}
	return w, nil
}

func workflowNotFound(operation, id string) error {
	return domain.WrapError(domain.ErrWorkflowNotFound, operation, fmt.Errorf("id=%s", id))
}

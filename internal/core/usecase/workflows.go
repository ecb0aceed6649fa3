package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

type WorkflowService struct {
	repo      ports.WorkflowRepository
	catalog   ports.WorkflowCatalog
	documents ports.DocumentRepository
	notifier  ports.Notifier
	clock     domain.Clock
}

func NewWorkflowService(
	repo ports.WorkflowRepository,
	catalog ports.WorkflowCatalog,
	documents ports.DocumentRepository,
	notifier ports.Notifier,
	clock domain.Clock,
) *WorkflowService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &WorkflowService{
		repo:      repo,
		catalog:   catalog,
		documents: documents,
		notifier:  notifier,
		clock:     clock,
	}
}

func (s *WorkflowService) ListTemplates(context.Context) []domain.WorkflowTemplate {
	return s.catalog.Templates()
}

func (s *WorkflowService) GetTemplate(_ context.Context, id string) (domain.WorkflowTemplate, error) {
	template, ok := s.catalog.Template(id)
	if !ok {
		return domain.WorkflowTemplate{}, domain.WrapError(domain.ErrTemplateNotFound, "get workflow template", fmt.Errorf("id=%s", id))
	}
	return template, nil
}

func (s *WorkflowService) List(ctx context.Context, ownerID string) ([]domain.WorkflowInstance, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *WorkflowService) Start(ctx context.Context, ownerID, templateID string) (*domain.WorkflowInstance, error) {
	template, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	workflow := &domain.WorkflowInstance{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		TemplateID:   template.ID,
		TemplateName: template.Name,
		Status:       domain.WorkflowDraft,
		TotalSteps:   len(template.RequiredDocuments),
		DocumentIDs:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

func (s *WorkflowService) Get(ctx context.Context, ownerID, id string) (*domain.WorkflowInstance, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// Update applies a workflow patch. Attached documents must belong to the owner.
func (s *WorkflowService) Update(ctx context.Context, ownerID, id string, patch domain.WorkflowPatch) (*domain.WorkflowInstance, error) {
	if patch.Status == nil && patch.CurrentStep == nil && patch.DocumentIDs == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update workflow", fmt.Errorf("no fields to update"))
	}
	if patch.Status != nil {
		status, ok := domain.ParseWorkflowStatus(string(*patch.Status))
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "update workflow", fmt.Errorf("unknown status %q", *patch.Status))
		}
		patch.Status = &status
	}
	workflow, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.CurrentStep != nil {
		if *patch.CurrentStep < 0 || *patch.CurrentStep > workflow.TotalSteps {
			return nil, domain.WrapError(domain.ErrInvalidInput, "update workflow",
				fmt.Errorf("current step must be between 0 and %d", workflow.TotalSteps))
		}
		workflow.CurrentStep = *patch.CurrentStep
	}
	if patch.DocumentIDs != nil {
		ids := uniqueStrings(*patch.DocumentIDs)
		owned, err := s.documents.CountOwned(ctx, ownerID, ids)
		if err != nil {
			return nil, err
		}
		if owned != len(ids) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "update workflow", fmt.Errorf("%d of %d documents not found", len(ids)-owned, len(ids)))
		}
		workflow.DocumentIDs = ids
	}

	now := s.clock.Now()
	previous := workflow.Status
	if patch.Status != nil && *patch.Status != previous {
		workflow.Status = *patch.Status
		switch workflow.Status {
		case domain.WorkflowSubmitted:
			workflow.SubmittedAt = &now
		case domain.WorkflowCompleted:
			workflow.CompletedAt = &now
		}
	}
	workflow.UpdatedAt = now

	if err := s.repo.Save(ctx, workflow); err != nil {
		return nil, err
	}
	if workflow.Status != previous {
		s.notifyStatusChange(ctx, workflow)
	}
	return workflow, nil
}

// Checklist matches the template's document types against the owner's usable documents.
// Expired and still-processing documents do not count.
func (s *WorkflowService) Checklist(ctx context.Context, ownerID, id string) (domain.WorkflowChecklist, error) {
	workflow, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return domain.WorkflowChecklist{}, err
	}
	template, err := s.GetTemplate(ctx, workflow.TemplateID)
	if err != nil {
		return domain.WorkflowChecklist{}, err
	}

	docs, err := s.documents.ListByTypes(ctx, ownerID, template.DocumentTypes())
	if err != nil {
		return domain.WorkflowChecklist{}, err
	}
	usable := make(map[domain.DocumentType]domain.Document, len(docs))
	for _, doc := range docs {
		if doc.Status == domain.StatusExpired || doc.Status == domain.StatusProcessing {
			continue
		}
		if _, ok := usable[doc.Metadata.DocumentType]; !ok {
			usable[doc.Metadata.DocumentType] = doc
		}
	}

	checklist := domain.WorkflowChecklist{WorkflowID: workflow.ID, TemplateID: template.ID, Ready: true}
	addItems := func(types []domain.DocumentType, required bool) {
		for _, docType := range types {
			item := domain.ChecklistItem{DocumentType: docType, Required: required}
			if doc, ok := usable[docType]; ok {
				documentID, status := doc.ID, doc.Status
				item.Available = true
				item.DocumentID = &documentID
				item.Status = &status
			} else if required {
				checklist.Ready = false
			}
			checklist.Items = append(checklist.Items, item)
		}
	}
	addItems(template.RequiredDocuments, true)
	addItems(template.OptionalDocuments, false)
	return checklist, nil
}

func (s *WorkflowService) notifyStatusChange(ctx context.Context, workflow *domain.WorkflowInstance) {
	workflowID := workflow.ID
	s.notifier.Notify(ctx, domain.Notification{
		OwnerID:    workflow.OwnerID,
		Type:       domain.NotificationWorkflowStatusChange,
		Title:      "Workflow updated",
		Message:    fmt.Sprintf("%s is now %s.", workflow.TemplateName, workflow.Status),
		WorkflowID: &workflowID,
	})
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

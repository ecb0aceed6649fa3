package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type shareRepoFake struct {
	shares []*domain.DocumentShare
}

func (f *shareRepoFake) Create(_ context.Context, share *domain.DocumentShare) error {
	f.shares = append(f.shares, share)
	return nil
}

func (f *shareRepoFake) ListForDocument(context.Context, string, string) ([]domain.DocumentShare, error) {
	return nil, nil
}

func (f *shareRepoFake) Revoke(context.Context, string, string) error { return nil }

func (f *shareRepoFake) Resolve(_ context.Context, token string, now time.Time) (*domain.SharedDocumentView, error) {
	for _, share := range f.shares {
		if share.Token == token && share.ExpiresAt.After(now) {
			return &domain.SharedDocumentView{ExpiresAt: share.ExpiresAt}, nil
		}
	}
	return nil, domain.WrapError(domain.ErrShareNotFound, "resolve share", errors.New("missing"))
}

type workflowRepoFake struct {
	workflows map[string]domain.WorkflowInstance
}

func (f *workflowRepoFake) Create(_ context.Context, workflow *domain.WorkflowInstance) error {
	f.workflows[workflow.ID] = *workflow
	return nil
}

func (f *workflowRepoFake) GetByID(_ context.Context, ownerID, id string) (*domain.WorkflowInstance, error) {
	workflow, ok := f.workflows[id]
	if !ok || workflow.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrWorkflowNotFound, "get workflow", errors.New(id))
	}
	return &workflow, nil
}

func (f *workflowRepoFake) List(context.Context, string) ([]domain.WorkflowInstance, error) {
	return nil, nil
}

func (f *workflowRepoFake) Save(_ context.Context, workflow *domain.WorkflowInstance) error {
	f.workflows[workflow.ID] = *workflow
	return nil
}

type catalogFake struct {
	templates []domain.WorkflowTemplate
}

func (f catalogFake) Templates() []domain.WorkflowTemplate { return f.templates }

func (f catalogFake) Template(id string) (domain.WorkflowTemplate, bool) {
	for _, t := range f.templates {
		if t.ID == id {
			return t, true
		}
	}
	return domain.WorkflowTemplate{}, false
}

type notificationRepoFake struct {
	created []domain.Notification
	err     error
}

func (f *notificationRepoFake) Create(_ context.Context, n *domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *notificationRepoFake) List(context.Context, string, int) ([]domain.Notification, error) {
	return f.created, nil
}

func (f *notificationRepoFake) MarkRead(context.Context, string, string) error { return nil }

func (f *notificationRepoFake) MarkAllRead(context.Context, string) (int64, error) { return 0, nil }

func TestFolderServiceCreate(t *testing.T) {
	repo := newFolderRepoFake(domain.Folder{ID: "parent", OwnerID: "user-2"})
	svc := NewFolderService(repo, newStubClock(testNow))
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "   ", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	parent := "parent"
	if _, err := svc.Create(ctx, "user-1", "Tax", &parent); !domain.IsKind(err, domain.ErrFolderNotFound) {
		t.Fatalf("expected parent not found, got %v", err)
	}
	empty := ""
	folder, err := svc.Create(ctx, "user-1", "  Tax  ", &empty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if folder.Name != "Tax" || folder.ParentID != nil || !folder.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected folder: %+v", folder)
	}
}

func TestShareServiceCreateAndResolve(t *testing.T) {
	h := newSweepHarness()
	doc := h.upload(t, "user-1")
	shares := &shareRepoFake{}
	svc := NewShareService(shares, h.repo, h.clock, "https://app.docudex.in/")
	ctx := context.Background()

	link, err := svc.Create(ctx, domain.ShareInput{OwnerID: "user-1", DocumentID: doc.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(link.Token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(link.Token))
	}
	if link.ShareURL != "https://app.docudex.in/share/"+link.Token {
		t.Fatalf("unexpected share url %q", link.ShareURL)
	}
	if want := testNow.Add(72 * time.Hour); !link.ExpiresAt.Equal(want) {
		t.Fatalf("expected default 72h expiry, got %s", link.ExpiresAt)
	}

	if _, err := svc.Resolve(ctx, link.Token); err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	h.clock.Advance(73 * time.Hour)
	if _, err := svc.Resolve(ctx, link.Token); !domain.IsKind(err, domain.ErrShareNotFound) {
		t.Fatalf("expected expired share to be not found, got %v", err)
	}
	if _, err := svc.Resolve(ctx, "short"); !domain.IsKind(err, domain.ErrShareNotFound) {
		t.Fatalf("expected malformed token to be not found, got %v", err)
	}
}

func TestShareServiceValidation(t *testing.T) {
	h := newSweepHarness()
	doc := h.upload(t, "user-1")
	svc := NewShareService(&shareRepoFake{}, h.repo, h.clock, "")
	ctx := context.Background()

	badEmail := "not-an-email"
	cases := []domain.ShareInput{
		{OwnerID: "user-1", DocumentID: doc.ID, ExpiresInHours: 721},
		{OwnerID: "user-1", DocumentID: doc.ID, ExpiresInHours: -1},
		{OwnerID: "user-1", DocumentID: doc.ID, RecipientEmail: &badEmail},
	}
	for _, input := range cases {
		if _, err := svc.Create(ctx, input); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", input, err)
		}
	}
	if _, err := svc.Create(ctx, domain.ShareInput{OwnerID: "user-2", DocumentID: doc.ID}); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found for another owner, got %v", err)
	}
}

func TestNotificationServiceNotifyFillsDefaults(t *testing.T) {
	repo := &notificationRepoFake{}
	svc := NewNotificationService(repo, newStubClock(testNow), nil)

	svc.Notify(context.Background(), domain.Notification{OwnerID: "user-1", Type: domain.NotificationSystem, Title: "hi"})
	svc.Notify(context.Background(), domain.Notification{Type: domain.NotificationSystem})
	if len(repo.created) != 1 {
		t.Fatalf("expected ownerless notification to be dropped, got %d", len(repo.created))
	}
	if repo.created[0].ID == "" || !repo.created[0].CreatedAt.Equal(testNow) {
		t.Fatalf("expected id and timestamp to be filled, got %+v", repo.created[0])
	}

	repo.err = errors.New("db down")
	svc.Notify(context.Background(), domain.Notification{OwnerID: "user-1"})
}

func homeLoanCatalog() catalogFake {
	return catalogFake{templates: []domain.WorkflowTemplate{{
		ID:                "home-loan",
		Name:              "Home Loan Application",
		RequiredDocuments: []domain.DocumentType{domain.TypePANCard, domain.TypeSalarySlip},
		OptionalDocuments: []domain.DocumentType{domain.TypeITR},
	}}}
}

func TestWorkflowServiceLifecycle(t *testing.T) {
	h := newSweepHarness()
	doc := h.upload(t, "user-1")
	other := h.upload(t, "user-2")
	repo := &workflowRepoFake{workflows: make(map[string]domain.WorkflowInstance)}
	svc := NewWorkflowService(repo, homeLoanCatalog(), h.repo, h.notifier, h.clock)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "user-1", "visa"); !domain.IsKind(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
	workflow, err := svc.Start(ctx, "user-1", "home-loan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.Status != domain.WorkflowDraft || workflow.TotalSteps != 2 {
		t.Fatalf("unexpected workflow: %+v", workflow)
	}

	foreign := []string{doc.ID, other.ID}
	if _, err := svc.Update(ctx, "user-1", workflow.ID, domain.WorkflowPatch{DocumentIDs: &foreign}); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found for foreign document, got %v", err)
	}
	step := 3
	if _, err := svc.Update(ctx, "user-1", workflow.ID, domain.WorkflowPatch{CurrentStep: &step}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid step, got %v", err)
	}

	submitted := domain.WorkflowSubmitted
	ids := []string{doc.ID, doc.ID}
	updated, err := svc.Update(ctx, "user-1", workflow.ID, domain.WorkflowPatch{Status: &submitted, DocumentIDs: &ids})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.SubmittedAt == nil || len(updated.DocumentIDs) != 1 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	notes := h.notifier.ofType(domain.NotificationWorkflowStatusChange)
	if len(notes) != 1 || !strings.Contains(notes[0].Message, "SUBMITTED") {
		t.Fatalf("expected one status change notification, got %+v", notes)
	}

	if _, err := svc.Get(ctx, "user-2", workflow.ID); !domain.IsKind(err, domain.ErrWorkflowNotFound) {
		t.Fatalf("expected not found for another owner, got %v", err)
	}
}

func TestWorkflowChecklist(t *testing.T) {
	h := newSweepHarness()
	today := domain.DateOf(testNow)
	expired := today.AddDays(-3)
	seedClassified(t, h, "pan", domain.TypePANCard, domain.StatusCurrent, nil)
	seedClassified(t, h, "slip", domain.TypeSalarySlip, domain.StatusExpired, &expired)
	repo := &workflowRepoFake{workflows: make(map[string]domain.WorkflowInstance)}
	svc := NewWorkflowService(repo, homeLoanCatalog(), h.repo, nil, h.clock)
	ctx := context.Background()

	workflow, err := svc.Start(ctx, "owner", "home-loan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checklist, err := svc.Checklist(ctx, "owner", workflow.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checklist.Ready {
		t.Fatalf("expected checklist not ready with an expired salary slip")
	}
	if len(checklist.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(checklist.Items))
	}
	pan, slip, itr := checklist.Items[0], checklist.Items[1], checklist.Items[2]
	if !pan.Available || pan.DocumentID == nil || *pan.DocumentID != "pan" || !pan.Required {
		t.Fatalf("unexpected PAN item: %+v", pan)
	}
	if slip.Available {
		t.Fatalf("expired document must not satisfy the checklist")
	}
	if itr.Required || itr.Available {
		t.Fatalf("unexpected ITR item: %+v", itr)
	}
}

func seedClassified(t *testing.T, h *sweepHarness, id string, docType domain.DocumentType, status domain.DocumentStatus, expiry *domain.Date) {
	t.Helper()
	err := h.repo.Create(context.Background(), &domain.Document{
		ID:        id,
		OwnerID:   "owner",
		Status:    status,
		Metadata:  domain.DocumentMetadata{DocumentType: docType, ExpiryDate: expiry},
		CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type verifierFake struct{}

// Verify accepts "owner:<id>" and "admin:<id>" tokens.
func (verifierFake) Verify(_ context.Context, token string) (domain.Principal, error) {
	role, owner, ok := strings.Cut(token, ":")
	if !ok || owner == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify", errors.New("bad token"))
	}
	if role == "admin" {
		return domain.Principal{OwnerID: owner, Role: "admin"}, nil
	}
	return domain.Principal{OwnerID: owner, Role: "user"}, nil
}

type ingestFake struct {
	err    error
	inputs []domain.UploadInput
	bodies []string
}

func (f *ingestFake) Upload(_ context.Context, input domain.UploadInput) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, input)
	f.bodies = append(f.bodies, string(raw))
	now := time.Now().UTC()
	return &domain.Document{
		ID:           "doc-1",
		OwnerID:      input.OwnerID,
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
		FileSize:     int64(len(raw)),
		Status:       domain.StatusProcessing,
		Metadata:     domain.DocumentMetadata{Tags: input.Tags, ExtractedFields: map[string]string{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (f *ingestFake) UploadBulk(ctx context.Context, inputs []domain.UploadInput) ([]domain.BulkUploadResult, error) {
	out := make([]domain.BulkUploadResult, 0, len(inputs))
	for _, input := range inputs {
		doc, err := f.Upload(ctx, input)
		if err != nil {
			out = append(out, domain.BulkUploadResult{OriginalName: input.OriginalName, Error: err.Error()})
			continue
		}
		out = append(out, domain.BulkUploadResult{OriginalName: input.OriginalName, Document: doc})
	}
	return out, nil
}

type documentsFake struct {
	docs      map[string]domain.Document
	lastPatch domain.DocumentPatch
	filter    domain.DocumentFilter
	err       error
}

func (f *documentsFake) owned(ownerID, id string) (domain.Document, error) {
	if f.err != nil {
		return domain.Document{}, f.err
	}
	doc, ok := f.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.Document{}, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id="+id))
	}
	return doc, nil
}

func (f *documentsFake) Get(_ context.Context, ownerID, id string) (*domain.Document, error) {
	doc, err := f.owned(ownerID, id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *documentsFake) List(_ context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error) {
	f.filter = filter
	page := domain.DocumentPage{Documents: []domain.Document{}, Page: 1, Limit: domain.DefaultPageLimit}
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID {
			page.Documents = append(page.Documents, doc)
		}
	}
	page.Total = len(page.Documents)
	return page, nil
}

func (f *documentsFake) Update(_ context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	doc, err := f.owned(ownerID, id)
	if err != nil {
		return nil, err
	}
	f.lastPatch = patch
	if patch.IsStarred != nil {
		doc.IsStarred = *patch.IsStarred
	}
	return &doc, nil
}

func (f *documentsFake) Delete(_ context.Context, ownerID, id string) error {
	if _, err := f.owned(ownerID, id); err != nil {
		return err
	}
	delete(f.docs, id)
	return nil
}

func (f *documentsFake) Open(_ context.Context, ownerID, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := f.owned(ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	return &doc, io.NopCloser(strings.NewReader("%PDF-1.7")), nil
}

func (f *documentsFake) Stats(context.Context, string) (domain.DocumentStats, error) {
	if f.err != nil {
		return domain.DocumentStats{}, f.err
	}
	return domain.DocumentStats{Total: 3, Current: 1, ExpiringSoon: 1, Expired: 1}, nil
}

type sharesFake struct {
	input domain.ShareInput
}

func (f *sharesFake) Create(_ context.Context, input domain.ShareInput) (*domain.ShareLink, error) {
	f.input = input
	return &domain.ShareLink{Token: "tok", ShareURL: "http://localhost/share/tok"}, nil
}

func (f *sharesFake) ListForDocument(context.Context, string, string) ([]domain.DocumentShare, error) {
	return []domain.DocumentShare{}, nil
}

func (f *sharesFake) Revoke(context.Context, string, string) error { return nil }

func (f *sharesFake) Resolve(_ context.Context, token string) (*domain.SharedDocumentView, error) {
	if token != "good" {
		return nil, domain.WrapError(domain.ErrShareNotFound, "resolve share", errors.New("unknown token"))
	}
	return &domain.SharedDocumentView{DocumentName: "pan.pdf", Status: domain.StatusCurrent, DocumentType: domain.TypeOther}, nil
}

type workflowsFake struct {
	checklistFor string
	template     string
}

func (f *workflowsFake) ListTemplates(context.Context) []domain.WorkflowTemplate {
	return []domain.WorkflowTemplate{{ID: "passport-renewal"}}
}

func (f *workflowsFake) GetTemplate(_ context.Context, id string) (domain.WorkflowTemplate, error) {
	f.template = id
	if id != "passport-renewal" {
		return domain.WorkflowTemplate{}, domain.WrapError(domain.ErrTemplateNotFound, "get template", errors.New(id))
	}
	return domain.WorkflowTemplate{ID: id}, nil
}

func (f *workflowsFake) List(context.Context, string) ([]domain.WorkflowInstance, error) {
	return []domain.WorkflowInstance{}, nil
}

func (f *workflowsFake) Start(_ context.Context, ownerID, templateID string) (*domain.WorkflowInstance, error) {
	return &domain.WorkflowInstance{ID: "wf-1", OwnerID: ownerID, TemplateID: templateID, Status: domain.WorkflowDraft}, nil
}

func (f *workflowsFake) Get(_ context.Context, ownerID, id string) (*domain.WorkflowInstance, error) {
	return &domain.WorkflowInstance{ID: id, OwnerID: ownerID}, nil
}

func (f *workflowsFake) Update(_ context.Context, ownerID, id string, patch domain.WorkflowPatch) (*domain.WorkflowInstance, error) {
	return &domain.WorkflowInstance{ID: id, OwnerID: ownerID}, nil
}

func (f *workflowsFake) Checklist(_ context.Context, _ string, id string) (domain.WorkflowChecklist, error) {
	f.checklistFor = id
	return domain.WorkflowChecklist{}, nil
}

type sweeperFake struct {
	runs int
}

func (f *sweeperFake) Run(context.Context) (domain.SweepResult, error) {
	f.runs++
	return domain.SweepResult{Expired: []domain.StatusChange{{DocumentID: "doc-1", Status: domain.StatusExpired}}}, nil
}

type classifierFake struct {
	keys []string
	err  error
}

func (f *classifierFake) Classify(_ context.Context, storageKey string) (domain.ClassificationResult, error) {
	f.keys = append(f.keys, storageKey)
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	return domain.ClassificationResult{
		Classification:   domain.Classification{DocumentType: "PAN_CARD", Category: "IDENTITY", Confidence: 0.93},
		ProcessingStatus: domain.ProcessingSuccess,
	}, nil
}

type testRouter struct {
	handler    http.Handler
	ingest     *ingestFake
	documents  *documentsFake
	shares     *sharesFake
	workflows  *workflowsFake
	sweeper    *sweeperFake
	classifier *classifierFake
}

func newTestRouter(options Options) *testRouter {
	tr := &testRouter{
		ingest: &ingestFake{},
		documents: &documentsFake{docs: map[string]domain.Document{
			"doc-1": {ID: "doc-1", OwnerID: "user-1", OriginalName: "pan card.pdf", MimeType: "application/pdf", StorageKey: "doc-1.pdf", Status: domain.StatusCurrent},
		}},
		shares:     &sharesFake{},
		workflows:  &workflowsFake{},
		sweeper:    &sweeperFake{},
		classifier: &classifierFake{},
	}
	tr.handler = NewRouter(Services{
		Ingest:     tr.ingest,
		Documents:  tr.documents,
		Shares:     tr.shares,
		Workflows:  tr.workflows,
		Sweeper:    tr.sweeper,
		Classifier: tr.classifier,
	}, verifierFake{}, options).Handler()
	return tr
}

func authorize(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

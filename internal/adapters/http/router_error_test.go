package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docudex/docudex-api/internal/core/domain"
)

func TestGetDocumentOfAnotherOwnerReturns404(t *testing.T) {
	tr := newTestRouter(Options{})

	for _, path := range []string{"/api/v1/documents/doc-1", "/api/v1/documents/missing"} {
		req := authorize(httptest.NewRequest(http.MethodGet, path, nil), "owner:user-2")
		res := httptest.NewRecorder()
		tr.handler.ServeHTTP(res, req)

		if res.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, res.Code)
		}
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrUnauthorized, "op", errors.New("x")), http.StatusUnauthorized},
		{domain.WrapError(domain.ErrFolderNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrShareNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	tr := newTestRouter(Options{})
	tr.documents.err = errors.New("pq: connection refused to 10.0.0.5")

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/documents/stats", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "10.0.0.5") {
		t.Fatalf("internal error leaked: %s", res.Body.String())
	}
}

func TestListDocumentsRejectsUnknownStatus(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=ARCHIVED", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListDocumentsParsesFilter(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/documents?q=pan&status=expiring_soon&isStarred=true&page=2&limit=5&documentType=pan_card", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	f := tr.documents.filter
	if f.Query != "pan" || f.Status != domain.StatusExpiringSoon || f.Page != 2 || f.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if f.IsStarred == nil || !*f.IsStarred || f.DocumentType != domain.DocumentType("PAN_CARD") {
		t.Fatalf("unexpected filter flags: %+v", f)
	}
}

func TestUpdateDocumentRequiresJSONBody(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodPatch, "/api/v1/documents/doc-1", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUpdateDocumentUppercasesVocabulary(t *testing.T) {
	tr := newTestRouter(Options{})
	payload, _ := json.Marshal(map[string]any{"isStarred": true, "category": "identity"})

	req := authorize(httptest.NewRequest(http.MethodPatch, "/api/v1/documents/doc-1", bytes.NewReader(payload)), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if tr.documents.lastPatch.Category == nil || *tr.documents.lastPatch.Category != domain.DocumentCategory("IDENTITY") {
		t.Fatalf("unexpected patch: %+v", tr.documents.lastPatch)
	}
}

func TestDownloadSetsAttachmentHeaders(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="pan card.pdf"` {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if res.Body.String() != "%PDF-1.7" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestResolveShareIsPublic(t *testing.T) {
	tr := newTestRouter(Options{})

	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/share/good", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/share/expired", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown share, got %d", res.Code)
	}
}

func TestCreateShareAcceptsEmptyBody(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/share", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if tr.shares.input.DocumentID != "doc-1" || tr.shares.input.OwnerID != "user-1" || tr.shares.input.ExpiresInHours != 0 {
		t.Fatalf("unexpected share input: %+v", tr.shares.input)
	}
}

func TestWorkflowSubresourceRouting(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/workflows/templates/passport-renewal", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || tr.workflows.template != "passport-renewal" {
		t.Fatalf("expected template lookup, got %d (%q)", res.Code, tr.workflows.template)
	}

	req = authorize(httptest.NewRequest(http.MethodGet, "/api/v1/workflows/wf-9/checklist", nil), "owner:user-1")
	res = httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || tr.workflows.checklistFor != "wf-9" {
		t.Fatalf("expected checklist lookup, got %d (%q)", res.Code, tr.workflows.checklistFor)
	}

	req = authorize(httptest.NewRequest(http.MethodGet, "/api/v1/workflows/templates/unknown", nil), "owner:user-1")
	res = httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", res.Code)
	}
}

func TestAdminSweepRequiresAdminRole(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden || tr.sweeper.runs != 0 {
		t.Fatalf("expected 403 without running sweep, got %d runs=%d", res.Code, tr.sweeper.runs)
	}

	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil), "admin:ops")
	res = httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || tr.sweeper.runs != 1 {
		t.Fatalf("expected sweep to run, got %d runs=%d", res.Code, tr.sweeper.runs)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["total"] != float64(1) {
		t.Fatalf("unexpected sweep response: %v", resp)
	}
}

func TestRecoveryMiddlewareReturns500(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestClassifyDocumentReturnsResultForOwner(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/classify", nil), "owner:user-1")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		DocumentID string `json:"documentId"`
		Result     struct {
			Classification struct {
				DocumentType string `json:"documentType"`
			} `json:"classification"`
		} `json:"result"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.DocumentID != "doc-1" || body.Result.Classification.DocumentType != "PAN_CARD" {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
	if len(tr.classifier.keys) != 1 || tr.classifier.keys[0] != "doc-1.pdf" {
		t.Fatalf("expected classification of the stored file, got %v", tr.classifier.keys)
	}
}

func TestClassifyDocumentHidesOtherOwnersAndMapsFailures(t *testing.T) {
	tr := newTestRouter(Options{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/classify", nil), "owner:user-2")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", res.Code)
	}
	if len(tr.classifier.keys) != 0 {
		t.Fatalf("classifier must not run for another owner's document")
	}

	tr.classifier.err = domain.WrapError(domain.ErrTemporary, "classify document", errors.New("connection refused"))
	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/classify", nil), "owner:user-1")
	res = httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "connection refused") {
		t.Fatalf("temporary failure leaked details: %s", res.Body.String())
	}
}

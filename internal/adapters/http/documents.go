package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type uploadMetadata struct {
	Tags []string `json:"tags"`
}

type documentPatchRequest struct {
	Tags         *[]string `json:"tags"`
	IsStarred    *bool     `json:"isStarred"`
	FolderID     *string   `json:"folderId"`
	DocumentType *string   `json:"documentType"`
	Category     *string   `json:"category"`
}

func (rt *Router) documentStats(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	stats, err := rt.services.Documents.Stats(r.Context(), principal.OwnerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	filter, err := parseDocumentFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	page, err := rt.services.Documents.List(r.Context(), principal.OwnerID, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseDocumentFilter(r *http.Request) (domain.DocumentFilter, error) {
	query := r.URL.Query()
	filter := domain.DocumentFilter{
		Query:    query.Get("q"),
		FolderID: strings.TrimSpace(query.Get("folderId")),
	}
	if raw := query.Get("category"); raw != "" {
		filter.Category = domain.DocumentCategory(strings.ToUpper(raw))
	}
	if raw := query.Get("documentType"); raw != "" {
		filter.DocumentType = domain.DocumentType(strings.ToUpper(raw))
	}
	if raw := query.Get("status"); raw != "" {
		status, ok := domain.ParseDocumentStatus(raw)
		if !ok {
			return domain.DocumentFilter{}, invalidQuery("status", raw)
		}
		filter.Status = status
	}
	switch query.Get("isStarred") {
	case "true":
		starred := true
		filter.IsStarred = &starred
	case "false":
		starred := false
		filter.IsStarred = &starred
	}
	for key, dst := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.DocumentFilter{}, invalidQuery(key, raw)
		}
		*dst = n
	}
	return filter, nil
}

func invalidQuery(key, value string) error {
	return domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("invalid %s %q", key, value))
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxFileSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with field 'file' is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	tags, err := parseUploadTags(r.MultipartForm.Value["metadata"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	file, err := headers[0].Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "uploaded file is unreadable")
		return
	}
	defer file.Close()

	doc, err := rt.services.Ingest.Upload(r.Context(), uploadInput(principal, headers[0], tags, file))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	rt.observeUpload(doc.FileSize)
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	limit := rt.options.MaxFileSize*int64(rt.options.MaxBulkFiles) + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with field 'files' is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}
	tags, err := parseUploadTags(r.MultipartForm.Value["metadata"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	inputs := make([]domain.UploadInput, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("uploaded file %q is unreadable", header.Filename))
			return
		}
		defer file.Close()
		inputs = append(inputs, uploadInput(principal, header, tags, file))
	}

	results, err := rt.services.Ingest.UploadBulk(r.Context(), inputs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	for _, result := range results {
		if result.Document != nil {
			rt.observeUpload(result.Document.FileSize)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"documents": results})
}

func uploadInput(principal domain.Principal, header *multipart.FileHeader, tags []string, body io.Reader) domain.UploadInput {
	mimeType := header.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	return domain.UploadInput{
		OwnerID:      principal.OwnerID,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         header.Size,
		Tags:         tags,
		Body:         body,
	}
}

func parseUploadTags(values []string) ([]string, error) {
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return nil, nil
	}
	var metadata uploadMetadata
	if err := json.Unmarshal([]byte(values[0]), &metadata); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload metadata", err)
	}
	return metadata.Tags, nil
}

func (rt *Router) observeUpload(size int64) {
	if rt.options.Metrics != nil {
		rt.options.Metrics.ObserveUpload(size)
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	doc, err := rt.services.Documents.Get(r.Context(), principal.OwnerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// classifyDocument re-runs classification for an owned document and returns the
// service's answer. The stored row is left as it is.
func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if rt.services.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classification is not configured")
		return
	}
	doc, err := rt.services.Documents.Get(r.Context(), principal.OwnerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	result, err := rt.services.Classifier.Classify(r.Context(), doc.StorageKey)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documentId": doc.ID,
		"result":     result,
	})
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req documentPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	patch := domain.DocumentPatch{
		Tags:      req.Tags,
		IsStarred: req.IsStarred,
		FolderID:  req.FolderID,
	}
	if req.DocumentType != nil {
		documentType := domain.DocumentType(strings.ToUpper(strings.TrimSpace(*req.DocumentType)))
		patch.DocumentType = &documentType
	}
	if req.Category != nil {
		category := domain.DocumentCategory(strings.ToUpper(strings.TrimSpace(*req.Category)))
		patch.Category = &category
	}

	doc, err := rt.services.Documents.Update(r.Context(), principal.OwnerID, r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if err := rt.services.Documents.Delete(r.Context(), principal.OwnerID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	doc, body, err := rt.services.Documents.Open(r.Context(), principal.OwnerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && !errors.Is(err, r.Context().Err()) {
		// Headers are already sent; the client sees a truncated body.
		writeAbort(r, doc.ID, err)
	}
}

// Package memory holds an in-process document repository with the same status
// semantics as the postgres one. It backs tests and single-node development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type DocumentRepository struct {
	mu    sync.Mutex
	docs  map[string]domain.Document
	clock domain.Clock
}

func NewDocumentRepository(clock domain.Clock) *DocumentRepository {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &DocumentRepository{docs: make(map[string]domain.Document), clock: clock}
}

func (r *DocumentRepository) Create(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[doc.ID]; exists {
		return fmt.Errorf("create document: duplicate id %s", doc.ID)
	}
	r.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, ownerID, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.owned(ownerID, id)
	if !ok {
		return nil, notFound("get document", id)
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (r *DocumentRepository) List(_ context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error) {
	filter = filter.Normalize()
	r.mu.Lock()
	matched := make([]domain.Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID && matchesFilter(doc, filter) {
			matched = append(matched, cloneDocument(doc))
		}
	}
	r.mu.Unlock()

	sortNewestFirst(matched)
	page := domain.DocumentPage{Documents: []domain.Document{}, Total: len(matched), Page: filter.Page, Limit: filter.Limit}
	start := filter.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Documents = matched[start:end]
	return page, nil
}

func (r *DocumentRepository) Update(_ context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.owned(ownerID, id)
	if !ok {
		return nil, notFound("update document", id)
	}
	if patch.Tags != nil {
		doc.Metadata.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.IsStarred != nil {
		doc.IsStarred = *patch.IsStarred
	}
	if patch.FolderID != nil {
		if *patch.FolderID == "" {
			doc.FolderID = nil
		} else {
			folderID := *patch.FolderID
			doc.FolderID = &folderID
		}
	}
	if patch.DocumentType != nil {
		doc.Metadata.DocumentType = *patch.DocumentType
	}
	if patch.Category != nil {
		doc.Metadata.Category = *patch.Category
	}
	doc.UpdatedAt = r.clock.Now()
	r.docs[id] = doc
	out := cloneDocument(doc)
	return &out, nil
}

func (r *DocumentRepository) Delete(_ context.Context, ownerID, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.owned(ownerID, id)
	if !ok {
		return "", notFound("delete document", id)
	}
	delete(r.docs, id)
	return doc.StorageKey, nil
}

func (r *DocumentRepository) Stats(_ context.Context, ownerID string) (domain.DocumentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.DocumentStats
	for _, doc := range r.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		stats.Total++
		switch doc.Status {
		case domain.StatusCurrent:
			stats.Current++
		case domain.StatusExpiringSoon:
			stats.ExpiringSoon++
		case domain.StatusExpired:
			stats.Expired++
		case domain.StatusProcessing:
			stats.Processing++
		}
	}
	return stats, nil
}

func (r *DocumentRepository) CountOwned(_ context.Context, ownerID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, ok := r.owned(ownerID, id); ok {
			count++
		}
	}
	return count, nil
}

func (r *DocumentRepository) ListByTypes(_ context.Context, ownerID string, types []domain.DocumentType) ([]domain.Document, error) {
	wanted := make(map[domain.DocumentType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	r.mu.Lock()
	out := make([]domain.Document, 0)
	for _, doc := range r.docs {
		if _, ok := wanted[doc.Metadata.DocumentType]; ok && doc.OwnerID == ownerID {
			out = append(out, cloneDocument(doc))
		}
	}
	r.mu.Unlock()
	sortNewestFirst(out)
	return out, nil
}

// ApplyClassification only touches rows that are still PROCESSING, so a redelivered
// task cannot overwrite a status the sweep has since assigned.
func (r *DocumentRepository) ApplyClassification(_ context.Context, id string, update domain.ClassificationUpdate) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != domain.StatusProcessing {
		return nil, notFound("apply classification", id)
	}

	doc.Status = update.Status
	meta := &doc.Metadata
	if update.DocumentType != nil {
		meta.DocumentType = *update.DocumentType
	}
	if update.Category != nil {
		meta.Category = *update.Category
	}
	if update.Confidence != nil {
		confidence := *update.Confidence
		meta.ClassificationConfidence = &confidence
	}
	if update.ExtractedFields != nil {
		meta.ExtractedFields = cloneFields(update.ExtractedFields)
	}
	if update.HolderName != nil {
		meta.HolderName = *update.HolderName
	}
	if update.DocumentNumber != nil {
		meta.DocumentNumber = *update.DocumentNumber
	}
	if update.IssuingAuthority != nil {
		meta.IssuingAuthority = *update.IssuingAuthority
	}
	if update.IssueDate != nil {
		issue := *update.IssueDate
		meta.IssueDate = &issue
	}
	if update.ExpiryDate != nil {
		expiry := *update.ExpiryDate
		meta.ExpiryDate = &expiry
	}
	doc.UpdatedAt = r.clock.Now()
	r.docs[id] = doc
	out := cloneDocument(doc)
	return &out, nil
}

// SweepStatuses evaluates all three rules under one lock, which gives the same
// all-or-nothing visibility as the postgres transaction.
func (r *DocumentRepository) SweepStatuses(_ context.Context, window domain.SweepWindow) (domain.SweepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var result domain.SweepResult
	for _, id := range r.sortedIDs() {
		doc := r.docs[id]
		target, ok := window.SweepStatus(doc)
		if !ok || target == doc.Status {
			continue
		}
		doc.Status = target
		doc.UpdatedAt = now
		r.docs[id] = doc

		change := domain.StatusChange{
			DocumentID:   doc.ID,
			OwnerID:      doc.OwnerID,
			OriginalName: doc.OriginalName,
			ExpiryDate:   *doc.Metadata.ExpiryDate,
			Status:       target,
		}
		switch target {
		case domain.StatusExpired:
			result.Expired = append(result.Expired, change)
		case domain.StatusExpiringSoon:
			result.ExpiringSoon = append(result.ExpiringSoon, change)
		case domain.StatusCurrent:
			result.Current = append(result.Current, change)
		}
	}
	return result, nil
}

func (r *DocumentRepository) ListStaleProcessing(_ context.Context, createdBefore time.Time, limit int) ([]domain.Document, error) {
	r.mu.Lock()
	out := make([]domain.Document, 0)
	for _, doc := range r.docs {
		if doc.Status == domain.StatusProcessing && doc.CreatedAt.Before(createdBefore) {
			out = append(out, cloneDocument(doc))
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DocumentRepository) owned(ownerID, id string) (domain.Document, bool) {
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.Document{}, false
	}
	return doc, true
}

func (r *DocumentRepository) sortedIDs() []string {
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func matchesFilter(doc domain.Document, filter domain.DocumentFilter) bool {
	if filter.Category != "" && doc.Metadata.Category != filter.Category {
		return false
	}
	if filter.DocumentType != "" && doc.Metadata.DocumentType != filter.DocumentType {
		return false
	}
	if filter.Status != "" && doc.Status != filter.Status {
		return false
	}
	if filter.IsStarred != nil && doc.IsStarred != *filter.IsStarred {
		return false
	}
	if filter.FolderID != "" && (doc.FolderID == nil || *doc.FolderID != filter.FolderID) {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(doc.OriginalName), q) &&
			!strings.Contains(strings.ToLower(doc.Metadata.HolderName), q) &&
			!strings.Contains(strings.ToLower(doc.Metadata.DocumentNumber), q) {
			return false
		}
	}
	return true
}

func sortNewestFirst(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

func cloneDocument(doc domain.Document) domain.Document {
	out := doc
	out.Metadata.Tags = append([]string(nil), doc.Metadata.Tags...)
	out.Metadata.ExtractedFields = cloneFields(doc.Metadata.ExtractedFields)
	if doc.FolderID != nil {
		folderID := *doc.FolderID
		out.FolderID = &folderID
	}
	if doc.Metadata.IssueDate != nil {
		issue := *doc.Metadata.IssueDate
		out.Metadata.IssueDate = &issue
	}
	if doc.Metadata.ExpiryDate != nil {
		expiry := *doc.Metadata.ExpiryDate
		out.Metadata.ExpiryDate = &expiry
	}
	if doc.Metadata.ClassificationConfidence != nil {
		confidence := *doc.Metadata.ClassificationConfidence
		out.Metadata.ClassificationConfidence = &confidence
	}
	out.ApplyReadDefaults()
	return out
}

func cloneFields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/infrastructure/repository/memory"
)

type applyFailRepo struct {
	*memory.DocumentRepository
	failures int
	updates  []domain.ClassificationUpdate
}

func (r *applyFailRepo) ApplyClassification(ctx context.Context, id string, update domain.ClassificationUpdate) (*domain.Document, error) {
	r.updates = append(r.updates, update)
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("connection reset")
	}
	return r.DocumentRepository.ApplyClassification(ctx, id, update)
}

func seedProcessing(t *testing.T, repo *memory.DocumentRepository, id string) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.Document{
		ID:           id,
		OwnerID:      "user-1",
		OriginalName: id + ".pdf",
		StorageKey:   id + ".pdf",
		Status:       domain.StatusProcessing,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func panResult() domain.ClassificationResult {
	return domain.ClassificationResult{
		Classification: domain.Classification{DocumentType: "PAN_CARD", Category: "IDENTITY", Confidence: 0.92},
		Extraction: domain.Extraction{Fields: map[string]domain.ExtractedField{
			"holderName": {Value: "Asha Rao", Confidence: 0.9},
			"panNumber":  {Value: "ABCDE1234F", Confidence: 0.9},
		}},
		ProcessingStatus: domain.ProcessingSuccess,
	}
}

func TestApplySuccessWritesClassification(t *testing.T) {
	repo := memory.NewDocumentRepository(nil)
	seedProcessing(t, repo, "doc-1")
	classifier := &classifierFake{result: panResult()}
	notifier := &notifierFake{}
	uc := NewClassificationUseCase(repo, newStorageFake(), classifier, notifier, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})

	outcome := uc.Apply(context.Background(), domain.ClassificationTask{DocumentID: "doc-1", StorageKey: "doc-1.pdf", EnqueuedAt: testNow})
	if outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", outcome.Kind, outcome.Err)
	}
	if len(classifier.calls) != 1 || classifier.calls[0] != "doc-1@/uploads/doc-1.pdf" {
		t.Fatalf("unexpected classifier calls: %v", classifier.calls)
	}

	doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
	if doc.Status != domain.StatusCurrent {
		t.Fatalf("expected CURRENT, got %s", doc.Status)
	}
	if doc.Metadata.DocumentType != domain.TypePANCard || doc.Metadata.Category != domain.CategoryIdentity {
		t.Fatalf("unexpected classification: %+v", doc.Metadata)
	}
	if doc.Metadata.ClassificationConfidence == nil || *doc.Metadata.ClassificationConfidence != 0.92 {
		t.Fatalf("unexpected confidence: %v", doc.Metadata.ClassificationConfidence)
	}
	if doc.Metadata.HolderName != "Asha Rao" || doc.Metadata.DocumentNumber != "ABCDE1234F" {
		t.Fatalf("unexpected projected fields: %+v", doc.Metadata)
	}
	if got := notifier.ofType(domain.NotificationDocumentProcessed); len(got) != 1 || got[0].OwnerID != "user-1" {
		t.Fatalf("expected one processed notification, got %+v", got)
	}
}

func TestApplyServiceFailureFallsBack(t *testing.T) {
	cases := []struct {
		name       string
		classifier *classifierFake
	}{
		{name: "timeout", classifier: &classifierFake{err: context.DeadlineExceeded}},
		{name: "reported failure", classifier: &classifierFake{result: domain.ClassificationResult{ProcessingStatus: domain.ProcessingFailed}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewDocumentRepository(nil)
			seedProcessing(t, repo, "doc-1")
			uc := NewClassificationUseCase(repo, newStorageFake(), tc.classifier, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})

			outcome := uc.Apply(context.Background(), domain.ClassificationTask{DocumentID: "doc-1", StorageKey: "doc-1.pdf"})
			if outcome.Kind != domain.OutcomeServiceFailure {
				t.Fatalf("expected service failure, got %s", outcome.Kind)
			}
			doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
			if doc.Status != domain.StatusCurrent {
				t.Fatalf("expected CURRENT, got %s", doc.Status)
			}
			if doc.Metadata.DocumentType != domain.TypeOther || doc.Metadata.ClassificationConfidence != nil {
				t.Fatalf("expected OTHER with no confidence, got %+v", doc.Metadata)
			}
		})
	}
}

func TestApplyClassifierPanicIsInternalError(t *testing.T) {
	repo := memory.NewDocumentRepository(nil)
	seedProcessing(t, repo, "doc-1")
	uc := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{panicWith: "nil map"}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})

	outcome := uc.Apply(context.Background(), domain.ClassificationTask{DocumentID: "doc-1"})
	if outcome.Kind != domain.OutcomeInternalError {
		t.Fatalf("expected internal error, got %s", outcome.Kind)
	}
	doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
	if doc.Status != domain.StatusCurrent {
		t.Fatalf("expected CURRENT, got %s", doc.Status)
	}
}

func TestApplyWriteFailureRetriesWithStatusOnly(t *testing.T) {
	repo := &applyFailRepo{DocumentRepository: memory.NewDocumentRepository(nil), failures: 1}
	seedProcessing(t, repo.DocumentRepository, "doc-1")
	uc := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{result: panResult()}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})

	outcome := uc.Apply(context.Background(), domain.ClassificationTask{DocumentID: "doc-1"})
	if outcome.Kind != domain.OutcomeInternalError {
		t.Fatalf("expected internal error, got %s", outcome.Kind)
	}
	if len(repo.updates) != 2 {
		t.Fatalf("expected two writes, got %d", len(repo.updates))
	}
	if second := repo.updates[1]; second.Status != domain.StatusCurrent || second.DocumentType != nil {
		t.Fatalf("expected status-only second write, got %+v", second)
	}
	doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
	if doc.Status != domain.StatusCurrent {
		t.Fatalf("expected CURRENT, got %s", doc.Status)
	}
}

func TestApplyBothWritesFailingDoesNotPanic(t *testing.T) {
	repo := &applyFailRepo{DocumentRepository: memory.NewDocumentRepository(nil), failures: 2}
	seedProcessing(t, repo.DocumentRepository, "doc-1")
	uc := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{result: panResult()}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})

	outcome := uc.Apply(context.Background(), domain.ClassificationTask{DocumentID: "doc-1"})
	if outcome.Kind != domain.OutcomeInternalError || outcome.Err == nil {
		t.Fatalf("expected internal error outcome, got %+v", outcome)
	}
}

func TestApplyRedeliveryDoesNotReapply(t *testing.T) {
	repo := memory.NewDocumentRepository(nil)
	seedProcessing(t, repo, "doc-1")
	uc := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{result: panResult()}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})
	task := domain.ClassificationTask{DocumentID: "doc-1"}
	uc.Apply(context.Background(), task)

	uc2 := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{err: errors.New("down")}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{})
	uc2.Apply(context.Background(), task)

	doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
	if doc.Metadata.DocumentType != domain.TypePANCard {
		t.Fatalf("expected first classification to stick, got %s", doc.Metadata.DocumentType)
	}
}

func TestApplyCancelledContextStillWrites(t *testing.T) {
	repo := memory.NewDocumentRepository(nil)
	seedProcessing(t, repo, "doc-1")
	uc := NewClassificationUseCase(repo, newStorageFake(), &classifierFake{err: context.Canceled}, nil, nil, newStubClock(testNow), nil, domain.ClassificationLimits{ProcessTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uc.Apply(ctx, domain.ClassificationTask{DocumentID: "doc-1"})

	doc, _ := repo.GetByID(context.Background(), "user-1", "doc-1")
	if doc.Status != domain.StatusCurrent {
		t.Fatalf("expected CURRENT despite cancelled context, got %s", doc.Status)
	}
}

func TestClassifyAdHocWrapsTemporary(t *testing.T) {
	uc := NewClassificationUseCase(memory.NewDocumentRepository(nil), newStorageFake(), &classifierFake{err: errors.New("503")}, nil, nil, nil, nil, domain.ClassificationLimits{})
	if _, err := uc.Classify(context.Background(), "x.pdf"); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

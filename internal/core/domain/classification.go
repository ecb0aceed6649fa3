package domain

import (
	"strings"
	"time"
)

type ProcessingStatus string

const (
	ProcessingSuccess ProcessingStatus = "success"
	ProcessingPartial ProcessingStatus = "partial"
	ProcessingFailed  ProcessingStatus = "failed"
)

type Classification struct {
	DocumentType string  `json:"documentType"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
}

type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type Extraction struct {
	Fields         map[string]ExtractedField `json:"fields"`
	ProcessingTime float64                   `json:"processingTime"`
}

// ClassificationResult is the classification service's response body.
type ClassificationResult struct {
	Classification   Classification   `json:"classification"`
	Extraction       Extraction       `json:"extraction"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
}

// ClassificationTask is the unit of work handed from ingestion to the classification worker.
type ClassificationTask struct {
	DocumentID string    `json:"documentId"`
	StorageKey string    `json:"storageKey"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// ClassificationUpdate is the single row write that moves a document out of PROCESSING.
// Nil fields are left untouched.
type ClassificationUpdate struct {
	Status           DocumentStatus
	DocumentType     *DocumentType
	Category         *DocumentCategory
	Confidence       *float64
	ExtractedFields  map[string]string
	HolderName       *string
	DocumentNumber   *string
	IssuingAuthority *string
	IssueDate        *Date
	ExpiryDate       *Date
}

type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomeServiceFailure OutcomeKind = "service_failure"
	OutcomeInternalError  OutcomeKind = "internal_error"
)

type ClassificationOutcome struct {
	Kind       OutcomeKind
	DocumentID string
	Result     *ClassificationResult
	Err        error
}

func SuccessOutcome(documentID string, result ClassificationResult) ClassificationOutcome {
	return ClassificationOutcome{Kind: OutcomeSuccess, DocumentID: documentID, Result: &result}
}

func ServiceFailureOutcome(documentID string, err error) ClassificationOutcome {
	return ClassificationOutcome{Kind: OutcomeServiceFailure, DocumentID: documentID, Err: err}
}

func InternalErrorOutcome(documentID string, err error) ClassificationOutcome {
	return ClassificationOutcome{Kind: OutcomeInternalError, DocumentID: documentID, Err: err}
}

// Update maps every outcome to a row write with status CURRENT. A service failure
// records the OTHER vocabulary with no confidence; an internal error writes status only.
func (o ClassificationOutcome) Update() ClassificationUpdate {
	switch {
	case o.Kind == OutcomeSuccess && o.Result != nil:
		return ProjectClassification(*o.Result)
	case o.Kind == OutcomeServiceFailure:
		docType, category := TypeOther, CategoryOther
		return ClassificationUpdate{Status: StatusCurrent, DocumentType: &docType, Category: &category}
	default:
		return ClassificationUpdate{Status: StatusCurrent}
	}
}

// Extraction keys projected onto dedicated columns, first non-empty wins.
var (
	holderNameKeys       = []string{"holderName", "name"}
	documentNumberKeys   = []string{"documentNumber", "panNumber", "aadhaarNumber"}
	issuingAuthorityKeys = []string{"issuingAuthority"}
	issueDateKeys        = []string{"issueDate"}
	expiryDateKeys       = []string{"expiryDate"}
)

func ProjectClassification(result ClassificationResult) ClassificationUpdate {
	docType := ParseDocumentType(result.Classification.DocumentType)
	category := ParseDocumentCategory(result.Classification.Category)

	fields := make(map[string]string, len(result.Extraction.Fields))
	for key, field := range result.Extraction.Fields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		fields[key] = value
	}

	update := ClassificationUpdate{
		Status:          StatusCurrent,
		DocumentType:    &docType,
		Category:        &category,
		ExtractedFields: fields,
	}
	// A zero confidence means the service did not score the result.
	if confidence := clampConfidence(result.Classification.Confidence); confidence > 0 {
		update.Confidence = &confidence
	}
	update.HolderName = firstField(fields, holderNameKeys)
	update.DocumentNumber = firstField(fields, documentNumberKeys)
	update.IssuingAuthority = firstField(fields, issuingAuthorityKeys)
	update.IssueDate = firstDate(fields, issueDateKeys)
	update.ExpiryDate = firstDate(fields, expiryDateKeys)
	return update
}

func firstField(fields map[string]string, keys []string) *string {
	for _, key := range keys {
		if value, ok := fields[key]; ok {
			return &value
		}
	}
	return nil
}

// firstDate skips values that do not parse; a bad date is treated as absent.
func firstDate(fields map[string]string, keys []string) *Date {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		parsed, err := ParseDate(value)
		if err != nil {
			continue
		}
		return &parsed
	}
	return nil
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

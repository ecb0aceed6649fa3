package domain

import (
	"strings"
	"time"
)

type WorkflowStatus string

const (
	WorkflowDraft      WorkflowStatus = "DRAFT"
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowSubmitted  WorkflowStatus = "SUBMITTED"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
	WorkflowFailed     WorkflowStatus = "FAILED"
)

var workflowStatuses = []WorkflowStatus{WorkflowDraft, WorkflowInProgress, WorkflowSubmitted, WorkflowCompleted, WorkflowFailed}

func ParseWorkflowStatus(raw string) (WorkflowStatus, bool) {
	status := WorkflowStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range workflowStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

type WorkflowTemplate struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Description       string         `json:"description" yaml:"description"`
	Category          string         `json:"category" yaml:"category"`
	RequiredDocuments []DocumentType `json:"requiredDocuments" yaml:"required_documents"`
	OptionalDocuments []DocumentType `json:"optionalDocuments" yaml:"optional_documents"`
	EstimatedTime     string         `json:"estimatedTime" yaml:"estimated_time"`
}

// DocumentTypes lists required types first, then optional ones.
func (t WorkflowTemplate) DocumentTypes() []DocumentType {
	out := make([]DocumentType, 0, len(t.RequiredDocuments)+len(t.OptionalDocuments))
	out = append(out, t.RequiredDocuments...)
	return append(out, t.OptionalDocuments...)
}

type WorkflowInstance struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"ownerId"`
	TemplateID      string         `json:"templateId"`
	TemplateName    string         `json:"templateName"`
	Status          WorkflowStatus `json:"status"`
	CurrentStep     int            `json:"currentStep"`
	TotalSteps      int            `json:"totalSteps"`
	DocumentIDs     []string       `json:"documentIds"`
	ReferenceNumber *string        `json:"referenceNumber,omitempty"`
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type WorkflowPatch struct {
	Status      *WorkflowStatus
	CurrentStep *int
	DocumentIDs *[]string
}

// ChecklistItem reports whether the owner holds a usable document of the given type.
type ChecklistItem struct {
	DocumentType DocumentType    `json:"documentType"`
	Required     bool            `json:"required"`
	Available    bool            `json:"available"`
	DocumentID   *string         `json:"documentId,omitempty"`
	Status       *DocumentStatus `json:"status,omitempty"`
}

type WorkflowChecklist struct {
	WorkflowID string          `json:"workflowId"`
	TemplateID string          `json:"templateId"`
	Items      []ChecklistItem `json:"items"`
	Ready      bool            `json:"ready"`
}

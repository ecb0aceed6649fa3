package httpadapter

import (
	"net/http"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type startWorkflowRequest struct {
	TemplateID string `json:"templateId"`
}

type workflowPatchRequest struct {
	Status      *string   `json:"status"`
	CurrentStep *int      `json:"currentStep"`
	DocumentIDs *[]string `json:"documentIds"`
}

func (rt *Router) listWorkflowTemplates(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": rt.services.Workflows.ListTemplates(r.Context())})
}

func (rt *Router) listWorkflows(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	workflows, err := rt.services.Workflows.List(r.Context(), principal.OwnerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

func (rt *Router) startWorkflow(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req startWorkflowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	workflow, err := rt.services.Workflows.Start(r.Context(), principal.OwnerID, req.TemplateID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, workflow)
}

func (rt *Router) getWorkflow(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	workflow, err := rt.services.Workflows.Get(r.Context(), principal.OwnerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

func (rt *Router) updateWorkflow(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req workflowPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	patch := domain.WorkflowPatch{
		CurrentStep: req.CurrentStep,
		DocumentIDs: req.DocumentIDs,
	}
	if req.Status != nil {
		status := domain.WorkflowStatus(*req.Status)
		patch.Status = &status
	}
	workflow, err := rt.services.Workflows.Update(r.Context(), principal.OwnerID, r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

// workflowSubresource serves /workflows/templates/{id} and /workflows/{id}/checklist.
func (rt *Router) workflowSubresource(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	id, view := r.PathValue("id"), r.PathValue("view")
	switch {
	case id == "templates":
		template, err := rt.services.Workflows.GetTemplate(r.Context(), view)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, template)
	case view == "checklist":
		checklist, err := rt.services.Workflows.Checklist(r.Context(), principal.OwnerID, id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, checklist)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

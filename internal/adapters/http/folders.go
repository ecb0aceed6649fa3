package httpadapter

import (
	"net/http"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type folderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (rt *Router) listFolders(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	folders, err := rt.services.Folders.List(r.Context(), principal.OwnerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (rt *Router) createFolder(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	folder, err := rt.services.Folders.Create(r.Context(), principal.OwnerID, req.Name, req.ParentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (rt *Router) renameFolder(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	folder, err := rt.services.Folders.Rename(r.Context(), principal.OwnerID, r.PathValue("id"), req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (rt *Router) deleteFolder(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if err := rt.services.Folders.Delete(r.Context(), principal.OwnerID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listNotifications(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	notifications, err := rt.services.Notifications.List(r.Context(), principal.OwnerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (rt *Router) markNotificationRead(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if err := rt.services.Notifications.MarkRead(r.Context(), principal.OwnerID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) markAllNotificationsRead(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	updated, err := rt.services.Notifications.MarkAllRead(r.Context(), principal.OwnerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

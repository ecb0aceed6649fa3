package httpadapter

import (
	"errors"
	"net/http"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type createShareRequest struct {
	ExpiresInHours int     `json:"expiresInHours"`
	RecipientEmail *string `json:"recipientEmail"`
}

func (rt *Router) createShare(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req createShareRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeDomainError(w, r, err)
		return
	}
	link, err := rt.services.Shares.Create(r.Context(), domain.ShareInput{
		OwnerID:        principal.OwnerID,
		DocumentID:     r.PathValue("id"),
		ExpiresInHours: req.ExpiresInHours,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (rt *Router) listShares(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	shares, err := rt.services.Shares.ListForDocument(r.Context(), principal.OwnerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": shares})
}

func (rt *Router) revokeShare(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if err := rt.services.Shares.Revoke(r.Context(), principal.OwnerID, r.PathValue("token")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveShare is the only unauthenticated document read.
func (rt *Router) resolveShare(w http.ResponseWriter, r *http.Request) {
	view, err := rt.services.Shares.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

package handler

import (
	"net/http"

	"foodguide/internal/auth"
	"foodguide/internal/orchestrator"

	"github.com/go-chi/chi/v5"
)

// LibraryHandler serves the signed-in user's saved guides. Routes sit behind
// auth.RequireAuth.
type LibraryHandler struct {
	Orch *orchestrator.Orchestrator
}

func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	guides, err := h.Orch.Library(r.Context(), &id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guides": cards(guides)})
}

func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	if err := h.Orch.SaveToLibrary(r.Context(), &id, chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	if err := h.Orch.RemoveFromLibrary(r.Context(), &id, chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

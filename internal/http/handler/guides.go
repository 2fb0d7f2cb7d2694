package handler

import (
	"net/http"
	"time"

	"foodguide/internal/guide"
	"foodguide/internal/orchestrator"

	"github.com/go-chi/chi/v5"
)

type GuideHandler struct {
	Orch *orchestrator.Orchestrator
}

type guideCard struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	City         string             `json:"city"`
	Params       guide.SearchParams `json:"params"`
	Places       int                `json:"places"`
	LikeCount    int                `json:"likeCount"`
	CommentCount int                `json:"commentCount"`
	CreatedAt    string             `json:"createdAt"`
}

func cards(guides []guide.Guide) []guideCard {
	out := make([]guideCard, 0, len(guides))
	for _, g := range guides {
		out = append(out, guideCard{
			ID:           g.ID,
			Title:        guide.Title(g.Params),
			City:         g.Params.City,
			Params:       g.Params,
			Places:       len(g.Data),
			LikeCount:    g.LikeCount,
			CommentCount: g.CommentCount,
			CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// List is the explore feed, newest first.
func (h *GuideHandler) List(w http.ResponseWriter, r *http.Request) {
	guides, err := h.Orch.Explore(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guides": cards(guides)})
}

func (h *GuideHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.Orch.Guide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guide":    g,
		"title":    guide.Title(g.Params),
		"sections": guide.GroupByCategory(g.Data),
	})
}

func (h *GuideHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Orch.GuideComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

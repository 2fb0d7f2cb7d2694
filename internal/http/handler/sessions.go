package handler

import (
	"errors"
	"net/http"

	"foodguide/internal/auth"
	"foodguide/internal/guide"
	"foodguide/internal/metrics"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SessionHandler struct {
	Registry *session.Registry
	Orch     *orchestrator.Orchestrator
	JWT      *auth.JWT
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// state resolves {sid}; it writes 404 when the session is unknown.
func (h *SessionHandler) state(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	s, ok := h.Registry.Get(chi.URLParam(r, "sid"))
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// Create opens a session. A bearer token signs it in right away.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.Registry.Create()
	h.Metrics.SetActiveSessions(h.Registry.Len())

	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		if _, err := h.Orch.SetIdentity(r.Context(), s, &id); err != nil {
			h.Log.Warn("initial identity refresh failed", zap.String("session", s.ID()), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      s.ID(),
		"session": s.Snapshot(),
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Registry.Delete(chi.URLParam(r, "sid")) {
		writeError(w, http.StatusNotFound, CodeNotFound, "session not found")
		return
	}
	h.Metrics.SetActiveSessions(h.Registry.Len())
	w.WriteHeader(http.StatusNoContent)
}

// SignIn is the auth state change to the identity of the bearer token.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	h.applyIdentity(w, r, s, &id)
}

// SignOut is the auth state change to signed out.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	h.applyIdentity(w, r, s, nil)
}

func (h *SessionHandler) applyIdentity(w http.ResponseWriter, r *http.Request, s *session.State, id *auth.Identity) {
	res, err := h.Orch.SetIdentity(r.Context(), s, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"refresh": res,
		"session": s.Snapshot(),
	})
}

type viewReq struct {
	View string `json:"view" validate:"required,oneof=home search library explore"`
}

func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	var req viewReq
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Orch.Navigate(r.Context(), s, session.View(req.View))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type searchReq struct {
	City     string   `json:"city" validate:"required,max=120"`
	Dish     *string  `json:"dish" validate:"omitempty,max=120"`
	Price    *string  `json:"price" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	Audience *string  `json:"audience" validate:"omitempty,max=120"`
	Vibes    []string `json:"vibes" validate:"dive,required,max=60"`
	Diets    []string `json:"diets" validate:"dive,required,max=60"`
}

func (q searchReq) params() guide.SearchParams {
	return guide.SearchParams{
		City:     q.City,
		Dish:     q.Dish,
		Price:    q.Price,
		Audience: q.Audience,
		Vibes:    q.Vibes,
		Diets:    q.Diets,
	}
}

type guideView struct {
	Guide    *guide.Guide     `json:"guide"`
	Title    string           `json:"title"`
	Sections []guide.Section  `json:"sections"`
	Comments []guide.Comment  `json:"comments,omitempty"`
	Session  session.Snapshot `json:"session"`
}

func newGuideView(g *guide.Guide, s *session.State) guideView {
	return guideView{
		Guide:    g,
		Title:    guide.Title(g.Params),
		Sections: guide.GroupByCategory(g.Data),
		Session:  s.Snapshot(),
	}
}

func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	var req searchReq
	if !decode(w, r, &req) {
		return
	}

	g, err := h.Orch.Search(r.Context(), s, req.params())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGuideView(g, s))
}

type findMoreResp struct {
	Added        []guide.PlaceRecord `json:"added"`
	Total        int                 `json:"total"`
	Persisted    bool                `json:"persisted"`
	PersistError string              `json:"persistError,omitempty"`
	Sections     []guide.Section     `json:"sections"`
	Generation   uint64              `json:"generation"`
}

// FindMore answers 200 whenever new places are on screen. A failed store
// write is reported in the body next to them.
func (h *SessionHandler) FindMore(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}

	res, err := h.Orch.FindMore(r.Context(), s)
	if err != nil && !(errors.Is(err, guide.ErrPersistence) && res.Display.Total > 0) {
		writeErr(w, err)
		return
	}

	snap := s.Snapshot()
	out := findMoreResp{
		Added:      res.Display.Added,
		Total:      res.Display.Total,
		Persisted:  res.Persist.Attempted && res.Persist.Err == nil,
		Sections:   guide.GroupByCategory(snap.Data),
		Generation: snap.Generation,
	}
	if res.Persist.Err != nil {
		out.PersistError = res.Persist.Err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) LoadGuide(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}

	g, comments, err := h.Orch.LoadByID(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	view := newGuideView(g, s)
	view.Comments = comments
	writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) NewGuide(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	h.Orch.NewGuide(s)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// actsAsSession checks that the bearer token belongs to the identity the
// session is signed in as. The session id alone never authorizes a write.
func actsAsSession(w http.ResponseWriter, r *http.Request, s *session.State) bool {
	signedIn := s.Identity()
	if signedIn == nil {
		writeErr(w, guide.ErrUnauthenticated)
		return false
	}
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeErr(w, guide.ErrUnauthenticated)
		return false
	}
	if caller.UID != signedIn.UID {
		writeError(w, http.StatusForbidden, CodeForbidden, "token does not match the session identity")
		return false
	}
	return true
}

func (h *SessionHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	if !actsAsSession(w, r, s) {
		return
	}

	count, liked, err := h.Orch.ToggleLike(r.Context(), s)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"likeCount": count, "liked": liked})
}

func (h *SessionHandler) Comments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}

	comments, err := h.Orch.Comments(r.Context(), s)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type commentReq struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (h *SessionHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}
	// signed-out sessions are rejected before the body is even read
	if !actsAsSession(w, r, s) {
		return
	}
	var req commentReq
	if !decode(w, r, &req) {
		return
	}

	c, err := h.Orch.PostComment(r.Context(), s, req.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *SessionHandler) Share(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state(w, r)
	if !ok {
		return
	}

	link, err := h.Orch.Share(s)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": link})
}

package orchestrator

import (
	"context"
	"errors"

	"foodguide/internal/auth"
	"foodguide/internal/guide"
	"foodguide/internal/session"

	"go.uber.org/zap"
)

// ViewResult is what a view switch needs to render.
type ViewResult struct {
	View   session.View  `json:"view"`
	Guides []guide.Guide `json:"guides,omitempty"`
	// SignInRequired is set on the library view of a signed-out session.
	SignInRequired bool `json:"signInRequired,omitempty"`
}

// Navigate switches the session view and loads the guide list the view shows.
func (o *Orchestrator) Navigate(ctx context.Context, s *session.State, v session.View) (ViewResult, error) {
	if !v.Valid() {
		return ViewResult{}, ErrInvalidState
	}
	s.SetView(v)
	res := ViewResult{View: v}

	switch v {
	case session.ViewExplore:
		guides, err := o.store.ListAllGuides(ctx)
		if err != nil {
			return res, err
		}
		res.Guides = guides
	case session.ViewLibrary:
		guides, err := o.Library(ctx, s.Identity())
		if errors.Is(err, guide.ErrUnauthenticated) {
			res.SignInRequired = true
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res.Guides = guides
	}
	return res, nil
}

const (
	RefreshLiked   = "liked"
	RefreshLibrary = "library"
)

// AuthRefresh lists what an identity change re-evaluated.
type AuthRefresh struct {
	Refreshed []string      `json:"refreshed"`
	Liked     bool          `json:"liked"`
	Library   []guide.Guide `json:"library,omitempty"`
}

// SetIdentity applies an auth state change to the session, then refreshes the
// liked flag of the displayed guide and the library when it is on screen.
func (o *Orchestrator) SetIdentity(ctx context.Context, s *session.State, who *auth.Identity) (AuthRefresh, error) {
	s.SetIdentity(who)
	res := AuthRefresh{Refreshed: []string{}}

	if guideID := s.GuideID(); guideID != "" {
		res.Liked = o.likedBy(ctx, guideID, who)
		s.SetLiked(guideID, res.Liked)
		res.Refreshed = append(res.Refreshed, RefreshLiked)
	}

	if s.View() == session.ViewLibrary {
		res.Refreshed = append(res.Refreshed, RefreshLibrary)
		if who != nil {
			lib, err := o.store.ListUserLibrary(ctx, who.UID)
			if err != nil {
				o.log.Warn("library refresh failed", zap.String("uid", who.UID), zap.Error(err))
				return res, err
			}
			res.Library = lib
		}
	}
	return res, nil
}

package orchestrator

import (
	"context"
	"strings"

	"foodguide/internal/auth"
	"foodguide/internal/guide"
	"foodguide/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ToggleLike flips the signed-in user's like on the displayed guide.
func (o *Orchestrator) ToggleLike(ctx context.Context, s *session.State) (count int, liked bool, err error) {
	who := s.Identity()
	if who == nil {
		return 0, false, guide.ErrUnauthenticated
	}
	guideID := s.GuideID()
	if guideID == "" {
		return 0, false, ErrInvalidState
	}

	ctx, span := o.startSpan(ctx, "orchestrator.ToggleLike", attribute.String("guide_id", guideID))
	defer func() { endSpan(span, err) }()

	count, liked, err = o.store.ToggleLike(ctx, guideID, who.UID)
	if err != nil {
		o.log.Warn("toggle like failed", zap.String("guide_id", guideID), zap.String("uid", who.UID), zap.Error(err))
		s.Note(err)
		return 0, false, err
	}
	o.metrics.IncLikeToggle(liked)
	s.SetLike(guideID, count, liked)
	return count, liked, nil
}

// PostComment adds a comment from the signed-in user to the displayed guide.
func (o *Orchestrator) PostComment(ctx context.Context, s *session.State, text string) (c *guide.Comment, err error) {
	who := s.Identity()
	if who == nil {
		return nil, guide.ErrUnauthenticated
	}
	guideID := s.GuideID()
	if guideID == "" {
		return nil, ErrInvalidState
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	ctx, span := o.startSpan(ctx, "orchestrator.PostComment", attribute.String("guide_id", guideID))
	defer func() { endSpan(span, err) }()

	c, err = o.store.PostComment(ctx, guideID, *who, text)
	if err != nil {
		o.log.Warn("post comment failed", zap.String("guide_id", guideID), zap.Error(err))
		s.Note(err)
		return nil, err
	}
	o.metrics.IncComments()
	s.BumpCommentCount(guideID)
	return c, nil
}

// Comments lists the comments of the displayed guide, oldest first.
func (o *Orchestrator) Comments(ctx context.Context, s *session.State) ([]guide.Comment, error) {
	guideID := s.GuideID()
	if guideID == "" {
		return nil, ErrInvalidState
	}
	return o.store.ListComments(ctx, guideID)
}

// Share returns the link that reopens the displayed guide.
func (o *Orchestrator) Share(s *session.State) (string, error) {
	guideID := s.GuideID()
	if guideID == "" {
		return "", ErrInvalidState
	}
	return o.baseURL + "/#guide=" + guideID, nil
}

func (o *Orchestrator) Explore(ctx context.Context) ([]guide.Guide, error) {
	return o.store.ListAllGuides(ctx)
}

func (o *Orchestrator) Library(ctx context.Context, who *auth.Identity) ([]guide.Guide, error) {
	if who == nil {
		return nil, guide.ErrUnauthenticated
	}
	return o.store.ListUserLibrary(ctx, who.UID)
}

// SaveToLibrary adds an existing guide to the user's library.
func (o *Orchestrator) SaveToLibrary(ctx context.Context, who *auth.Identity, guideID string) error {
	if who == nil {
		return guide.ErrUnauthenticated
	}
	if _, err := o.store.GetGuide(ctx, guideID); err != nil {
		return err
	}
	return o.store.AddToUserLibrary(ctx, who.UID, guideID)
}

// RemoveFromLibrary unlinks a guide from the user's library. The guide
// itself stays.
func (o *Orchestrator) RemoveFromLibrary(ctx context.Context, who *auth.Identity, guideID string) error {
	if who == nil {
		return guide.ErrUnauthenticated
	}
	return o.store.RemoveFromUserLibrary(ctx, who.UID, guideID)
}

// Guide returns a stored guide without touching any session.
func (o *Orchestrator) Guide(ctx context.Context, id string) (*guide.Guide, error) {
	return o.store.GetGuide(ctx, id)
}

// GuideComments lists the comments of a stored guide, oldest first.
func (o *Orchestrator) GuideComments(ctx context.Context, id string) ([]guide.Comment, error) {
	if _, err := o.store.GetGuide(ctx, id); err != nil {
		return nil, err
	}
	return o.store.ListComments(ctx, id)
}

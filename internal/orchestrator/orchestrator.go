// Package orchestrator runs the guide flows: search with cache lookup,
// generation and persistence, find-more, loading, likes, comments and the
// library.
package orchestrator

import (
	"context"
	"errors"
	"strings"

	"foodguide/internal/auth"
	"foodguide/internal/generation"
	"foodguide/internal/guide"
	"foodguide/internal/metrics"
	"foodguide/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrInvalidState: the session is not in a state that allows the
	// operation, e.g. find-more without a ready guide.
	ErrInvalidState = errors.New("operation not allowed in the current state")

	ErrEmptyComment = errors.New("comment text is empty")
)

// Store is the guide persistence the orchestrator needs.
type Store interface {
	FindBySearchKey(ctx context.Context, key string) (*guide.Guide, error)
	CreateGuide(ctx context.Context, params guide.SearchParams, data []guide.PlaceRecord, searchKey, creatorUID string) (string, error)
	AppendToGuideData(ctx context.Context, id string, records []guide.PlaceRecord) error
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	ListAllGuides(ctx context.Context) ([]guide.Guide, error)
	AddToUserLibrary(ctx context.Context, userID, guideID string) error
	RemoveFromUserLibrary(ctx context.Context, userID, guideID string) error
	ListUserLibrary(ctx context.Context, userID string) ([]guide.Guide, error)
	IsLiked(ctx context.Context, guideID, userID string) (bool, error)
	ToggleLike(ctx context.Context, guideID, userID string) (int, bool, error)
	PostComment(ctx context.Context, guideID string, who auth.Identity, text string) (*guide.Comment, error)
	ListComments(ctx context.Context, guideID string) ([]guide.Comment, error)
}

type Generator interface {
	Generate(ctx context.Context, req generation.Request) ([]guide.PlaceRecord, error)
}

// KeyCache remembers search key to guide id answers. Implementations fail
// open.
type KeyCache interface {
	Lookup(ctx context.Context, searchKey string) (string, bool)
	Remember(ctx context.Context, searchKey, guideID string)
	Forget(ctx context.Context, searchKey string)
}

type Options struct {
	Cache   KeyCache
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// PublicBaseURL prefixes share links.
	PublicBaseURL string
}

type Orchestrator struct {
	store   Store
	gen     Generator
	cache   KeyCache
	metrics *metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
	baseURL string
}

func New(store Store, gen Generator, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		gen:     gen,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     log,
		tracer:  otel.Tracer("foodguide/orchestrator"),
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Search answers params from a stored guide when one has the same search key
// and generates a new guide otherwise. Params failing guide.Validate are
// rejected before the session changes.
func (o *Orchestrator) Search(ctx context.Context, s *session.State, params guide.SearchParams) (g *guide.Guide, err error) {
	params = params.Normalize()
	ctx, span := o.startSpan(ctx, "orchestrator.Search", attribute.String("city", params.City))
	defer func() { endSpan(span, err) }()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := guide.ComputeKey(params)
	tok := s.BeginSearch(params)
	who := s.Identity()

	found, source, err := o.lookup(ctx, key)
	if err != nil {
		o.log.Error("search key lookup failed", zap.String("session", s.ID()), zap.Error(err))
		_ = s.Fail(tok, err)
		return nil, err
	}
	if found != nil {
		span.SetAttributes(attribute.String("source", source), attribute.String("guide_id", found.ID))
		o.metrics.IncSearch(source)
		liked := o.likedBy(ctx, found.ID, who)
		if err := s.Ready(tok, found, liked); err != nil {
			return nil, err
		}
		o.addToLibrary(ctx, who, found.ID)
		return found, nil
	}

	if err := s.SetPhase(tok, session.PhaseGenerating); err != nil {
		return nil, err
	}

	data, err := o.generate(ctx, generation.Request{Params: params}, "guide")
	if err != nil {
		if ferr := s.Fail(tok, err); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	// a newer search, load or reset owns the session now; drop this result
	if !s.IsCurrent(tok) {
		o.log.Info("discarding stale generation", zap.String("session", s.ID()), zap.String("city", params.City))
		return nil, session.ErrStaleGeneration
	}

	creator := ""
	if who != nil {
		creator = who.UID
	}
	id, err := o.store.CreateGuide(ctx, params, data, key, creator)
	if err != nil {
		o.metrics.IncPersistFailure("create")
		o.log.Error("create guide failed", zap.String("session", s.ID()), zap.Error(err))
		if serr := s.ShowUnsaved(tok, data, err); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	o.metrics.IncGuidesCreated()
	o.metrics.IncSearch("generated")
	if o.cache != nil {
		o.cache.Remember(ctx, key, id)
	}

	// the id may belong to a guide stored concurrently under the same key
	g, err = o.store.GetGuide(ctx, id)
	if err != nil {
		o.log.Warn("reload created guide failed", zap.String("guide_id", id), zap.Error(err))
		g = &guide.Guide{ID: id, Params: params, Data: data, SearchKey: &key}
	}
	span.SetAttributes(attribute.String("source", "generated"), attribute.String("guide_id", g.ID))

	if err := s.Ready(tok, g, o.likedBy(ctx, g.ID, who)); err != nil {
		return nil, err
	}
	o.addToLibrary(ctx, who, g.ID)
	return g, nil
}

// lookup checks the key cache, then the store. source names where the guide
// came from.
func (o *Orchestrator) lookup(ctx context.Context, key string) (*guide.Guide, string, error) {
	if o.cache != nil {
		if id, ok := o.cache.Lookup(ctx, key); ok {
			g, err := o.store.GetGuide(ctx, id)
			if err == nil {
				return g, "cache", nil
			}
			o.log.Debug("cached guide id not loadable", zap.String("guide_id", id), zap.Error(err))
			if errors.Is(err, guide.ErrNotFound) {
				o.cache.Forget(ctx, key)
			}
		}
	}

	g, err := o.store.FindBySearchKey(ctx, key)
	if errors.Is(err, guide.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if o.cache != nil {
		o.cache.Remember(ctx, key, g.ID)
	}
	return g, "store", nil
}

func (o *Orchestrator) generate(ctx context.Context, req generation.Request, kind string) ([]guide.PlaceRecord, error) {
	ctx, span := o.startSpan(ctx, "generator.Generate",
		attribute.String("kind", kind),
		attribute.Int("existing_names", len(req.ExistingNames)),
	)

	data, err := o.gen.Generate(ctx, req)
	if err == nil && len(data) == 0 {
		err = guide.ErrEmptyResponse
	}
	endSpan(span, err)

	switch {
	case err == nil:
		o.metrics.IncGeneration(kind, "ok")
	case errors.Is(err, guide.ErrEmptyResponse):
		o.metrics.IncGeneration(kind, "empty")
	case errors.Is(err, guide.ErrMalformedResponse):
		o.metrics.IncGeneration(kind, "malformed")
	default:
		o.metrics.IncGeneration(kind, "error")
		if !errors.Is(err, guide.ErrGeneration) {
			err = errors.Join(guide.ErrGeneration, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DisplayResult is the in-memory half of a find-more.
type DisplayResult struct {
	Added []guide.PlaceRecord `json:"added"`
	Total int                 `json:"total"`
}

// PersistResult is the store half of a find-more. Attempted is false when the
// displayed places were never stored.
type PersistResult struct {
	Attempted bool  `json:"attempted"`
	Err       error `json:"-"`
}

type FindMoreResult struct {
	Display DisplayResult
	Persist PersistResult
}

// FindMore asks for five more places and appends them to the session, then to
// the stored guide. Display is valid whenever the generation succeeded; a
// failed store write is returned as an ErrPersistence error next to it.
func (o *Orchestrator) FindMore(ctx context.Context, s *session.State) (res FindMoreResult, err error) {
	ctx, span := o.startSpan(ctx, "orchestrator.FindMore")
	defer func() { endSpan(span, err) }()

	tok, in, ok := s.BeginFindMore()
	if !ok {
		return res, ErrInvalidState
	}
	span.SetAttributes(attribute.String("guide_id", in.GuideID), attribute.Int("existing", len(in.ExistingNames)))

	data, err := o.generate(ctx, generation.Request{
		Params:        in.Params,
		IsFindingMore: true,
		ExistingNames: in.ExistingNames,
	}, "find_more")
	if err != nil {
		if ferr := s.Fail(tok, err); ferr != nil {
			return res, ferr
		}
		return res, err
	}

	total, err := s.AppendData(tok, data)
	if err != nil {
		return res, err
	}
	res.Display = DisplayResult{Added: data, Total: total}

	if in.GuideID == "" {
		return res, nil
	}

	res.Persist.Attempted = true
	if err := o.store.AppendToGuideData(ctx, in.GuideID, data); err != nil {
		o.metrics.IncPersistFailure("append")
		o.log.Error("append guide data failed",
			zap.String("session", s.ID()),
			zap.String("guide_id", in.GuideID),
			zap.Int("records", len(data)),
			zap.Error(err),
		)
		if !errors.Is(err, guide.ErrPersistence) {
			err = errors.Join(guide.ErrPersistence, err)
		}
		res.Persist.Err = err
		s.Note(err)
		return res, err
	}
	return res, nil
}

// LoadByID replaces the session with the stored guide id and returns its
// comments. An unknown id sends the session home.
func (o *Orchestrator) LoadByID(ctx context.Context, s *session.State, id string) (g *guide.Guide, comments []guide.Comment, err error) {
	ctx, span := o.startSpan(ctx, "orchestrator.LoadByID", attribute.String("guide_id", id))
	defer func() { endSpan(span, err) }()

	g, err = o.store.GetGuide(ctx, id)
	if err != nil {
		if errors.Is(err, guide.ErrNotFound) {
			s.GoHome(err)
		}
		return nil, nil, err
	}

	s.LoadGuide(g, o.likedBy(ctx, g.ID, s.Identity()))

	comments, cerr := o.store.ListComments(ctx, g.ID)
	if cerr != nil {
		o.log.Warn("list comments failed", zap.String("guide_id", g.ID), zap.Error(cerr))
	}
	return g, comments, nil
}

// NewGuide clears the session for a fresh search.
func (o *Orchestrator) NewGuide(s *session.State) {
	s.Reset()
}

func (o *Orchestrator) likedBy(ctx context.Context, guideID string, who *auth.Identity) bool {
	if who == nil {
		return false
	}
	liked, err := o.store.IsLiked(ctx, guideID, who.UID)
	if err != nil {
		o.log.Warn("like lookup failed", zap.String("guide_id", guideID), zap.Error(err))
		return false
	}
	return liked
}

func (o *Orchestrator) addToLibrary(ctx context.Context, who *auth.Identity, guideID string) {
	if who == nil {
		return
	}
	if err := o.store.AddToUserLibrary(ctx, who.UID, guideID); err != nil {
		o.log.Warn("add to library failed",
			zap.String("uid", who.UID),
			zap.String("guide_id", guideID),
			zap.Error(err),
		)
	}
}

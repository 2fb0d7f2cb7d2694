// Package session holds per-client guide state and pushes snapshots of it to
// subscribers.
package session

import (
	"errors"
	"sync"
	"time"

	"foodguide/internal/auth"
	"foodguide/internal/guide"
)

// ErrStaleGeneration is returned when a generation result arrives after the
// session moved on (a newer search, a load, or a reset).
var ErrStaleGeneration = errors.New("generation result is stale")

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSearching     Phase = "searching"
	PhaseGenerating    Phase = "generating"
	PhaseReady         Phase = "ready"
	PhaseExtendingMore Phase = "extending_more"
	PhaseFailed        Phase = "failed"
)

type View string

const (
	ViewHome    View = "home"
	ViewSearch  View = "search"
	ViewLibrary View = "library"
	ViewExplore View = "explore"
)

func (v View) Valid() bool {
	switch v {
	case ViewHome, ViewSearch, ViewLibrary, ViewExplore:
		return true
	}
	return false
}

// Token identifies one generation. Only the holder of the current token may
// write its result into the session.
type Token uint64

// Snapshot is a copy of the session safe to hand to other goroutines.
type Snapshot struct {
	ID           string              `json:"id"`
	View         View                `json:"view"`
	Phase        Phase               `json:"phase"`
	Identity     *auth.Identity      `json:"identity"`
	GuideID      string              `json:"guideId,omitempty"`
	Params       *guide.SearchParams `json:"params,omitempty"`
	Data         []guide.PlaceRecord `json:"data"`
	Liked        bool                `json:"liked"`
	LikeCount    int                 `json:"likeCount"`
	CommentCount int                 `json:"commentCount"`
	Error        string              `json:"error,omitempty"`
	Generation   uint64              `json:"generation"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// FindMoreInput is what a find-more generation needs from the session.
type FindMoreInput struct {
	GuideID       string
	Params        guide.SearchParams
	ExistingNames []string
}

// State is one client's session. All methods are safe for concurrent use and
// every change is pushed to subscribers.
type State struct {
	mu sync.Mutex

	id       string
	view     View
	phase    Phase
	identity *auth.Identity

	guideID      string
	params       *guide.SearchParams
	data         []guide.PlaceRecord
	liked        bool
	likeCount    int
	commentCount int
	lastErr      string

	gen     Token
	updated time.Time
	seen    time.Time

	subs    map[int]chan Snapshot
	nextSub int
}

func NewState(id string) *State {
	return &State{
		id:      id,
		view:    ViewHome,
		phase:   PhaseIdle,
		updated: time.Now(),
		seen:    time.Now(),
		subs:    map[int]chan Snapshot{},
	}
}

func (s *State) ID() string { return s.id }

// touch records client activity without notifying subscribers.
func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.seen = now
	s.mu.Unlock()
}

// idleSince reports whether nothing has used the session since cutoff. A
// session with a live subscriber is never idle.
func (s *State) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return false
	}
	return s.seen.Before(cutoff) && s.updated.Before(cutoff)
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		View:         s.view,
		Phase:        s.phase,
		GuideID:      s.guideID,
		Data:         append([]guide.PlaceRecord{}, s.data...),
		Liked:        s.liked,
		LikeCount:    s.likeCount,
		CommentCount: s.commentCount,
		Error:        s.lastErr,
		Generation:   uint64(s.gen),
		UpdatedAt:    s.updated,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.params != nil {
		p := *s.params
		snap.Params = &p
	}
	return snap
}

// changed must be called with mu held.
func (s *State) changed() {
	s.updated = time.Now()
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// slow subscriber: replace the oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one. Call cancel to stop and close the channel.
func (s *State) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *State) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// SetIdentity records an auth state change. A nil identity is signed out,
// which also clears the liked flag.
func (s *State) SetIdentity(id *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.identity = nil
		s.liked = false
	} else {
		cp := *id
		s.identity = &cp
	}
	s.changed()
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *State) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	s.changed()
}

func (s *State) GuideID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guideID
}

// BeginSearch starts a new search: the displayed guide is cleared and every
// generation still in flight becomes stale.
func (s *State) BeginSearch(p guide.SearchParams) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.clearGuideLocked()
	s.params = &p
	s.view = ViewSearch
	s.phase = PhaseSearching
	s.changed()
	return s.gen
}

// BeginFindMore moves a ready session to ExtendingMore. ok is false when the
// session is not ready. GuideID is empty when the displayed places were never
// stored.
func (s *State) BeginFindMore() (Token, FindMoreInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReady || s.params == nil {
		return 0, FindMoreInput{}, false
	}

	names := make([]string, 0, len(s.data))
	for _, r := range s.data {
		names = append(names, r.Name)
	}

	s.gen++
	s.phase = PhaseExtendingMore
	s.lastErr = ""
	s.changed()
	return s.gen, FindMoreInput{GuideID: s.guideID, Params: *s.params, ExistingNames: names}, true
}

// IsCurrent reports whether tok is the latest generation.
func (s *State) IsCurrent(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == tok
}

// SetPhase moves the phase on behalf of the generation tok.
func (s *State) SetPhase(tok Token, p Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.gen {
		return ErrStaleGeneration
	}
	s.phase = p
	s.changed()
	return nil
}

// Ready installs a searched or generated guide for the generation tok.
func (s *State) Ready(tok Token, g *guide.Guide, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.gen {
		return ErrStaleGeneration
	}
	s.installLocked(g, liked)
	s.changed()
	return nil
}

// ShowUnsaved displays generated places that could not be stored. The guide
// id stays empty so nothing can reference them.
func (s *State) ShowUnsaved(tok Token, data []guide.PlaceRecord, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.gen {
		return ErrStaleGeneration
	}
	s.guideID = ""
	s.data = append([]guide.PlaceRecord{}, data...)
	s.liked = false
	s.likeCount = 0
	s.commentCount = 0
	s.phase = PhaseReady
	s.view = ViewSearch
	if err != nil {
		s.lastErr = err.Error()
	}
	s.changed()
	return nil
}

// LoadGuide replaces the session wholesale with g, superseding any
// generation in flight.
func (s *State) LoadGuide(g *guide.Guide, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.installLocked(g, liked)
	s.changed()
}

func (s *State) installLocked(g *guide.Guide, liked bool) {
	p := g.Params
	s.guideID = g.ID
	s.params = &p
	s.data = append([]guide.PlaceRecord{}, g.Data...)
	s.likeCount = g.LikeCount
	s.commentCount = g.CommentCount
	s.liked = liked && s.identity != nil
	s.lastErr = ""
	s.phase = PhaseReady
	s.view = ViewSearch
}

// AppendData extends the in-memory guide for the find-more generation tok and
// returns the new length.
func (s *State) AppendData(tok Token, records []guide.PlaceRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.gen {
		return len(s.data), ErrStaleGeneration
	}
	s.data = append(s.data, records...)
	s.phase = PhaseReady
	s.changed()
	return len(s.data), nil
}

// Fail records err for the generation tok. A find-more failure keeps the
// guide on screen and returns to Ready with the error attached.
func (s *State) Fail(tok Token, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.gen {
		return ErrStaleGeneration
	}
	if s.phase == PhaseExtendingMore {
		s.phase = PhaseReady
	} else {
		s.phase = PhaseFailed
	}
	s.lastErr = err.Error()
	s.changed()
	return nil
}

// Note attaches a non-fatal error message without changing the phase.
func (s *State) Note(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
	} else {
		s.lastErr = err.Error()
	}
	s.changed()
}

// Reset clears the guide and returns to an empty search form.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.clearGuideLocked()
	s.phase = PhaseIdle
	s.view = ViewSearch
	s.changed()
}

// GoHome clears the guide and shows the home view.
func (s *State) GoHome(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.clearGuideLocked()
	s.phase = PhaseIdle
	s.view = ViewHome
	if err != nil {
		s.lastErr = err.Error()
	}
	s.changed()
}

func (s *State) clearGuideLocked() {
	s.guideID = ""
	s.params = nil
	s.data = nil
	s.liked = false
	s.likeCount = 0
	s.commentCount = 0
	s.lastErr = ""
}

// SetLike applies a toggle result if guideID is still displayed.
func (s *State) SetLike(guideID string, count int, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guideID != guideID {
		return
	}
	s.likeCount = count
	s.liked = liked
	s.lastErr = ""
	s.changed()
}

// SetLiked replaces the liked flag of the displayed guide.
func (s *State) SetLiked(guideID string, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guideID != guideID {
		return
	}
	s.liked = liked
	s.changed()
}

// BumpCommentCount records one more comment on guideID if it is displayed.
func (s *State) BumpCommentCount(guideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guideID != guideID {
		return
	}
	s.commentCount++
	s.lastErr = ""
	s.changed()
}

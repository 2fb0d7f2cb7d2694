package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the live sessions of the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*State{}}
}

func (r *Registry) Create() *State {
	s := NewState(uuid.NewString())
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session and marks it as in use.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// Delete drops the session. Subscribers keep their channels until they cancel.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle drops every session unused since cutoff and returns their ids.
func (r *Registry) EvictIdle(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

package session

import (
	"sort"

	"github.com/juju/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps charge point ids to their live session.
type Registry struct {
	sessions *xsync.MapOf[string, *Session]
}

func NewRegistry() *Registry {
	return &Registry{sessions: xsync.NewMapOf[string, *Session]()}
}

// Register stores s under id, replacing any session already there. The replaced
// session is returned so the caller can close it; its teardown will not evict s.
func (r *Registry) Register(id string, s *Session) (previous *Session, replaced bool) {
	previous, replaced = r.sessions.LoadAndStore(id, s)
	if replaced && previous == s {
		return nil, false
	}
	return previous, replaced
}

func (r *Registry) Lookup(id string) (*Session, bool) {
	return r.sessions.Load(id)
}

// Get is Lookup with an ErrNotConnected error for absent ids.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Load(id)
	if !ok {
		return nil, errors.Annotatef(ErrNotConnected, "%q", id)
	}
	return s, nil
}

// Unregister removes id only while it still maps to s.
func (r *Registry) Unregister(id string, s *Session) bool {
	removed := false
	r.sessions.Compute(id, func(current *Session, loaded bool) (*Session, bool) {
		if loaded && current == s {
			removed = true
			return nil, true
		}
		return current, !loaded
	})
	return removed
}

// ChargePointIds returns the registered ids in sorted order.
func (r *Registry) ChargePointIds() []string {
	ids := make([]string, 0, r.sessions.Size())
	r.sessions.Range(func(id string, _ *Session) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	return r.sessions.Size()
}

// CloseAll closes every registered session and waits for them to finish.
func (r *Registry) CloseAll() {
	var sessions []*Session
	r.sessions.Range(func(_ string, s *Session) bool {
		sessions = append(sessions, s)
		return true
	})
	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		<-s.Done()
	}
}

package registry

import (
	"sync/atomic"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// Store publishes the current Registry. Readers always see one complete
// snapshot; Replace swaps the pointer and never touches the old table.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore returns a Store publishing r. A nil r publishes an empty registry.
func NewStore(r *Registry) *Store {
	s := &Store{}
	s.Replace(r)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Registry {
	return s.current.Load()
}

// Replace publishes r and returns the snapshot it superseded.
func (s *Store) Replace(r *Registry) *Registry {
	if r == nil {
		r = Build(nil)
	}
	return s.current.Swap(r)
}

// Lookup resolves zone against the current snapshot.
func (s *Store) Lookup(zone string) (domain.ZoneConfig, error) {
	return s.Load().Lookup(zone)
}

// Names lists the zones of the current snapshot.
func (s *Store) Names() []string {
	return s.Load().Names()
}

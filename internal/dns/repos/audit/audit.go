// Package audit keeps an append-only journal of the updates applied through
// the engine.
package audit

import "github.com/haukened/rr-zoned/internal/dns/domain"

// Stats captures high-level counts of the journal.
type Stats struct {
	Zones       int
	Entries     uint64
	UpdatedUnix int64 // seconds since epoch of the last append
}

// Journal records applied changes per zone.
type Journal interface {
	Append(change domain.Change) error
	// List returns up to limit changes of zone, newest first. A limit of
	// zero or less returns all of them.
	List(zone string, limit int) ([]domain.Change, error)
	Stats() (Stats, error)
	Close() error
}

// Nop discards every change. It is used when no journal path is configured.
type Nop struct{}

func (Nop) Append(domain.Change) error                { return nil }
func (Nop) List(string, int) ([]domain.Change, error) { return nil, nil }
func (Nop) Stats() (Stats, error)                     { return Stats{}, nil }
func (Nop) Close() error                              { return nil }

var _ Journal = Nop{}

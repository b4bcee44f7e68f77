// Package zones ties the zone engine to the operator: it reads and edits
// zones, classifies every failure, and records applied changes.
package zones

import (
	"context"
	"fmt"
	"strings"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/registry"
	"github.com/haukened/rr-zoned/internal/dns/services/classifier"
)

const unknownUser = "unknown"

// Reader fetches the displayable records of a zone.
type Reader interface {
	Fetch(ctx context.Context, zone string) (domain.RecordSet, error)
}

// Updater applies one signed update. The Ack tells whether the server
// applied it.
type Updater interface {
	Apply(ctx context.Context, req domain.UpdateRequest) (domain.Ack, error)
}

// Journal keeps applied changes.
type Journal interface {
	Append(change domain.Change) error
	List(zone string, limit int) ([]domain.Change, error)
}

// RegistryStore publishes the zone table.
type RegistryStore interface {
	Names() []string
	Replace(r *registry.Registry) *registry.Registry
}

// Selection names one record picked for deletion. Only Owner and Type
// select what is removed; the rest is echoed back and journaled.
type Selection struct {
	Owner   string `json:"owner" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Content string `json:"content"`
	Class   string `json:"class"`
	TTL     uint32 `json:"ttl"`
}

// Settings are the defaults a client needs to build its forms.
type Settings struct {
	DefaultZone string   `json:"default_zone"`
	DefaultTTL  uint32   `json:"default_ttl"`
	Writable    []string `json:"writable_types"`
}

type Service struct {
	reader      Reader
	updater     Updater
	store       RegistryStore
	classifier  *classifier.Classifier
	journal     Journal
	clock       clock.Clock
	logger      log.Logger
	defaultZone string
	defaultTTL  uint32
	writable    []string
	strict      bool
}

type Options struct {
	Reader      Reader
	Updater     Updater
	Store       RegistryStore
	Classifier  *classifier.Classifier
	Journal     Journal
	Clock       clock.Clock
	Logger      log.Logger
	DefaultZone string
	DefaultTTL  uint32
	Writable    []string
	// StrictZones validates every zone on Reload instead of at first use.
	StrictZones bool
}

func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.New(opts.Logger)
	}
	var journal Journal = opts.Journal
	if journal == nil {
		journal = nopJournal{}
	}
	return &Service{
		reader:      opts.Reader,
		updater:     opts.Updater,
		store:       opts.Store,
		classifier:  opts.Classifier,
		journal:     journal,
		clock:       clock.OrReal(opts.Clock),
		logger:      opts.Logger,
		defaultZone: opts.DefaultZone,
		defaultTTL:  opts.DefaultTTL,
		writable:    append([]string(nil), opts.Writable...),
		strict:      opts.StrictZones,
	}
}

// Zone returns zone, or the default zone when zone is empty.
func (s *Service) Zone(zone string) string {
	if zone == "" {
		return s.defaultZone
	}
	return zone
}

// Records returns the displayable records of zone.
func (s *Service) Records(ctx context.Context, zone string) (domain.RecordSet, *classifier.Classification) {
	zone = s.Zone(zone)
	records, err := s.reader.Fetch(ctx, zone)
	if err != nil {
		return nil, s.classifier.Classify(err, zone)
	}
	return records, nil
}

// Add creates the record described by req. A zero TTL takes the default.
func (s *Service) Add(ctx context.Context, user string, req domain.UpdateRequest) (domain.Record, *classifier.Classification) {
	req.Zone = s.Zone(req.Zone)
	req.Action = domain.ActionAdd
	if req.TTL == 0 {
		req.TTL = s.defaultTTL
	}
	ack, err := s.updater.Apply(ctx, req)
	if err != nil {
		return domain.Record{}, s.classifier.Classify(err, req.Zone)
	}
	rec := req.Record()
	s.record(user, req.Zone, domain.ActionAdd, rec, ack)
	return rec, nil
}

// Delete removes the RRset of every selection in order. The first failure
// stops the batch; records removed before it stay removed.
func (s *Service) Delete(ctx context.Context, user, zone string, selections []Selection) ([]domain.Record, *classifier.Classification) {
	zone = s.Zone(zone)
	if len(selections) == 0 {
		return nil, s.classifier.Classify(domain.NewError(domain.KindNoRecordSelected, zone, nil), zone)
	}

	deleted := make([]domain.Record, 0, len(selections))
	for _, sel := range selections {
		req := domain.UpdateRequest{
			Zone:    zone,
			Owner:   sel.Owner,
			TTL:     sel.TTL,
			Type:    sel.Type,
			Content: sel.Content,
			Action:  domain.ActionDelete,
		}
		ack, err := s.updater.Apply(ctx, req)
		if err != nil {
			return deleted, s.classifier.Classify(err, zone)
		}
		rec := req.Record()
		if sel.Class != "" {
			rec.Class = strings.ToUpper(sel.Class)
		}
		deleted = append(deleted, rec)
		s.record(user, zone, domain.ActionDelete, rec, ack)
	}
	return deleted, nil
}

// record logs an applied change and journals it. A change the server
// declined is logged as such and never journaled. A journal failure is
// logged and does not undo or fail the write.
func (s *Service) record(user, zone string, action domain.Action, rec domain.Record, ack domain.Ack) {
	if user == "" {
		user = unknownUser
	}
	fields := map[string]any{
		"zone":   zone,
		"user":   user,
		"action": string(action),
	}
	text := rec.String()
	if !ack.Applied {
		fields["rcode"] = ack.Rcode
		s.logger.Warn(fields, fmt.Sprintf("Record '%s' %s by '%s' was not applied by DNS (%s)", text, action, user, ack.Rcode))
		return
	}

	verb := "added"
	if action == domain.ActionDelete {
		verb = "removed"
	}
	s.logger.Info(fields, fmt.Sprintf("Record '%s' %s by '%s'", text, verb, user))

	change := domain.Change{
		Time:   s.clock.Now().UTC(),
		User:   user,
		Zone:   zone,
		Action: action,
		Record: rec,
	}
	if err := s.journal.Append(change); err != nil {
		s.logger.Warn(map[string]any{"zone": zone, "error": err}, "failed to journal change")
	}
}

// History returns up to limit journaled changes of zone, newest first.
func (s *Service) History(zone string, limit int) ([]domain.Change, *classifier.Classification) {
	zone = s.Zone(zone)
	changes, err := s.journal.List(zone, limit)
	if err != nil {
		return nil, s.classifier.Classify(err, zone)
	}
	return changes, nil
}

// Zones lists the configured zone names in ascending order.
func (s *Service) Zones() []string {
	return s.store.Names()
}

func (s *Service) Settings() Settings {
	return Settings{
		DefaultZone: s.defaultZone,
		DefaultTTL:  s.defaultTTL,
		Writable:    append([]string(nil), s.writable...),
	}
}

// Reload builds a registry from entries and publishes it. With strict zones
// an invalid table is refused and the current one stays in place.
func (s *Service) Reload(entries map[string]string) *classifier.Classification {
	next := registry.Build(entries)
	if s.strict {
		if err := next.Validate(); err != nil {
			return s.classifier.Classify(err, "")
		}
	}
	s.store.Replace(next)
	s.logger.Info(map[string]any{"zones": next.Len()}, "zone registry reloaded")
	return nil
}

type nopJournal struct{}

func (nopJournal) Append(domain.Change) error                { return nil }
func (nopJournal) List(string, int) ([]domain.Change, error) { return nil, nil }

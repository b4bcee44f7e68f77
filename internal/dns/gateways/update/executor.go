// Package update applies TSIG-signed RFC 2136 dynamic updates to the
// authoritative server of a zone.
package update

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/common/tsig"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/gateways/transport"
)

// Fudge is the TSIG time window, in seconds, granted to the server.
const Fudge = 300

const (
	errRegistryRequired = "zone registry is required"
	errUnknownAction    = "unknown update action %q"
	errMissingType      = "record type is required"
	errMissingContent   = "record content is required"
	errMissingTTL       = "record TTL is required"
	errUnknownType      = "unknown record type %q"
	errTypeNotWritable  = "record type %s is not writable"
	errBadOwner         = "invalid owner: %w"
	errOwnerOutOfZone   = "owner %s is outside zone %s"
	errBadRecord        = "invalid %s record %q: %w"
	errNoRecord         = "no record in %q"
	errRejected         = "server answered %s"
	errUnsupportedAlg   = "unsupported signing algorithm %q"
)

// ZoneLookup resolves a zone name to its configuration.
type ZoneLookup interface {
	Lookup(zone string) (domain.ZoneConfig, error)
}

// Options configures an Executor.
type Options struct {
	// required parameters
	Registry ZoneLookup
	// Writable is the allow-list of types an add may create. Empty allows any.
	Writable []string
	// Timeout bounds a whole exchange. Zero waits forever.
	Timeout time.Duration
	// options to inject for testing purposes
	Dial   transport.DialFunc
	Clock  clock.Clock
	Logger log.Logger
}

// Executor builds, signs and sends update transactions.
type Executor struct {
	registry ZoneLookup
	writable []string
	timeout  time.Duration
	dial     transport.DialFunc
	clock    clock.Clock
	logger   log.Logger
}

// NewExecutor returns an Executor for opts.
func NewExecutor(opts Options) (*Executor, error) {
	if opts.Registry == nil {
		return nil, errors.New(errRegistryRequired)
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	writable := make([]string, 0, len(opts.Writable))
	for _, t := range opts.Writable {
		writable = append(writable, strings.ToUpper(t))
	}
	return &Executor{
		registry: opts.Registry,
		writable: writable,
		timeout:  opts.Timeout,
		dial:     opts.Dial,
		clock:    clock.OrReal(opts.Clock),
		logger:   log.WithFields(opts.Logger, map[string]any{"component": "update"}),
	}, nil
}

// Apply sends req to the zone's server as one signed update.
//
// An add inserts one record. A delete removes the whole RRset of req.Type
// under req.Owner whatever req.Content says; removing an absent RRset
// succeeds. The action is checked before anything else so an invalid one
// never reaches the network.
//
// NOTAUTH and FORMERR answers are errors. Any other non-success rcode is
// returned in the Ack with Applied unset.
func (e *Executor) Apply(ctx context.Context, req domain.UpdateRequest) (domain.Ack, error) {
	if req.Action != domain.ActionAdd && req.Action != domain.ActionDelete {
		return domain.Ack{}, domain.Errorf(domain.KindInvalidAction, req.Zone, errUnknownAction, req.Action)
	}

	cfg, err := e.registry.Lookup(req.Zone)
	if err != nil {
		return domain.Ack{}, err
	}

	origin := utils.Fqdn(utils.ZoneKey(req.Zone))
	m, err := e.build(origin, req)
	if err != nil {
		return domain.Ack{}, err
	}

	alg := tsig.Resolve(cfg.Algorithm)
	if !alg.Valid() {
		// the keyring would refuse to sign as well; the configured name is
		// the more useful cause
		return domain.Ack{}, domain.NewError(domain.KindSigning, req.Zone,
			fmt.Errorf(errUnsupportedAlg+": %w", cfg.Algorithm, dns.ErrKeyAlg))
	}
	m.SetTsig(origin, string(alg), Fudge, e.clock.Now().Unix())

	ctx, cancel := transport.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.exchange(ctx, m, cfg, origin)
	if err != nil {
		return domain.Ack{}, transport.Classify(err, req.Zone, domain.KindTransferFormat)
	}

	rcode := dns.RcodeToString[resp.Rcode]
	fields := map[string]any{
		"zone":   req.Zone,
		"action": string(req.Action),
		"owner":  req.Owner,
		"type":   req.Type,
		"rcode":  rcode,
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
		e.logger.Debug(fields, "update accepted")
		return domain.Ack{Rcode: rcode, Applied: true}, nil
	case dns.RcodeNotAuth:
		return domain.Ack{}, domain.Errorf(domain.KindAuthRejected, req.Zone, errRejected, rcode)
	case dns.RcodeFormatError:
		return domain.Ack{}, domain.Errorf(domain.KindTransferFormat, req.Zone, errRejected, rcode)
	default:
		e.logger.Warn(fields, "update answered with non-success rcode")
		return domain.Ack{Rcode: rcode}, nil
	}
}

// build assembles the unsigned update for req, scoped to origin.
func (e *Executor) build(origin string, req domain.UpdateRequest) (*dns.Msg, error) {
	rrtype, err := e.recordType(req)
	if err != nil {
		return nil, err
	}
	owner, err := utils.NormalizeOwner(req.Owner)
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, req.Zone, fmt.Errorf(errBadOwner, err))
	}
	name := utils.Qualify(owner, origin)
	if !dns.IsSubDomain(origin, name) {
		return nil, domain.Errorf(domain.KindMalformedInput, req.Zone, errOwnerOutOfZone, name, origin)
	}

	m := new(dns.Msg)
	m.SetUpdate(origin)

	switch req.Action {
	case domain.ActionAdd:
		rr, err := parseRecord(origin, name, rrtype, req)
		if err != nil {
			return nil, err
		}
		m.Insert([]dns.RR{rr})
	case domain.ActionDelete:
		m.RemoveRRset([]dns.RR{&dns.ANY{Hdr: dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET}}})
	}
	return m, nil
}

// recordType validates the type of req. Unknown mnemonics are an internal
// fault since forms only offer configured types.
func (e *Executor) recordType(req domain.UpdateRequest) (uint16, error) {
	mnemonic := strings.ToUpper(strings.TrimSpace(req.Type))
	if mnemonic == "" {
		return 0, domain.NewError(domain.KindMalformedInput, req.Zone, errors.New(errMissingType))
	}
	rrtype, ok := dns.StringToType[mnemonic]
	if !ok {
		return 0, domain.Errorf(domain.KindUnknownRecordType, req.Zone, errUnknownType, req.Type)
	}
	if req.Action == domain.ActionAdd && len(e.writable) > 0 && !slices.Contains(e.writable, mnemonic) {
		return 0, domain.Errorf(domain.KindMalformedInput, req.Zone, errTypeNotWritable, mnemonic)
	}
	return rrtype, nil
}

// parseRecord turns the content of an add into a record under name. Relative
// names inside the content resolve against origin.
func parseRecord(origin, name string, rrtype uint16, req domain.UpdateRequest) (dns.RR, error) {
	content := strings.TrimSpace(req.Content)
	switch {
	case content == "":
		return nil, domain.NewError(domain.KindMalformedInput, req.Zone, errors.New(errMissingContent))
	case req.TTL == 0:
		return nil, domain.NewError(domain.KindMalformedInput, req.Zone, errors.New(errMissingTTL))
	}

	typ := dns.TypeToString[rrtype]
	line := fmt.Sprintf("%s %d IN %s %s", name, req.TTL, typ, content)
	zp := dns.NewZoneParser(strings.NewReader(line), origin, "")
	rr, ok := zp.Next()
	if err := zp.Err(); err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, req.Zone, fmt.Errorf(errBadRecord, typ, content, err))
	}
	if !ok || rr == nil {
		return nil, domain.Errorf(domain.KindMalformedInput, req.Zone, errNoRecord, content)
	}
	if rr.Header().Rrtype != rrtype {
		return nil, domain.Errorf(domain.KindMalformedInput, req.Zone, errBadRecord, typ, content, errors.New("type mismatch"))
	}
	return rr, nil
}

// exchange sends m over a fresh TCP session and returns the server's answer.
// The keyring holds a single secret named after the zone.
func (e *Executor) exchange(ctx context.Context, m *dns.Msg, cfg domain.ZoneConfig, origin string) (*dns.Msg, error) {
	conn, err := transport.Open(ctx, e.dial, cfg.Server())
	if err != nil {
		return nil, domain.NewError(domain.KindTransport, cfg.Name, err)
	}
	defer conn.Close()

	client := &dns.Client{
		Net:          transport.Network,
		Timeout:      transport.IOTimeout(ctx),
		TsigProvider: tsig.NewKeyring(origin, cfg.Secret),
	}
	resp, _, err := client.ExchangeWithConnContext(ctx, m, &dns.Conn{Conn: conn})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, err)
		}
		return nil, err
	}
	return resp, nil
}

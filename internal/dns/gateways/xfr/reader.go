// Package xfr reads a zone from its authoritative server with a full zone
// transfer and returns the records an operator may see.
package xfr

import (
	"context"
	"errors"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/gateways/transport"
	"github.com/haukened/rr-zoned/internal/dns/repos/zone"
)

const (
	errRegistryRequired = "zone registry is required"
)

// ZoneLookup resolves a zone name to its configuration.
type ZoneLookup interface {
	Lookup(zone string) (domain.ZoneConfig, error)
}

// Options configures a Reader.
type Options struct {
	// required parameters
	Registry ZoneLookup
	// DefaultZone is read when Fetch is called without a zone.
	DefaultZone string
	// Displayed is the allow-list of record types returned by Fetch.
	Displayed []string
	// Timeout bounds a whole transfer. Zero waits forever.
	Timeout time.Duration
	// options to inject for testing purposes
	Dial   transport.DialFunc
	Logger log.Logger
}

// Reader performs AXFR against the server configured for a zone.
type Reader struct {
	registry    ZoneLookup
	defaultZone string
	displayed   []string
	timeout     time.Duration
	dial        transport.DialFunc
	logger      log.Logger
}

// NewReader returns a Reader for opts.
func NewReader(opts Options) (*Reader, error) {
	if opts.Registry == nil {
		return nil, errors.New(errRegistryRequired)
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Reader{
		registry:    opts.Registry,
		defaultZone: opts.DefaultZone,
		displayed:   append([]string(nil), opts.Displayed...),
		timeout:     opts.Timeout,
		dial:        opts.Dial,
		logger:      log.WithFields(opts.Logger, map[string]any{"component": "xfr"}),
	}, nil
}

// Fetch transfers zoneName, or the default zone when empty, and returns its
// displayable records ordered by type. Records of the same type keep their
// transfer order.
func (r *Reader) Fetch(ctx context.Context, zoneName string) (domain.RecordSet, error) {
	if zoneName == "" {
		zoneName = r.defaultZone
	}
	cfg, err := r.registry.Lookup(zoneName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := transport.WithTimeout(ctx, r.timeout)
	defer cancel()

	rrs, err := r.transfer(ctx, zoneName, cfg.Server())
	if err != nil {
		return nil, transport.Classify(err, zoneName, domain.KindTransferFormat)
	}

	z, err := zone.FromTransfer(utils.ZoneKey(zoneName), rrs)
	if err != nil {
		return nil, domain.NewError(domain.KindTransferFormat, zoneName, err)
	}

	records := z.Records().Filter(r.displayed)
	records.SortByType()

	r.logger.Debug(map[string]any{
		"zone":        zoneName,
		"origin":      z.Origin(),
		"server":      cfg.Server(),
		"transferred": len(rrs),
		"owners":      z.Len(),
		"displayed":   len(records),
		"types":       records.Types(),
	}, "zone transferred")
	return records, nil
}

// transfer runs one AXFR and collects every record of every envelope. The
// channel is always drained so the transfer goroutine can exit.
func (r *Reader) transfer(ctx context.Context, zoneName, server string) ([]dns.RR, error) {
	conn, err := transport.Open(ctx, r.dial, server)
	if err != nil {
		return nil, domain.NewError(domain.KindTransport, zoneName, err)
	}
	defer conn.Close()

	timeout := transport.IOTimeout(ctx)
	t := &dns.Transfer{
		Conn:         &dns.Conn{Conn: conn},
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	m := new(dns.Msg)
	m.SetAxfr(utils.Fqdn(utils.ZoneKey(zoneName)))

	envelopes, err := t.In(m, server)
	if err != nil {
		return nil, err
	}

	var (
		rrs      []dns.RR
		firstErr error
	)
	for env := range envelopes {
		if env.Error != nil {
			if firstErr == nil {
				firstErr = env.Error
			}
			continue
		}
		rrs = append(rrs, env.RR...)
	}
	if firstErr != nil {
		// a cancelled context surfaces as a closed connection; report the cause
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, firstErr)
		}
		return nil, firstErr
	}
	return rrs, nil
}

// Package zone holds the in-memory form of a transferred zone and flattens it
// into display records.
package zone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var errNoSOA = errors.New("transfer has no SOA at the zone origin")

const errOutOfZone = "record %q is outside zone %q"

// Zone is a transferred zone. Owner nodes keep the order in which they first
// appeared in the transfer and each node keeps its RRsets in first-seen order.
type Zone struct {
	origin string
	nodes  []*node
	index  map[string]*node
}

type node struct {
	name  string
	sets  []*rrset
	index map[rrsetKey]*rrset
}

type rrsetKey struct {
	class uint16
	rtype uint16
}

type rrset struct {
	rrsetKey
	ttl  uint32
	data []string
}

// FromTransfer builds a Zone for origin from the records of an AXFR. The
// closing SOA of the transfer collapses into the opening one. Every record
// must sit at or below origin and the origin must carry an SOA.
func FromTransfer(origin string, rrs []dns.RR) (*Zone, error) {
	z := &Zone{
		origin: utils.Fqdn(origin),
		index:  make(map[string]*node),
	}
	for _, rr := range rrs {
		if rr == nil {
			continue
		}
		hdr := rr.Header()
		name := strings.ToLower(dns.Fqdn(hdr.Name))
		if !dns.IsSubDomain(z.origin, name) {
			return nil, fmt.Errorf(errOutOfZone, hdr.Name, z.origin)
		}
		z.add(name, hdr, rdataText(rr, z.origin))
	}
	if !z.hasSOA() {
		return nil, errNoSOA
	}
	return z, nil
}

func (z *Zone) add(name string, hdr *dns.RR_Header, text string) {
	n, ok := z.index[name]
	if !ok {
		n = &node{name: name, index: make(map[rrsetKey]*rrset)}
		z.index[name] = n
		z.nodes = append(z.nodes, n)
	}
	key := rrsetKey{class: hdr.Class, rtype: hdr.Rrtype}
	set, ok := n.index[key]
	if !ok {
		set = &rrset{rrsetKey: key, ttl: hdr.Ttl}
		n.index[key] = set
		n.sets = append(n.sets, set)
	}
	// RRsets carry one TTL; the lowest seen wins.
	if hdr.Ttl < set.ttl {
		set.ttl = hdr.Ttl
	}
	for _, d := range set.data {
		if d == text {
			return
		}
	}
	set.data = append(set.data, text)
}

func (z *Zone) hasSOA() bool {
	n, ok := z.index[z.origin]
	if !ok {
		return false
	}
	_, ok = n.index[rrsetKey{class: dns.ClassINET, rtype: dns.TypeSOA}]
	return ok
}

// Origin returns the absolute zone origin.
func (z *Zone) Origin() string {
	return z.origin
}

// Len returns the number of owner names in the zone.
func (z *Zone) Len() int {
	return len(z.nodes)
}

// Records flattens the zone into one Record per rdata item, walking owner
// names, then RRsets, then data. Owner names are relative to the origin.
func (z *Zone) Records() domain.RecordSet {
	var out domain.RecordSet
	for _, n := range z.nodes {
		owner := utils.Relativize(n.name, z.origin)
		for _, set := range n.sets {
			for _, d := range set.data {
				out = append(out, domain.Record{
					Owner:   owner,
					Class:   dns.Class(set.class).String(),
					Type:    dns.Type(set.rtype).String(),
					TTL:     set.ttl,
					Content: d,
				})
			}
		}
	}
	return out
}

// rdataText renders only the rdata portion of rr in presentation format.
// Domain names inside the rdata are written relative to origin.
func rdataText(rr dns.RR, origin string) string {
	rr = relativeRdata(rr, origin)
	return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
}

// relativeRdata returns a copy of rr whose rdata names are relative to
// origin. Names outside origin stay absolute. Types without names in their
// rdata are returned as is.
func relativeRdata(rr dns.RR, origin string) dns.RR {
	rel := func(name string) string { return utils.Relativize(name, origin) }
	switch v := rr.(type) {
	case *dns.NS:
		c := *v
		c.Ns = rel(v.Ns)
		return &c
	case *dns.CNAME:
		c := *v
		c.Target = rel(v.Target)
		return &c
	case *dns.DNAME:
		c := *v
		c.Target = rel(v.Target)
		return &c
	case *dns.PTR:
		c := *v
		c.Ptr = rel(v.Ptr)
		return &c
	case *dns.MX:
		c := *v
		c.Mx = rel(v.Mx)
		return &c
	case *dns.SRV:
		c := *v
		c.Target = rel(v.Target)
		return &c
	case *dns.SOA:
		c := *v
		c.Ns = rel(v.Ns)
		c.Mbox = rel(v.Mbox)
		return &c
	}
	return rr
}

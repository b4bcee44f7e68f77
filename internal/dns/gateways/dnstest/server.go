// Package dnstest runs an in-process authoritative server for tests. It serves
// AXFR from an in-memory zone and applies TSIG-signed RFC 2136 updates to it.
// Secrets are checked with tsig.Keyring so every supported algorithm works.
package dnstest

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/tsig"
)

// Server is a TCP-only authoritative server for one zone.
type Server struct {
	// Addr is the host:port the server listens on.
	Addr string

	origin string
	server *dns.Server

	mu       sync.Mutex
	records  []dns.RR
	requests int
	updates  []*dns.Msg
	rcode    int
	badXfr   bool
	stalled  bool
	stall    chan struct{}
}

// NewServer starts a server for origin holding records, given in zone file
// syntax. The first record must be the zone SOA. secrets maps TSIG key names
// to base64 secrets. The server is shut down when the test ends.
func NewServer(t testing.TB, origin string, secrets map[string]string, records ...string) *Server {
	t.Helper()

	s := &Server{
		origin: dns.Fqdn(strings.ToLower(origin)),
		rcode:  dns.RcodeSuccess,
	}
	for _, line := range records {
		rr, err := dns.NewRR(line)
		if err != nil {
			t.Fatalf("dnstest: bad record %q: %v", line, err)
		}
		s.records = append(s.records, rr)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("dnstest: listen: %v", err)
	}
	s.Addr = l.Addr().String()

	started := make(chan struct{})
	s.server = &dns.Server{
		Listener:          l,
		Net:               "tcp",
		Handler:           dns.HandlerFunc(s.handle),
		MsgAcceptFunc:     acceptUpdates,
		NotifyStartedFunc: func() { close(started) },
	}
	if secrets != nil {
		s.server.TsigProvider = tsig.Keyring(secrets)
	}
	go func() { _ = s.server.ActivateAndServe() }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dnstest: server did not start")
	}

	t.Cleanup(func() {
		s.Release()
		_ = s.server.Shutdown()
	})
	return s
}

// Host returns the listening IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr)
	return host
}

// Port returns the listening port.
func (s *Server) Port() string {
	_, port, _ := net.SplitHostPort(s.Addr)
	return port
}

// Stall makes every following request block until Release is called.
func (s *Server) Stall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stalled {
		s.stall = make(chan struct{})
		s.stalled = true
	}
}

// Release unblocks stalled requests.
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stalled {
		close(s.stall)
		s.stalled = false
	}
}

// SetUpdateRcode makes the server answer authenticated updates with rcode
// without applying them.
func (s *Server) SetUpdateRcode(rcode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rcode = rcode
}

// BreakTransfer makes AXFR answers start with a non-SOA record.
func (s *Server) BreakTransfer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badXfr = true
}

// Requests returns the number of requests the server has seen.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Updates returns the authenticated update messages received so far.
func (s *Server) Updates() []*dns.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*dns.Msg(nil), s.updates...)
}

// Lookup returns the rdata texts of the RRset owner/rrtype in the zone.
func (s *Server) Lookup(owner string, rrtype uint16) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, rr := range s.records {
		h := rr.Header()
		if strings.EqualFold(h.Name, owner) && h.Rrtype == rrtype {
			out = append(out, strings.TrimPrefix(rr.String(), h.String()))
		}
	}
	return out
}

// acceptUpdates lets dynamic updates through to the handler. The default
// accept func answers every opcode but QUERY and NOTIFY with NOTIMP.
func acceptUpdates(dh dns.Header) dns.MsgAcceptAction {
	if dh.Bits&(1<<15) == 0 && int(dh.Bits>>11)&0xF == dns.OpcodeUpdate {
		return dns.MsgAccept
	}
	return dns.DefaultMsgAcceptFunc(dh)
}

func (s *Server) handle(w dns.ResponseWriter, req *dns.Msg) {
	s.mu.Lock()
	s.requests++
	stall, stalled := s.stall, s.stalled
	s.mu.Unlock()
	if stalled {
		<-stall
	}

	m := new(dns.Msg)
	m.SetReply(req)

	switch req.Opcode {
	case dns.OpcodeUpdate:
		s.handleUpdate(w, req, m)
		return
	case dns.OpcodeQuery:
		if len(req.Question) == 1 && req.Question[0].Qtype == dns.TypeAXFR {
			s.handleAXFR(req, m)
		} else {
			m.Rcode = dns.RcodeNotImplemented
		}
	}
	_ = w.WriteMsg(m)
}

func (s *Server) handleAXFR(req *dns.Msg, m *dns.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.EqualFold(req.Question[0].Name, s.origin) {
		m.Rcode = dns.RcodeNotAuth
		return
	}
	if s.badXfr {
		m.Answer = append(m.Answer, s.records[1:]...)
		return
	}
	// RFC 5936: the SOA opens and closes the transfer.
	m.Answer = append(m.Answer, s.records...)
	m.Answer = append(m.Answer, s.records[0])
}

func (s *Server) handleUpdate(w dns.ResponseWriter, req *dns.Msg, m *dns.Msg) {
	t := req.IsTsig()
	if t == nil || w.TsigStatus() != nil {
		m.Rcode = dns.RcodeNotAuth
		_ = w.WriteMsg(m)
		return
	}

	s.mu.Lock()
	rcode := s.rcode
	if rcode == dns.RcodeSuccess {
		s.apply(req.Ns)
		s.updates = append(s.updates, req.Copy())
	}
	s.mu.Unlock()

	m.Rcode = rcode
	m.SetTsig(t.Hdr.Name, t.Algorithm, 300, time.Now().Unix())
	_ = w.WriteMsg(m)
}

// apply performs the RFC 2136 section 3.4.2 update semantics on the zone.
func (s *Server) apply(ns []dns.RR) {
	for _, rr := range ns {
		h := rr.Header()
		switch h.Class {
		case dns.ClassANY:
			s.records = remove(s.records, func(r dns.RR) bool {
				rh := r.Header()
				if !strings.EqualFold(rh.Name, h.Name) {
					return false
				}
				return h.Rrtype == dns.TypeANY || rh.Rrtype == h.Rrtype
			})
		case dns.ClassNONE:
			s.records = remove(s.records, func(r dns.RR) bool {
				c := dns.Copy(rr)
				c.Header().Class = dns.ClassINET
				return dns.IsDuplicate(r, c)
			})
		default:
			exists := false
			for _, r := range s.records {
				if dns.IsDuplicate(r, rr) {
					exists = true
					break
				}
			}
			if !exists {
				s.records = append(s.records, rr)
			}
		}
	}
}

func remove(rrs []dns.RR, match func(dns.RR) bool) []dns.RR {
	out := rrs[:0]
	for i, r := range rrs {
		// the zone SOA is never removed
		if i == 0 || !match(r) {
			out = append(out, r)
		}
	}
	return out
}

package dnstest

import (
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-zoned/internal/dns/common/tsig"
)

const secret = "c2VjcmV0"

func newZone(t *testing.T) *Server {
	return NewServer(t, "example.org", map[string]string{"example.org.": secret},
		"example.org. 3600 IN SOA ns1.example.org. admin.example.org. 1 7200 3600 1209600 300",
		"www.example.org. 300 IN A 192.0.2.1",
		"www.example.org. 300 IN A 192.0.2.2",
	)
}

func exchange(t *testing.T, s *Server, m *dns.Msg) *dns.Msg {
	t.Helper()
	c := &dns.Client{Net: "tcp", Timeout: 2 * time.Second, TsigProvider: tsig.NewKeyring("example.org.", secret)}
	resp, _, err := c.Exchange(m, s.Addr)
	require.NoError(t, err)
	return resp
}

func signedUpdate(rrs ...dns.RR) *dns.Msg {
	m := new(dns.Msg)
	m.SetUpdate("example.org.")
	m.Ns = append(m.Ns, rrs...)
	m.SetTsig("example.org.", dns.HmacSHA256, 300, time.Now().Unix())
	return m
}

func TestServer_AppliesSignedUpdates(t *testing.T) {
	s := newZone(t)

	add, err := dns.NewRR("new.example.org. 60 IN A 192.0.2.9")
	require.NoError(t, err)
	resp := exchange(t, s, signedUpdate(add))
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	assert.Equal(t, []string{"192.0.2.9"}, s.Lookup("new.example.org.", dns.TypeA))

	del := new(dns.Msg)
	del.SetUpdate("example.org.")
	del.RemoveRRset([]dns.RR{&dns.ANY{Hdr: dns.RR_Header{Name: "www.example.org.", Rrtype: dns.TypeA, Class: dns.ClassINET}}})
	del.SetTsig("example.org.", dns.HmacSHA256, 300, time.Now().Unix())
	resp = exchange(t, s, del)
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	assert.Empty(t, s.Lookup("www.example.org.", dns.TypeA))

	assert.Len(t, s.Updates(), 2)
	assert.Equal(t, 2, s.Requests())
}

func TestServer_UnsignedUpdateIsNotAuth(t *testing.T) {
	s := newZone(t)

	m := new(dns.Msg)
	m.SetUpdate("example.org.")
	m.RemoveRRset([]dns.RR{&dns.ANY{Hdr: dns.RR_Header{Name: "www.example.org.", Rrtype: dns.TypeA, Class: dns.ClassINET}}})
	resp := exchange(t, s, m)

	assert.Equal(t, dns.RcodeNotAuth, resp.Rcode)
	assert.Len(t, s.Lookup("www.example.org.", dns.TypeA), 2)
	assert.Empty(t, s.Updates())
}

func TestServer_UpdateRcodeOverride(t *testing.T) {
	s := newZone(t)
	s.SetUpdateRcode(dns.RcodeRefused)

	add, err := dns.NewRR("new.example.org. 60 IN A 192.0.2.9")
	require.NoError(t, err)
	resp := exchange(t, s, signedUpdate(add))

	assert.Equal(t, dns.RcodeRefused, resp.Rcode)
	assert.Empty(t, s.Lookup("new.example.org.", dns.TypeA))
}

func TestAcceptUpdates(t *testing.T) {
	update := dns.Header{Bits: uint16(dns.OpcodeUpdate) << 11, Qdcount: 1, Nscount: 3, Arcount: 1}
	assert.Equal(t, dns.MsgAccept, acceptUpdates(update))

	response := dns.Header{Bits: 1<<15 | uint16(dns.OpcodeUpdate)<<11}
	assert.Equal(t, dns.MsgIgnore, acceptUpdates(response))

	query := dns.Header{Qdcount: 1}
	assert.Equal(t, dns.MsgAccept, acceptUpdates(query))
}

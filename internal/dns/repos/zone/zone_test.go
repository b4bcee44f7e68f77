package zone

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

func mustRRs(t *testing.T, lines ...string) []dns.RR {
	t.Helper()
	rrs := make([]dns.RR, 0, len(lines))
	for _, l := range lines {
		rr, err := dns.NewRR(l)
		require.NoError(t, err, l)
		rrs = append(rrs, rr)
	}
	return rrs
}

const soa = "example.org. 3600 IN SOA ns1.example.org. admin.example.org. 1 7200 3600 1209600 300"

func TestFromTransfer_Records(t *testing.T) {
	rrs := mustRRs(t,
		soa,
		"example.org. 300 IN A 192.0.2.1",
		"www.example.org. 300 IN A 192.0.2.10",
		"WWW.example.org. 120 IN A 192.0.2.11",
		"example.org. 300 IN MX 10 mail.example.org.",
		"www.example.org. 300 IN TXT \"hello world\"",
		soa,
	)

	z, err := FromTransfer("example.org", rrs)
	require.NoError(t, err)
	assert.Equal(t, "example.org.", z.Origin())
	assert.Equal(t, 2, z.Len())

	got := z.Records()
	want := domain.RecordSet{
		{Owner: "@", Class: "IN", Type: "SOA", TTL: 3600, Content: "ns1 admin 1 7200 3600 1209600 300"},
		{Owner: "@", Class: "IN", Type: "A", TTL: 300, Content: "192.0.2.1"},
		{Owner: "@", Class: "IN", Type: "MX", TTL: 300, Content: "10 mail"},
		{Owner: "www", Class: "IN", Type: "A", TTL: 120, Content: "192.0.2.10"},
		{Owner: "www", Class: "IN", Type: "A", TTL: 120, Content: "192.0.2.11"},
		{Owner: "www", Class: "IN", Type: "TXT", TTL: 300, Content: `"hello world"`},
	}
	assert.Equal(t, want, got)
}

func TestFromTransfer_RelativeRdataNames(t *testing.T) {
	z, err := FromTransfer("example.org", mustRRs(t,
		soa,
		"example.org. 300 IN NS ns1.example.org.",
		"example.org. 300 IN NS ns.example.net.",
		"alias.example.org. 300 IN CNAME example.org.",
		"ext.example.org. 300 IN CNAME cdn.example.net.",
		"_sip._tcp.example.org. 300 IN SRV 10 5 5060 sip.example.org.",
		"1.example.org. 300 IN PTR host.example.org.",
		"example.org. 300 IN TXT \"mail.example.org.\"",
	))
	require.NoError(t, err)

	got := map[string]string{}
	for _, r := range z.Records() {
		got[r.Owner+" "+r.Type+" "+r.Content] = r.Content
	}
	for _, want := range []string{
		"@ NS ns1",
		"@ NS ns.example.net.",
		"alias CNAME @",
		"ext CNAME cdn.example.net.",
		"_sip._tcp SRV 10 5 5060 sip",
		"1 PTR host",
		`@ TXT "mail.example.org."`,
	} {
		assert.Contains(t, got, want)
	}
}

func TestFromTransfer_Errors(t *testing.T) {
	tests := []struct {
		name string
		rrs  []string
		want string
	}{
		{"empty transfer", nil, "no SOA"},
		{"soa not at origin", []string{"sub.example.org. 60 IN SOA ns1. admin. 1 2 3 4 5"}, "no SOA"},
		{"out of zone record", []string{soa, "www.example.net. 60 IN A 192.0.2.1"}, "outside zone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromTransfer("example.org.", mustRRs(t, tt.rrs...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromTransfer_RootOrigin(t *testing.T) {
	z, err := FromTransfer("", mustRRs(t, ". 60 IN SOA a.root. b.root. 1 2 3 4 5", "org. 60 IN NS a0.org."))
	require.NoError(t, err)
	recs := z.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "@", recs[0].Owner)
	assert.Equal(t, "org.", recs[1].Owner)
}

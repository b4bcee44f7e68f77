package tsig

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		input string
		want  Algorithm
	}{
		{"hmac-md5", dns.HmacMD5},
		{"HMAC-MD5", dns.HmacMD5},
		{"hmac-md5.sig-alg.reg.int.", dns.HmacMD5},
		{"hmac-sha1", dns.HmacSHA1},
		{"Hmac-Sha224", dns.HmacSHA224},
		{"hmac-sha256", dns.HmacSHA256},
		{"hmac-sha256.", dns.HmacSHA256},
		{" hmac-sha384 ", dns.HmacSHA384},
		{"HMAC-SHA512", dns.HmacSHA512},
		{"hmac-banana", None},
		{"", None},
		{"sha256", None},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.input))
		})
	}
}

func TestAlgorithm_ValidAndString(t *testing.T) {
	assert.False(t, None.Valid())
	assert.Equal(t, "none", None.String())

	alg := Resolve("hmac-sha256")
	assert.True(t, alg.Valid())
	assert.Equal(t, dns.HmacSHA256, alg.String())
}

// Package tsig maps configured signing-algorithm names onto the HMAC
// algorithms understood by miekg/dns.
package tsig

import (
	"strings"

	"github.com/miekg/dns"
)

// Algorithm is a TSIG algorithm name in the fully qualified form used on the wire.
type Algorithm string

// None is returned for unsupported names. Signing with it always fails.
const None Algorithm = ""

var supported = map[string]Algorithm{
	"hmac-md5":                 dns.HmacMD5,
	"hmac-md5.sig-alg.reg.int": dns.HmacMD5,
	"hmac-sha1":                dns.HmacSHA1,
	"hmac-sha224":              dns.HmacSHA224,
	"hmac-sha256":              dns.HmacSHA256,
	"hmac-sha384":              dns.HmacSHA384,
	"hmac-sha512":              dns.HmacSHA512,
}

// Resolve returns the Algorithm for a configured name, ignoring case and a
// trailing dot. Unknown names yield None; Resolve never fails.
func Resolve(name string) Algorithm {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if alg, ok := supported[key]; ok {
		return alg
	}
	return None
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a != None
}

func (a Algorithm) String() string {
	if a == None {
		return "none"
	}
	return string(a)
}

package tsig

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"

	"github.com/miekg/dns"
)

// Keyring maps TSIG key names to base64 secrets and signs with every
// Algorithm Resolve can return, HMAC-MD5 included. It implements
// dns.TsigProvider.
type Keyring map[string]string

// NewKeyring returns a keyring holding a single secret under name.
func NewKeyring(name, secret string) Keyring {
	return Keyring{dns.CanonicalName(name): secret}
}

// Generate returns the MAC of msg for the key and algorithm named in t.
func (k Keyring) Generate(msg []byte, t *dns.TSIG) ([]byte, error) {
	secret, ok := k[dns.CanonicalName(t.Hdr.Name)]
	if !ok {
		return nil, dns.ErrSecret
	}
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, err
	}
	var h hash.Hash
	switch Algorithm(dns.CanonicalName(t.Algorithm)) {
	case dns.HmacMD5:
		h = hmac.New(md5.New, raw)
	case dns.HmacSHA1:
		h = hmac.New(sha1.New, raw)
	case dns.HmacSHA224:
		h = hmac.New(sha256.New224, raw)
	case dns.HmacSHA256:
		h = hmac.New(sha256.New, raw)
	case dns.HmacSHA384:
		h = hmac.New(sha512.New384, raw)
	case dns.HmacSHA512:
		h = hmac.New(sha512.New, raw)
	default:
		return nil, dns.ErrKeyAlg
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// Verify checks the MAC carried in t against msg.
func (k Keyring) Verify(msg []byte, t *dns.TSIG) error {
	want, err := k.Generate(msg, t)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(t.MAC)
	if err != nil {
		return err
	}
	if !hmac.Equal(want, got) {
		return dns.ErrSig
	}
	return nil
}

var _ dns.TsigProvider = Keyring(nil)

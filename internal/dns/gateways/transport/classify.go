package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// Classify tags a failure from a transfer or update exchange with its Kind.
// Signing, authentication and network failures are recognised; anything
// else is tagged fallback. Errors already carrying a Kind pass through.
func Classify(err error, zone string, fallback domain.Kind) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(kindOf(err, fallback), zone, err)
}

func kindOf(err error, fallback domain.Kind) domain.Kind {
	switch {
	case isSigning(err):
		return domain.KindSigning
	case isAuthRejected(err):
		return domain.KindAuthRejected
	case isTransport(err):
		return domain.KindTransport
	default:
		return fallback
	}
}

// isSigning matches failures to produce a signature locally: an unsupported
// algorithm, a missing key or a secret that is not valid base64.
func isSigning(err error) bool {
	var corrupt base64.CorruptInputError
	return errors.Is(err, dns.ErrKeyAlg) ||
		errors.Is(err, dns.ErrSecret) ||
		errors.As(err, &corrupt)
}

// isAuthRejected matches a signed exchange the peer did not accept, or whose
// reply failed verification.
func isAuthRejected(err error) bool {
	return errors.Is(err, dns.ErrSig) ||
		errors.Is(err, dns.ErrAuth) ||
		errors.Is(err, dns.ErrKey) ||
		errors.Is(err, dns.ErrTime)
}

func isTransport(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, dns.ErrShortRead) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

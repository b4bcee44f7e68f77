// Package transport opens the TCP sessions shared by zone transfers and
// dynamic updates and maps their failures onto engine error kinds.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Network is the transport used for AXFR and UPDATE exchanges.
const Network = "tcp"

// Unbounded stands in for "no timeout". miekg/dns always arms I/O deadlines,
// so a ten year deadline models an unbounded wait.
const Unbounded = 87600 * time.Hour

const (
	errFailedToConnect = "failed to connect to %s: %w"
)

// DialFunc establishes a network connection. It matches net.Dialer.DialContext
// so tests can inject pipes or fakes.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DefaultDial is used when no DialFunc is configured.
var DefaultDial DialFunc = (&net.Dialer{}).DialContext

// WithTimeout bounds ctx by timeout. A non-positive timeout leaves ctx alone.
// The returned cancel func is never nil.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// IOTimeout returns the time left before ctx expires, or Unbounded when ctx
// carries no deadline.
func IOTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return Unbounded
	}
	if left := time.Until(deadline); left > 0 {
		return left
	}
	// already expired; the smallest positive value fails the next I/O at once
	return time.Nanosecond
}

// Conn is a TCP session to an authoritative server. Cancelling the context it
// was opened with closes the connection so blocked reads return at once.
type Conn struct {
	net.Conn
	stop func() bool
	once sync.Once
	err  error
}

// Open dials address over TCP with dial, or DefaultDial when dial is nil.
func Open(ctx context.Context, dial DialFunc, address string) (*Conn, error) {
	if dial == nil {
		dial = DefaultDial
	}
	nc, err := dial(ctx, Network, address)
	if err != nil {
		return nil, fmt.Errorf(errFailedToConnect, address, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	return &Conn{Conn: nc, stop: stop}, nil
}

// Close releases the session. It is safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.stop()
		c.err = c.Conn.Close()
	})
	return c.err
}

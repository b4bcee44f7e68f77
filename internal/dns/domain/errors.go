package domain

import (
	"errors"
	"fmt"
)

// Kind enumerates every failure the zone engine can report. The classifier
// maps each Kind onto exactly one status/severity/message row.
type Kind uint8

const (
	KindUnclassified Kind = iota
	KindZoneNotConfigured
	KindZoneIncomplete
	KindTransferFormat
	KindTransport
	KindAuthRejected
	KindInvalidAction
	KindMalformedInput
	KindNoRecordSelected
	KindUnknownRecordType
	KindSigning
)

func (k Kind) String() string {
	switch k {
	case KindZoneNotConfigured:
		return "zone not configured"
	case KindZoneIncomplete:
		return "zone incomplete"
	case KindTransferFormat:
		return "transfer format"
	case KindTransport:
		return "transport"
	case KindAuthRejected:
		return "authentication rejected"
	case KindInvalidAction:
		return "invalid action"
	case KindMalformedInput:
		return "malformed input"
	case KindNoRecordSelected:
		return "no record selected"
	case KindUnknownRecordType:
		return "unknown record type"
	case KindSigning:
		return "signing"
	default:
		return "unclassified"
	}
}

// Error is the single error type raised by the zone engine.
type Error struct {
	Kind Kind
	Zone string
	Err  error
}

// NewError wraps err with a Kind and the zone it concerns.
func NewError(kind Kind, zone string, err error) *Error {
	return &Error{Kind: kind, Zone: zone, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind Kind, zone, format string, args ...any) *Error {
	return NewError(kind, zone, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.Zone == "":
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s (zone %s)", e.Kind, e.Zone)
	case e.Zone == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s (zone %s): %v", e.Kind, e.Zone, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried anywhere in err's chain, or KindUnclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

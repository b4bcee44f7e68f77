// Package classifier turns any failure of the zone engine into the status,
// severity and message shown to the operator, and logs it once.
package classifier

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// Severity is the alert level shown next to a message.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
)

// Classification is the operator facing form of an error.
type Classification struct {
	Status   int         `json:"status"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Zone     string      `json:"zone,omitempty"`
	Kind     domain.Kind `json:"-"`
}

func (c *Classification) Error() string {
	return c.Message
}

// Row is one line of the classification table.
type Row struct {
	Status   int
	Severity Severity
	// Message is a format with a single %s verb for the zone, or none.
	Message string
	zoned   bool
}

// Table returns the row for kind. Every kind maps to exactly one row and
// unknown kinds fall through to the unclassified row.
func Table(kind domain.Kind) Row {
	switch kind {
	case domain.KindTransferFormat:
		return Row{http.StatusInternalServerError, SeverityDanger, `Unable to get zone "%s".`, true}
	case domain.KindTransport:
		return Row{http.StatusInternalServerError, SeverityDanger, "Unable to contact DNS.", false}
	case domain.KindZoneNotConfigured:
		return Row{http.StatusBadRequest, SeverityWarning, `Zone "%s" not configured.`, true}
	case domain.KindZoneIncomplete:
		return Row{http.StatusBadRequest, SeverityWarning, `Zone "%s" not fully configured.`, true}
	case domain.KindAuthRejected:
		return Row{http.StatusInternalServerError, SeverityDanger, `Modification on zone "%s" refused by DNS.`, true}
	case domain.KindInvalidAction:
		return Row{http.StatusBadRequest, SeverityWarning, "Invalid update action.", false}
	case domain.KindMalformedInput:
		return Row{http.StatusBadRequest, SeverityWarning, "Wrong form data, bad format.", false}
	case domain.KindNoRecordSelected:
		return Row{http.StatusBadRequest, SeverityWarning, "No record selected.", false}
	case domain.KindUnknownRecordType:
		return Row{http.StatusInternalServerError, SeverityDanger, "Unknown record type.", false}
	case domain.KindSigning:
		return Row{http.StatusInternalServerError, SeverityDanger, `Unable to sign update for zone "%s".`, true}
	default:
		return Row{http.StatusInternalServerError, SeverityDanger, "Unknown error.", false}
	}
}

func (r Row) render(zone string) string {
	if r.zoned {
		return fmt.Sprintf(r.Message, zone)
	}
	return r.Message
}

// Classifier classifies errors and writes one log event per failure.
type Classifier struct {
	logger log.Logger
}

// New returns a Classifier logging to logger, or to the global logger when nil.
func New(logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Classifier{logger: logger}
}

// Classify maps err to its Classification. zone is the zone the operation
// targeted; a zone carried by the error wins when zone is empty. A nil err
// yields nil.
func (c *Classifier) Classify(err error, zone string) *Classification {
	if err == nil {
		return nil
	}
	var existing *Classification
	if errors.As(err, &existing) {
		return existing
	}

	kind := domain.KindOf(err)
	var de *domain.Error
	if zone == "" && errors.As(err, &de) {
		zone = de.Zone
	}

	row := Table(kind)
	cl := &Classification{
		Status:   row.Status,
		Severity: row.Severity,
		Message:  row.render(zone),
		Zone:     zone,
		Kind:     kind,
	}

	fields := map[string]any{
		"zone":   zone,
		"kind":   kind.String(),
		"status": cl.Status,
	}
	c.logger.Debug(map[string]any{"zone": zone, "error": err}, "operation failed")
	switch cl.Severity {
	case SeverityWarning:
		log.Emit(c.logger, "warn", fields, cl.Message)
	default:
		log.Emit(c.logger, "error", fields, cl.Message)
	}
	return cl
}

package domain

import (
	"strings"
	"time"
)

// Action selects what an UpdateRequest does.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
)

// UpdateRequest describes one add or delete against a zone.
//
// For deletes only Owner and Type select what is removed: the whole RRset of
// Type under Owner goes away. TTL and Content are carried for echo and audit.
type UpdateRequest struct {
	Zone    string
	Owner   string
	TTL     uint32
	Type    string
	Content string
	Action  Action
}

// Record returns the request as a display record in class IN.
func (r UpdateRequest) Record() Record {
	return Record{
		Owner:   r.Owner,
		Class:   "IN",
		Type:    strings.ToUpper(r.Type),
		TTL:     r.TTL,
		Content: r.Content,
	}
}

// Ack is the server's answer to an update that did not fail. A server may
// still decline the update with a non-success rcode; Applied is false then
// and nothing changed in the zone.
type Ack struct {
	Rcode   string
	Applied bool
}

// Change is an applied update as kept in the audit journal.
type Change struct {
	Time   time.Time `json:"time"`
	User   string    `json:"user"`
	Zone   string    `json:"zone"`
	Action Action    `json:"action"`
	Record Record    `json:"record"`
}

package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Record is one rdata item of a zone as shown to the operator.
type Record struct {
	Owner   string `json:"owner"`
	Class   string `json:"class"`
	Type    string `json:"type"`
	TTL     uint32 `json:"ttl"`
	Content string `json:"content"`
}

// String renders the record in presentation order: owner ttl class type content.
func (r Record) String() string {
	return fmt.Sprintf("%s %d %s %s %s", r.Owner, r.TTL, r.Class, r.Type, r.Content)
}

// RecordSet is an ordered list of records.
type RecordSet []Record

// Filter returns the records whose type is in allowed. Matching is exact on
// the type mnemonic; an empty allow-list keeps nothing.
func (rs RecordSet) Filter(allowed []string) RecordSet {
	out := make(RecordSet, 0, len(rs))
	for _, r := range rs {
		if slices.Contains(allowed, r.Type) {
			out = append(out, r)
		}
	}
	return out
}

// SortByType orders rs ascending by type mnemonic. Records of the same type
// keep their relative order.
func (rs RecordSet) SortByType() {
	slices.SortStableFunc(rs, func(a, b Record) int {
		return strings.Compare(a.Type, b.Type)
	})
}

// Types returns the distinct type mnemonics present, in first-seen order.
func (rs RecordSet) Types() []string {
	var types []string
	for _, r := range rs {
		if !slices.Contains(types, r.Type) {
			types = append(types, r.Type)
		}
	}
	return types
}

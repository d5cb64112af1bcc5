package entity

import (
	"sort"
	"strings"
)

// Kind names a structured trip fact.
type Kind string

const (
	Destination Kind = "destination"
	DateRange   Kind = "date_range"
	Budget      Kind = "budget"
	Travelers   Kind = "travelers"
)

// Kinds lists every kind in extraction priority order.
var Kinds = []Kind{Destination, DateRange, Budget, Travelers}

// Set maps an entity kind to its normalized value.
type Set map[Kind]string

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new set holding s overwritten by other. Empty values in
// other never clear an existing entry.
func (s Set) Merge(other Set) Set {
	out := s.Clone()
	for k, v := range other {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Has reports whether kind is present with a non-empty value.
func (s Set) Has(kind Kind) bool {
	return s[kind] != ""
}

// String renders the set as "kind=value" pairs in priority order.
func (s Set) String() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s))
	seen := make(map[Kind]bool, len(Kinds))
	for _, kind := range Kinds {
		seen[kind] = true
		if v := s[kind]; v != "" {
			parts = append(parts, string(kind)+"="+v)
		}
	}
	var extra []string
	for k, v := range s {
		if !seen[k] && v != "" {
			extra = append(extra, string(k)+"="+v)
		}
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), ", ")
}

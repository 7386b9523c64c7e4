package core

import (
	"sort"
	"strings"
)

const (
	FilterAll      = "all"
	FilterActive   = "active"
	FilterInactive = "inactive"
)

// RosterFilter composes the locality, status and free-text predicates used by
// the roster table and exports.
type RosterFilter struct {
	Locality string // exact, case-insensitive; "" or "all" disables
	Status   string // all | active | inactive
	Search   string // case-insensitive substring over identity, contact and lot fields
}

// Normalize maps unknown status values to "all" and trims inputs.
func (f RosterFilter) Normalize() RosterFilter {
	f.Locality = strings.TrimSpace(f.Locality)
	if strings.EqualFold(f.Locality, FilterAll) {
		f.Locality = ""
	}
	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case FilterActive:
		f.Status = FilterActive
	case FilterInactive:
		f.Status = FilterInactive
	default:
		f.Status = FilterAll
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f RosterFilter) Matches(e RosterEntry) bool {
	f = f.Normalize()
	if f.Locality != "" && !strings.EqualFold(e.Locality, f.Locality) {
		return false
	}
	switch f.Status {
	case FilterActive:
		if !e.IsActive {
			return false
		}
	case FilterInactive:
		if e.IsActive {
			return false
		}
	}
	return MatchesSearch(e, f.Search)
}

// Apply returns the entries that satisfy every predicate, preserving order.
func (f RosterFilter) Apply(entries []RosterEntry) []RosterEntry {
	out := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// MatchesSearch ORs a case-insensitive substring match over the individual
// fields, the full name and the paternal+maternal surnames. An empty query
// matches everything.
func MatchesSearch(e RosterEntry, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{
		e.DNI,
		e.FirstNames,
		e.PaternalSurname,
		e.MaternalSurname,
		e.Phone,
		e.Locality,
		e.Block,
		e.Lot,
		e.ReceiptNumber,
	}
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	if strings.Contains(strings.ToLower(e.FullName()), q) {
		return true
	}
	return strings.Contains(strings.ToLower(e.Surnames()), q)
}

// Localities returns the distinct non-empty localities, sorted.
func Localities(entries []RosterEntry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		loc := strings.TrimSpace(e.Locality)
		if loc == "" {
			continue
		}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

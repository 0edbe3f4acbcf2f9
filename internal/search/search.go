// Package search ranks catalog entries against a free-text query.
//
// The same Rank function backs the server endpoint and the client-side
// catalog mirror, so both produce identical result order.
package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MinQueryLength is the shortest trimmed query, in characters, that searches.
const MinQueryLength = 2

type Mode string

const (
	ModeLookup Mode = "lookup"
	ModeBrowse Mode = "browse"
)

// ParseMode accepts "lookup" or "browse" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLookup:
		return ModeLookup, nil
	case ModeBrowse:
		return ModeBrowse, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Limits caps result counts per mode.
type Limits struct {
	Lookup int
	Browse int
}

var DefaultLimits = Limits{Lookup: 20, Browse: 500}

func (l Limits) For(m Mode) int {
	if m == ModeLookup {
		return l.Lookup
	}
	return l.Browse
}

// Fold case-folds s for caseless comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Terms splits a query into case-folded whitespace-separated terms.
// It returns nil for queries shorter than MinQueryLength after trimming.
func Terms(query string) []string {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil
	}
	return strings.Fields(Fold(q))
}

// Matches reports whether every term is a substring of the folded name.
func Matches(foldedName string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	for _, t := range terms {
		if !strings.Contains(foldedName, t) {
			return false
		}
	}
	return true
}

type candidate[T any] struct {
	item   T
	name   string
	folded string
	prefix int
	pos    int
}

// Rank filters items to those whose name contains every query term and
// orders them by (first term is a prefix ? 0 : 1, index of the first term,
// folded name). Ties on the folded name fall back to the raw name so the
// order never depends on input order. limit <= 0 means no cap.
func Rank[T any](query string, items []T, name func(T) string, limit int) []T {
	terms := Terms(query)
	if terms == nil {
		return []T{}
	}
	first := terms[0]

	var matched []candidate[T]
	for _, it := range items {
		n := name(it)
		f := Fold(n)
		if !Matches(f, terms) {
			continue
		}
		c := candidate[T]{item: it, name: n, folded: f, prefix: 1, pos: strings.Index(f, first)}
		if strings.HasPrefix(f, first) {
			c.prefix = 0
		}
		matched = append(matched, c)
	}

	slices.SortStableFunc(matched, func(a, b candidate[T]) int {
		return cmp.Or(
			cmp.Compare(a.prefix, b.prefix),
			cmp.Compare(a.pos, b.pos),
			strings.Compare(a.folded, b.folded),
			strings.Compare(a.name, b.name),
		)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]T, len(matched))
	for i, c := range matched {
		out[i] = c.item
	}
	return out
}

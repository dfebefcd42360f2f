package gazetteer

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the number of suggestions shown under the search box.
const DefaultLimit = 8

// Query is a raw search string and its matching form.
type Query struct {
	Raw        string
	Normalized string
}

// NewQuery lowercases and trims raw. Diacritics are kept as typed:
// "bogota" does not match "Bogotá".
func NewQuery(raw string) Query {
	return Query{Raw: raw, Normalized: strings.ToLower(strings.TrimSpace(raw))}
}

type candidate struct {
	lowerName string
	city      City
	nameLen   int
	exact     bool
}

// Rank returns at most limit cities whose name starts with query, ignoring case.
//
// Exact name matches come first, then shorter names; remaining ties keep the
// order of cities. Only the best ranked record per (name, country) pair is
// returned. An empty query or a non-positive limit yields no suggestions.
//
// Rank does not modify cities and is safe for concurrent use.
func Rank(cities []City, query string, limit int) []City {
	q := NewQuery(query)
	if q.Normalized == "" || limit <= 0 {
		return []City{}
	}

	var matches []candidate
	for i := range cities {
		lower := strings.ToLower(cities[i].Name)
		if !strings.HasPrefix(lower, q.Normalized) {
			continue
		}
		matches = append(matches, candidate{
			lowerName: lower,
			city:      cities[i],
			nameLen:   utf8.RuneCountInString(cities[i].Name),
			exact:     lower == q.Normalized,
		})
	}

	// Must stay stable: equal candidates keep dataset order.
	slices.SortStableFunc(matches, func(a, b candidate) int {
		switch {
		case a.exact && !b.exact:
			return -1
		case !a.exact && b.exact:
			return 1
		}
		return a.nameLen - b.nameLen
	})

	type key struct{ name, country string }
	seen := make(map[key]struct{}, len(matches))
	result := make([]City, 0, min(limit, len(matches)))
	for i := range matches {
		k := key{matches[i].lowerName, matches[i].city.Country}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, matches[i].city)
		if len(result) == limit {
			break
		}
	}
	return result
}

package domain

import (
	"sort"
	"strings"
)

// Wildcard is the classifier value that matches any concrete value.
const Wildcard = "?"

// Classifiers maps a classifier name (forest_type, region, mgmt_type, ...)
// to its value for a stand or a table row.
type Classifiers map[string]string

// Matches reports whether the concrete classifiers c satisfy the predicate
// pred. Predicate entries holding the wildcard or an empty value match
// anything; names absent from c never match a concrete predicate value.
func (c Classifiers) Matches(pred Classifiers) bool {
	for name, want := range pred {
		if want == Wildcard || want == "" {
			continue
		}
		if c[name] != want {
			return false
		}
	}
	return true
}

// Project returns a copy restricted to names, in no particular order.
func (c Classifiers) Project(names []string) Classifiers {
	out := make(Classifiers, len(names))
	for _, n := range names {
		if v, ok := c[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Clone returns an independent copy.
func (c Classifiers) Clone() Classifiers {
	if c == nil {
		return nil
	}
	out := make(Classifiers, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Key renders the values of names in order, joined by '|'. Missing names
// render as the wildcard so keys from partial rows stay aligned.
func (c Classifiers) Key(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		v, ok := c[n]
		if !ok || v == "" {
			v = Wildcard
		}
		parts[i] = v
	}
	return strings.Join(parts, "|")
}

// IsWildcard reports whether the value for name is absent or the wildcard.
func (c Classifiers) IsWildcard(name string) bool {
	v, ok := c[name]
	return !ok || v == "" || v == Wildcard
}

// SortedNames returns the classifier names of c in lexical order.
func (c Classifiers) SortedNames() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

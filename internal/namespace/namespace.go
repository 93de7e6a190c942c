// Package namespace routes queries to document collections.
//
// A namespace is a named partition of the vector store, one per logical
// document collection (typically one per company). The matcher maps a
// free-text query, optionally constrained by explicit collection hints,
// to the subset of known namespaces the query should run against.
//
// Matching is a substring heuristic, not a classifier: short or
// overlapping names over-match (a namespace "ibm" matches a query
// mentioning "ibmcorp"). That is accepted behavior carried over from the
// routing design, not a bug.
package namespace

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrDirectoryUnavailable indicates the set of known namespaces could not
// be retrieved. This is distinct from "no namespace matched": retrieval
// cannot proceed at all.
var ErrDirectoryUnavailable = errors.New("namespace directory unavailable")

// Directory lists the known namespaces from the vector store.
type Directory interface {
	Namespaces(ctx context.Context) ([]string, error)
}

// Mode identifies how a resolution selected its namespaces.
type Mode string

const (
	// ModeExplicit means the caller supplied collection hints.
	ModeExplicit Mode = "explicit"

	// ModeImplicit means namespaces were inferred from the query text.
	ModeImplicit Mode = "implicit"
)

// Resolution is the outcome of matching a query against the known
// namespaces. It is constructed per query and discarded afterwards.
type Resolution struct {
	// Matched namespaces in first-seen order, de-duplicated.
	Matched []string

	// Unmatched hint names, in hint order. Always empty in implicit mode
	// (there are no hints to report).
	Unmatched []string

	// Mode records which matching mode produced this resolution.
	// Downstream tool selection depends on the distinction.
	Mode Mode
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeHint lower-cases a hint and collapses whitespace runs into the
// namespace separator, so "Berkshire Hathaway" tests against
// "berkshire_hathaway_namespace".
func normalizeHint(name string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// simpleName returns the token before the first separator:
// "amazon_namespace" -> "amazon".
func simpleName(ns string) string {
	if i := strings.IndexByte(ns, '_'); i >= 0 {
		return ns[:i]
	}
	return ns
}

// Resolve maps a query to a subset of the known namespaces.
//
// With hints, every hint is normalized and substring-tested against every
// known namespace; a hint may match zero, one, or many namespaces, and a
// hint matching nothing is reported in Unmatched rather than silently
// dropped. Without hints, a namespace is included when its simple name
// appears anywhere in the lower-cased query.
//
// An empty known set returns ErrDirectoryUnavailable; zero matches with a
// non-empty known set is a normal Resolution with an empty Matched slice.
func Resolve(query string, hints []string, known []string) (Resolution, error) {
	if len(known) == 0 {
		return Resolution{}, ErrDirectoryUnavailable
	}

	if len(hints) > 0 {
		return resolveExplicit(hints, known), nil
	}
	return resolveImplicit(query, known), nil
}

func resolveExplicit(hints []string, known []string) Resolution {
	res := Resolution{Mode: ModeExplicit}
	seen := make(map[string]bool, len(known))

	for _, hint := range hints {
		normalized := normalizeHint(hint)
		if normalized == "" {
			res.Unmatched = append(res.Unmatched, hint)
			continue
		}

		found := false
		for _, ns := range known {
			if strings.Contains(ns, normalized) {
				found = true
				if !seen[ns] {
					seen[ns] = true
					res.Matched = append(res.Matched, ns)
				}
			}
		}
		if !found {
			res.Unmatched = append(res.Unmatched, hint)
		}
	}
	return res
}

func resolveImplicit(query string, known []string) Resolution {
	res := Resolution{Mode: ModeImplicit}
	queryLower := strings.ToLower(query)
	seen := make(map[string]bool, len(known))

	for _, ns := range known {
		if simpleName(ns) == "" {
			continue
		}
		if strings.Contains(queryLower, simpleName(ns)) && !seen[ns] {
			seen[ns] = true
			res.Matched = append(res.Matched, ns)
		}
	}
	return res
}

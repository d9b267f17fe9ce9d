// Package forest holds the algorithms over materialized-path documents:
// root filtering, tree nesting and move planning. Stores apply the plans.
package forest

import (
	"sort"
	"strings"
)

// FilterRootPaths returns the paths that are not descendants of any other
// path in the input. Duplicates collapse to one.
//
// With skipSorting the caller's order is honoured and the result is only
// minimal if the input was already sorted.
func FilterRootPaths(paths []string, skipSorting bool) []string {
	if len(paths) == 0 {
		return []string{}
	}

	ordered := paths
	if !skipSorting {
		ordered = make([]string, len(paths))
		copy(ordered, paths)
		sort.Strings(ordered)
	}

	roots := make([]string, 0, len(ordered))
	last := ""
	for _, p := range ordered {
		if last != "" && strings.HasPrefix(p, last) {
			continue
		}
		roots = append(roots, p)
		last = p
	}
	return roots
}

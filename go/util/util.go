// Package util holds small helpers shared across the alert group packages.
package util

import (
	"io"

	"go.skia.org/alertgroups/go/sklog"
)

// In returns true if |s| is *in* |a| slice.
func In(s string, a []string) bool {
	for _, x := range a {
		if x == s {
			return true
		}
	}
	return false
}

// Close wraps an io.Closer and logs an error if one is returned. Handy for
// deferred closing of response bodies.
func Close(c io.Closer) {
	if err := c.Close(); err != nil {
		sklog.Errorf("Failed to Close(): %v", err)
	}
}

// DedupStrings returns a copy of the slice with duplicates removed. The order
// of first occurrence is preserved.
func DedupStrings(a []string) []string {
	seen := make(map[string]bool, len(a))
	ret := make([]string, 0, len(a))
	for _, s := range a {
		if seen[s] {
			continue
		}
		seen[s] = true
		ret = append(ret, s)
	}
	return ret
}

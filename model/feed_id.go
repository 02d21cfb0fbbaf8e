// Package model provides shared utilities for feed ID handling
package model

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var (
	unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	dotRuns       = regexp.MustCompile(`\.{2,}`)
)

// SanitizeFeedID converts a request-supplied feed id into a safe filename
// for spec lookup. Path separators and anything outside [a-zA-Z0-9._-]
// collapse to "-", dot runs collapse to a single dot, and leading dots or
// dashes are stripped so an id can never address hidden files or escape
// the feeds directory. An id that sanitizes to nothing returns "" and the
// caller treats it as not found.
func SanitizeFeedID(raw string) string {
	id := strings.TrimSpace(raw)
	id = unsafeIDChars.ReplaceAllString(id, "-")
	id = dotRuns.ReplaceAllString(id, ".")
	id = strings.Trim(id, ".-")

	// Truncate very long ids and add a hash suffix so distinct inputs stay
	// distinct after truncation.
	if len(id) > 64 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(raw)) // FNV hash Write never returns an error
		hashStr := fmt.Sprintf("%x", h.Sum32())
		id = id[:55] + "-" + hashStr
	}

	return id
}

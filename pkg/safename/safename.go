package safename

import (
	"regexp"
	"strings"
)

// Fallback is returned by Clean when the input reduces to nothing.
const Fallback = "file"

// unsafeChars matches every character that is not allowed in a path segment.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Clean normalizes raw into a safe single path segment.
//
// Directory components are discarded (both "/" and "\" count as
// separators), disallowed characters become "_", and input that ends up
// empty or consists only of punctuation (".", "..", "---") maps to
// Fallback. The result never contains a separator, so it cannot form a
// traversal on its own.
func Clean(raw string) string {
	name := raw

	// Keep only the last path segment. filepath.Base is platform
	// dependent, so handle both separator styles explicitly.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = unsafeChars.ReplaceAllString(name, "_")

	if name == "" || strings.Trim(name, "._-") == "" {
		return Fallback
	}
	return name
}

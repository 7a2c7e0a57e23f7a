package logic

import (
	"strings"
)

// MatchTitle reports whether a thread title matches a sidebar search term.
// Matching is a case-insensitive substring test on the raw term; an empty
// term matches everything.
func MatchTitle(title, term string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(term))
}

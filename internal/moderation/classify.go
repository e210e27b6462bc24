package moderation

import "strings"

// IsFlagged reports whether text contains any phrase of snap as a contiguous,
// case-sensitive substring. Empty text is never flagged.
func IsFlagged(text string, snap *Snapshot) bool {
	_, ok := snap.Match(text)
	return ok
}

// Match returns the first phrase, in snapshot order, contained in text.
func (s *Snapshot) Match(text string) (string, bool) {
	if text == "" || s == nil {
		return "", false
	}
	for _, p := range s.phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// Package moderation implements the phrase-based moderation engine: the shared
// phrase store, the classifier, the moderation action executor, the admin
// command processor, the self-expiring reply mechanism and the update router.
package moderation

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// MinPhraseLength is the minimum length, in bytes, of a blocked phrase.
const MinPhraseLength = 3

// PlaceholderPhrase is stored when no initial phrase list is configured so the
// store is never empty at startup.
const PlaceholderPhrase = "<phraseguard placeholder>"

// PhraseSeparator delimits phrases in the environment variable and export file.
const PhraseSeparator = ":"

// Snapshot is an immutable point-in-time view of the phrase store.
type Snapshot struct {
	phrases []string // sorted
	set     map[string]struct{}
}

func newSnapshot(set map[string]struct{}) *Snapshot {
	phrases := make([]string, 0, len(set))
	for p := range set {
		phrases = append(phrases, p)
	}
	slices.Sort(phrases)
	return &Snapshot{phrases: phrases, set: set}
}

// Len returns the number of phrases in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.phrases)
}

// Contains reports whether phrase is part of the snapshot.
func (s *Snapshot) Contains(phrase string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[phrase]
	return ok
}

// Phrases returns a copy of the phrases in a stable (sorted) order.
func (s *Snapshot) Phrases() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.phrases)
}

// Join returns the phrases joined by sep, in the order of Phrases.
func (s *Snapshot) Join(sep string) string {
	if s == nil {
		return ""
	}
	return strings.Join(s.phrases, sep)
}

// PhraseStore holds the current set of blocked phrases.
//
// Readers take a Snapshot without locking. Writers are serialized by mu, build
// a new set from the current one and publish it with a single pointer swap, so
// a reader sees either the set before or after a mutation, never a mix.
type PhraseStore struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewPhraseStore creates a store seeded with the given phrases. Duplicates
// collapse; entries are stored as given.
func NewPhraseStore(initial []string) *PhraseStore {
	set := make(map[string]struct{}, len(initial))
	for _, p := range initial {
		set[p] = struct{}{}
	}
	s := &PhraseStore{}
	s.current.Store(newSnapshot(set))
	return s
}

// Snapshot returns the current immutable view of the store.
func (s *PhraseStore) Snapshot() *Snapshot {
	return s.current.Load()
}

// Add inserts phrase and reports whether it was not already present.
func (s *PhraseStore) Add(phrase string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur.Contains(phrase) {
		return false
	}
	next := make(map[string]struct{}, len(cur.set)+1)
	for p := range cur.set {
		next[p] = struct{}{}
	}
	next[phrase] = struct{}{}
	s.current.Store(newSnapshot(next))
	return true
}

// Remove deletes phrase and reports whether it was present.
func (s *PhraseStore) Remove(phrase string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if !cur.Contains(phrase) {
		return false
	}
	next := make(map[string]struct{}, len(cur.set))
	for p := range cur.set {
		if p != phrase {
			next[p] = struct{}{}
		}
	}
	s.current.Store(newSnapshot(next))
	return true
}

// ParsePhraseList turns the raw colon-delimited phrase variable into the
// initial phrase list. Entries are trimmed; empty and too-short entries are
// skipped with a warning. When the variable is unset, or yields no usable
// entry, the list degrades to the single placeholder phrase.
func ParsePhraseList(raw string, present bool, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	if !present {
		logger.Warn("Phrase list variable is not set, using placeholder", "placeholder", PlaceholderPhrase)
		return []string{PlaceholderPhrase}
	}

	var phrases []string
	for _, entry := range strings.Split(raw, PhraseSeparator) {
		p := strings.TrimSpace(entry)
		if p == "" {
			continue
		}
		if len(p) < MinPhraseLength {
			logger.Warn("Skipping phrase shorter than minimum length", "phrase", p, "min_length", MinPhraseLength)
			continue
		}
		phrases = append(phrases, p)
	}

	if len(phrases) == 0 {
		logger.Warn("Phrase list variable has no usable entries, using placeholder", "placeholder", PlaceholderPhrase)
		return []string{PlaceholderPhrase}
	}
	logger.Info("Loaded initial phrase list", "count", len(phrases))
	return phrases
}

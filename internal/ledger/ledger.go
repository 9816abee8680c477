// internal/ledger/ledger.go
//
// Word chain ledger: the ordered list of words accepted in one session plus a
// membership set for duplicate checks.
//
// Invariants:
//   - The set and the sequence always hold the same distinct canonical words.
//   - After New/Reset the seed word is the only member.
//   - Append never silently dedupes; a duplicate is an error for the caller.
//
// A Ledger is not synchronized; the owning session guards it.

package ledger

import (
	"errors"

	"github.com/samber/lo"

	"github.com/robalobadob/wordripple/internal/word"
)

// ErrDuplicate is returned by Append when the word is already in the chain.
var ErrDuplicate = errors.New("ledger: word already in chain")

// Ledger is an ordered set of canonical words.
type Ledger struct {
	words []word.Word
	set   map[string]struct{}
}

// New returns a ledger seeded with start. A zero start yields an empty ledger.
func New(start word.Word) *Ledger {
	l := &Ledger{}
	l.Reset(start)
	return l
}

// Reset clears the chain and re-seeds it with start.
func (l *Ledger) Reset(start word.Word) {
	l.words = l.words[:0]
	l.set = make(map[string]struct{})
	if !start.IsZero() {
		l.words = append(l.words, start)
		l.set[start.Canonical()] = struct{}{}
	}
}

// Contains reports whether w (compared canonically) is already in the chain.
func (l *Ledger) Contains(w word.Word) bool {
	_, ok := l.set[w.Canonical()]
	return ok
}

// Append adds w to the end of the chain.
func (l *Ledger) Append(w word.Word) error {
	if w.IsZero() {
		return errors.New("ledger: empty word")
	}
	if l.Contains(w) {
		return ErrDuplicate
	}
	l.words = append(l.words, w)
	l.set[w.Canonical()] = struct{}{}
	return nil
}

// Len returns the number of words in the chain, seed included.
func (l *Ledger) Len() int { return len(l.words) }

// Words returns a copy of the chain in acceptance order.
func (l *Ledger) Words() []word.Word {
	out := make([]word.Word, len(l.words))
	copy(out, l.words)
	return out
}

// Display returns the chain in uppercase display form.
func (l *Ledger) Display() []string {
	return lo.Map(l.words, func(w word.Word, _ int) string { return w.Display() })
}

// Clone returns an independent copy, used to validate outside the session lock.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		words: l.Words(),
		set:   make(map[string]struct{}, len(l.set)),
	}
	for k := range l.set {
		c.set[k] = struct{}{}
	}
	return c
}

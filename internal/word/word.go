// internal/word/word.go
//
// Word value type shared by every game component.
//
// A Word carries two forms of the same input:
//   - Display:   uppercase, what the player sees ("OCEAN").
//   - Canonical: lowercase, what every comparison and lookup uses ("ocean").
//
// Case mapping goes through golang.org/x/text/cases so non-ASCII input folds
// the same way for every player.

package word

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Word is an immutable normalized word. The zero value is the empty word.
type Word struct {
	display   string
	canonical string
}

// New normalizes raw player input (surrounding whitespace trimmed).
func New(raw string) Word {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Word{}
	}
	return Word{
		display:   cases.Upper(language.English).String(s),
		canonical: Canonical(s),
	}
}

// Canonical returns the lowercase comparison form of raw.
func Canonical(raw string) string {
	return cases.Lower(language.English).String(strings.TrimSpace(raw))
}

// Display returns the uppercase display form.
func (w Word) Display() string { return w.display }

// Canonical returns the lowercase comparison form.
func (w Word) Canonical() string { return w.canonical }

// IsZero reports whether w is the empty word.
func (w Word) IsZero() bool { return w.canonical == "" }

// Equal compares canonical forms, so "Glass" equals "GLASS".
func (w Word) Equal(o Word) bool { return w.canonical == o.canonical }

func (w Word) String() string { return w.display }

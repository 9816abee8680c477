// internal/words/words.go
//
// Dictionary service for the game core.
//
// Responsibilities:
//   - Load the word list from a file (WORDS_FILE) or fall back to the embedded default.
//   - Answer membership queries (IsValidWord) against canonical lowercase forms.
//   - Select words: deterministically from a fraction in [0,1) (daily puzzles),
//     or at random (classic starting words).
//
// Word list rules:
//   • One word per line; blank lines and "#" comments are skipped.
//   • Words are lowercased and must be alphabetic a–z, at least 2 letters.
//   • Duplicates are dropped, first occurrence keeps its position, so the
//     fraction → word mapping is stable for a given file.

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/robalobadob/wordripple/assets"
	"github.com/robalobadob/wordripple/internal/word"
)

// ErrEmpty is returned when a word list has no usable entries.
var ErrEmpty = errors.New("words: list is empty")

// Dictionary is an immutable, ordered word list with a membership set.
// Safe for concurrent use.
type Dictionary struct {
	list []string            // ordered, canonical
	set  map[string]struct{} // canonical membership
}

// New builds a Dictionary from raw words, normalizing and filtering them.
func New(raw []string) (*Dictionary, error) {
	list := lo.Uniq(lo.FilterMap(raw, func(w string, _ int) (string, bool) {
		c := word.Canonical(w)
		return c, len(c) >= 2 && isAlpha(c)
	}))
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	return &Dictionary{list: list, set: toSet(list)}, nil
}

// Load reads the dictionary from path, or the embedded default when path is empty.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		raw, err := assets.DefaultWords()
		if err != nil {
			return nil, err
		}
		return New(raw)
	}
	raw, err := readWordFile(path)
	if err != nil {
		return nil, err
	}
	return New(raw)
}

// readWordFile loads one word per line from a file, skipping blanks and comments.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		out = append(out, w)
	}
	return out, sc.Err()
}

// toSet converts a list of strings into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsValidWord reports whether w is in the dictionary (case-insensitive).
func (d *Dictionary) IsValidWord(w string) bool {
	_, ok := d.set[word.Canonical(w)]
	return ok
}

// RandomWord maps a fraction in [0,1) onto the list: index = floor(f * len).
// Out-of-range fractions are clamped, so the call never fails.
func (d *Dictionary) RandomWord(fraction float64) string {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	i := int(fraction * float64(len(d.list)))
	if i >= len(d.list) {
		i = len(d.list) - 1
	}
	return d.list[i]
}

// Random returns a cryptographically random word.
// Falls back to the first word if the entropy source fails.
func (d *Dictionary) Random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(d.list))))
	if err != nil {
		return d.list[0]
	}
	return d.list[n.Int64()]
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int { return len(d.list) }

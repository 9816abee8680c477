// internal/puzzle/generator.go
//
// Daily puzzle generation for Journey mode.
//
// Every process computes the same (start, target) pair for a calendar date:
//   1. seed = YYYYMMDD as an integer.
//   2. A linear congruential step turns the seed into fractions in [0,1).
//   3. Each fraction is mapped to a word by the dictionary's seedable selector.
//   4. The first non-empty draw is the start word; target draws repeat until
//      they differ from it.
//
// Results are memoized per date, so toggling modes mid-day never redraws.

package puzzle

import (
	"fmt"
	"sync"

	"github.com/robalobadob/wordripple/internal/word"
)

// LCG parameters (Numerical Recipes).
const (
	lcgA = 1664525
	lcgC = 1013904223
	lcgM = 1 << 32
)

// MaxAttempts bounds start and target redraws before the dictionary is
// declared degenerate.
const MaxAttempts = 1000

// WordSource maps a fraction in [0,1) to a word, deterministically.
type WordSource interface {
	RandomWord(fraction float64) string
}

// Puzzle is one day's Journey: reach Target starting from Start.
type Puzzle struct {
	Date   Date
	Start  word.Word
	Target word.Word
}

// DegenerateDictionaryError reports a word source that cannot produce two
// distinct words. It is a configuration fault, not a player-facing error.
type DegenerateDictionaryError struct {
	Date     Date
	Attempts int
}

func (e *DegenerateDictionaryError) Error() string {
	return fmt.Sprintf("puzzle: no distinct start and target words for %s after %d attempts", e.Date, e.Attempts)
}

// lcg is the deterministic fraction stream for one date.
type lcg struct{ state uint64 }

func (l *lcg) next() float64 {
	l.state = (l.state*lcgA + lcgC) % lcgM
	return float64(l.state) / float64(lcgM)
}

// Generator produces and memoizes daily puzzles. Safe for concurrent use.
type Generator struct {
	src   WordSource
	mu    sync.Mutex
	cache map[Date]Puzzle
}

// NewGenerator returns a Generator drawing words from src.
func NewGenerator(src WordSource) *Generator {
	return &Generator{src: src, cache: make(map[Date]Puzzle)}
}

// Generate returns the puzzle for d. Repeated calls for the same date return
// the same pair for the lifetime of the Generator.
func (g *Generator) Generate(d Date) (Puzzle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.cache[d]; ok {
		return p, nil
	}

	rng := &lcg{state: d.Seed()}
	var start word.Word
	for i := 0; i < MaxAttempts && start.IsZero(); i++ {
		start = word.New(g.src.RandomWord(rng.next()))
	}
	if start.IsZero() {
		return Puzzle{}, &DegenerateDictionaryError{Date: d, Attempts: MaxAttempts}
	}
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		target := word.New(g.src.RandomWord(rng.next()))
		if !target.IsZero() && !target.Equal(start) {
			p := Puzzle{Date: d, Start: start, Target: target}
			g.cache[d] = p
			return p, nil
		}
	}
	return Puzzle{}, &DegenerateDictionaryError{Date: d, Attempts: MaxAttempts}
}

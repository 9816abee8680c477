package words

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFiltersAndDedupes(t *testing.T) {
	d, err := New([]string{"Ocean", "sea", "OCEAN", "x", "two words", "gl4ss", "glass"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("expected 3 words, got %d", d.Len())
	}
	for _, w := range []string{"ocean", "SEA", "Glass"} {
		if !d.IsValidWord(w) {
			t.Errorf("%q should be valid", w)
		}
	}
	for _, w := range []string{"x", "gl4ss", "lake"} {
		if d.IsValidWord(w) {
			t.Errorf("%q should be invalid", w)
		}
	}
}

func TestNewEmpty(t *testing.T) {
	if _, err := New([]string{"", "1"}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestRandomWordIsDeterministic(t *testing.T) {
	d, _ := New([]string{"ocean", "sea", "glass", "water"})
	cases := []struct {
		f    float64
		want string
	}{
		{0, "ocean"},
		{0.24, "ocean"},
		{0.25, "sea"},
		{0.5, "glass"},
		{0.99, "water"},
		{1, "water"},
		{-3, "ocean"},
	}
	for _, c := range cases {
		if got := d.RandomWord(c.f); got != c.want {
			t.Errorf("RandomWord(%v) = %q, want %q", c.f, got, c.want)
		}
	}
}

func TestRandomReturnsMember(t *testing.T) {
	d, _ := New([]string{"ocean", "sea"})
	for i := 0; i < 20; i++ {
		if w := d.Random(); !d.IsValidWord(w) {
			t.Fatalf("unexpected word %q", w)
		}
	}
}

func TestLoadEmbeddedDefault(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, w := range []string{"ocean", "sea", "glass", "water"} {
		if !d.IsValidWord(w) {
			t.Errorf("default dictionary missing %q", w)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("# comment\nOcean\n\nsea\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Len() != 2 || !d.IsValidWord("ocean") {
		t.Fatalf("unexpected dictionary: len=%d", d.Len())
	}
}

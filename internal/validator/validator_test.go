package validator

import (
	"context"
	"testing"

	"github.com/robalobadob/wordripple/internal/ledger"
	"github.com/robalobadob/wordripple/internal/word"
)

type fakeDict map[string]bool

func (d fakeDict) IsValidWord(w string) bool { return d[w] }

type fakeRelater struct {
	related bool
	calls   int
	pairs   [][2]string
}

func (r *fakeRelater) AreRelated(_ context.Context, a, b string) bool {
	r.calls++
	r.pairs = append(r.pairs, [2]string{a, b})
	return r.related
}

func TestValidateOrder(t *testing.T) {
	dict := fakeDict{"ocean": true, "sea": true}
	chain := ledger.New(word.New("ocean"))
	_ = chain.Append(word.New("sea"))
	st := State{Current: word.New("sea"), Chain: chain}

	cases := []struct {
		name      string
		candidate string
		related   bool
		want      Reason
		accepted  bool
		relCalls  int
	}{
		{"duplicate wins over everything", "SEA", true, ReasonDuplicate, false, 0},
		{"seed counts as duplicate", "Ocean", false, ReasonDuplicate, false, 0},
		{"unknown word", "zzzz", true, ReasonInvalid, false, 0},
		{"empty word", "   ", true, ReasonInvalid, false, 0},
		{"unrelated", "glass", false, ReasonUnrelated, false, 1},
		{"accepted", "glass", true, ReasonNone, true, 1},
	}
	dict["glass"] = true
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rel := &fakeRelater{related: c.related}
			out := New(dict, rel).Validate(context.Background(), word.New(c.candidate), st)
			if out.Reason != c.want || out.Accepted != c.accepted {
				t.Fatalf("got %+v", out)
			}
			if rel.calls != c.relCalls {
				t.Fatalf("relatedness calls = %d, want %d", rel.calls, c.relCalls)
			}
		})
	}
}

func TestValidatePassesCanonicalPair(t *testing.T) {
	rel := &fakeRelater{related: true}
	st := State{Current: word.New("OCEAN"), Chain: ledger.New(word.New("OCEAN"))}
	_ = New(fakeDict{"sea": true}, rel).Validate(context.Background(), word.New("Sea"), st)
	if len(rel.pairs) != 1 || rel.pairs[0] != [2]string{"ocean", "sea"} {
		t.Fatalf("pairs = %v", rel.pairs)
	}
}

func TestOutcomeMessages(t *testing.T) {
	cases := map[Outcome]string{
		{Accepted: true}:          "Good job! The words are semantically related.",
		{Reason: ReasonDuplicate}: "You have already used this word.",
		{Reason: ReasonInvalid}:   "Invalid word.",
		{Reason: ReasonUnrelated}: "The words are not semantically related.",
	}
	for o, want := range cases {
		if got := o.Message(); got != want {
			t.Errorf("%v: got %q want %q", o.Reason, got, want)
		}
	}
}

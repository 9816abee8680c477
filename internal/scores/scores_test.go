package scores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/wordripple/internal/db"
	"github.com/robalobadob/wordripple/internal/identity"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.OpenMigrated(db.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	s := NewStore(conn)
	base := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return s
}

func verified(id, name string) *identity.Identity {
	return &identity.Identity{ID: id, DisplayName: name, Verified: true}
}

func TestSubmitScoreRules(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cases := []struct {
		name  string
		who   *identity.Identity
		score int
		want  error
	}{
		{"anonymous", nil, 30, ErrNotAuthenticated},
		{"unverified", &identity.Identity{ID: "u"}, 30, ErrNotAuthenticated},
		{"zero", verified("u", "U"), 0, ErrNonPositive},
		{"negative", verified("u", "U"), -10, ErrNonPositive},
		{"ok", verified("u", "U"), 10, nil},
	}
	for _, c := range cases {
		if err := s.SubmitScore(ctx, c.who, c.score); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v want %v", c.name, err, c.want)
		}
	}
	lb, err := s.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 1 || lb[0].Score != 10 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
}

func TestLeaderboardRanking(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	must := func(who *identity.Identity, score int) {
		t.Helper()
		if err := s.SubmitScore(ctx, who, score); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	alice := verified("a", "Alice")
	bob := verified("b", "Bob")
	nameless := verified("c", "  ")

	must(alice, 30)
	must(bob, 50)
	must(nameless, 30)
	must(alice, 20) // lower than her best, ignored
	must(bob, 50)   // ties his own best, earlier one counts

	lb, err := s.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 3 {
		t.Fatalf("expected one row per player, got %+v", lb)
	}
	want := []struct {
		rank  int
		name  string
		score int
	}{
		{1, "Bob", 50},
		{2, "Alice", 30},
		{3, "Anonymous", 30},
	}
	for i, w := range want {
		got := lb[i]
		if got.Rank != w.rank || got.DisplayName != w.name || got.Score != w.score {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
	}
	if lb[0].Timestamp != "2026-10-17T12:02:00.000Z" {
		t.Errorf("bob's timestamp = %q, want earliest best", lb[0].Timestamp)
	}
}

func TestLeaderboardLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		_ = s.SubmitScore(ctx, verified(id, id), (i+1)*10)
	}
	lb, _ := s.Leaderboard(ctx, 2)
	if len(lb) != 2 || lb[0].Score != 30 {
		t.Fatalf("limit not applied: %+v", lb)
	}
}

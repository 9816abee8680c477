package prefs

import (
	"context"
	"testing"

	"github.com/robalobadob/wordripple/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.OpenMigrated(db.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestLoadUnknownDevice(t *testing.T) {
	s := newStore(t)
	p, err := s.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p != (Prefs{}) {
		t.Fatalf("expected zero prefs, got %+v", p)
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SetLastJourneyDate(ctx, "dev1", "2026-10-16"); err != nil {
		t.Fatalf("set date: %v", err)
	}
	if err := s.SetSeenOnboarding(ctx, "dev1"); err != nil {
		t.Fatalf("set seen: %v", err)
	}
	if err := s.SetLastJourneyDate(ctx, "dev1", "2026-10-17"); err != nil {
		t.Fatalf("update date: %v", err)
	}

	p, err := s.Load(ctx, "dev1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Prefs{SeenOnboarding: true, LastJourneyDate: "2026-10-17"}
	if p != want {
		t.Fatalf("got %+v want %+v", p, want)
	}

	other, _ := s.Load(ctx, "dev2")
	if other.SeenOnboarding {
		t.Fatal("preferences leaked across devices")
	}
}

package gate

import (
	"context"
	"testing"
	"time"

	"github.com/robalobadob/wordripple/internal/clock/clocktest"
	"github.com/robalobadob/wordripple/internal/db"
	"github.com/robalobadob/wordripple/internal/identity"
	"github.com/robalobadob/wordripple/internal/prefs"
	"github.com/robalobadob/wordripple/internal/puzzle"
)

func newGate(t *testing.T) (*Gate, *RemoteStore) {
	t.Helper()
	conn, err := db.OpenMigrated(db.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	remote := NewRemoteStore(conn)
	return New(remote, prefs.NewStore(conn)), remote
}

var (
	today    = puzzle.Date{Year: 2026, Month: time.October, Day: 17}
	tomorrow = puzzle.Date{Year: 2026, Month: time.October, Day: 18}
)

func TestAnonymousUsesDevicePrefs(t *testing.T) {
	g, remote := newGate(t)
	ctx := context.Background()

	done, err := g.IsCompletedToday(ctx, "dev1", nil, today)
	if err != nil || done {
		t.Fatalf("fresh device: done=%v err=%v", done, err)
	}
	if err := g.MarkCompletedToday(ctx, "dev1", nil, today); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if done, _ := g.IsCompletedToday(ctx, "dev1", nil, today); !done {
		t.Fatal("expected completion for today")
	}
	if done, _ := g.IsCompletedToday(ctx, "dev1", nil, tomorrow); done {
		t.Fatal("completion must not carry over to the next day")
	}
	if h, _ := remote.History(ctx, "dev1", 0); len(h) != 0 {
		t.Fatal("anonymous completion written remotely")
	}
}

func TestUnverifiedIdentityIsAnonymous(t *testing.T) {
	g, remote := newGate(t)
	ctx := context.Background()
	who := &identity.Identity{ID: "u1"}
	if err := g.MarkCompletedToday(ctx, "dev1", who, today); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if done, _ := remote.IsCompleted(ctx, "u1", today.String()); done {
		t.Fatal("unverified identity used the remote store")
	}
}

func TestAuthenticatedUsesRemoteStore(t *testing.T) {
	g, remote := newGate(t)
	ctx := context.Background()
	who := &identity.Identity{ID: "u1", Verified: true}

	if err := g.MarkCompletedToday(ctx, "dev1", who, today); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := g.MarkCompletedToday(ctx, "dev1", who, today); err != nil {
		t.Fatalf("repeat mark: %v", err)
	}
	if done, _ := g.IsCompletedToday(ctx, "dev2", who, today); !done {
		t.Fatal("account completion should follow the player across devices")
	}
	if done, _ := g.IsCompletedToday(ctx, "dev1", nil, today); done {
		t.Fatal("account completion leaked to the anonymous device record")
	}
	h, err := remote.History(ctx, "u1", 10)
	if err != nil || len(h) != 1 || h[0].Date != "2026-10-17" {
		t.Fatalf("history = %+v err=%v", h, err)
	}
}

func TestWatchMidnight(t *testing.T) {
	sched := clocktest.New()
	base := time.Date(2026, time.October, 17, 23, 59, 0, 0, time.UTC)
	cal := puzzle.Calendar{
		Now:      func() time.Time { return base.Add(sched.Now()) },
		Location: time.UTC,
	}

	var seen []puzzle.Date
	stop := WatchMidnight(cal, sched, func(d puzzle.Date) { seen = append(seen, d) })

	sched.Advance(59 * time.Second)
	if len(seen) != 0 {
		t.Fatal("fired before midnight")
	}
	sched.Advance(time.Second)
	if len(seen) != 1 || seen[0] != tomorrow {
		t.Fatalf("seen = %v", seen)
	}
	sched.Advance(24 * time.Hour)
	if len(seen) != 2 || seen[1].Day != 19 {
		t.Fatalf("second midnight: %v", seen)
	}

	stop()
	sched.Advance(48 * time.Hour)
	if len(seen) != 2 {
		t.Fatal("watcher fired after stop")
	}
}

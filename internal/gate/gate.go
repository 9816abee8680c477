// internal/gate/gate.go
//
// Journey completion gate: one finished Journey per player per calendar day.
//
// Backing store depends on who is playing:
//   - authenticated (signed in and verified) → journey_completions table
//   - anonymous → the device's last_journey_date preference
//
// Signing in mid-day therefore switches to the account's record; an anonymous
// completion does not lock the account, and vice versa.

package gate

import (
	"context"
	"fmt"

	"github.com/robalobadob/wordripple/internal/identity"
	"github.com/robalobadob/wordripple/internal/prefs"
	"github.com/robalobadob/wordripple/internal/puzzle"
)

// LocalStore is the device preference store used for anonymous players.
type LocalStore interface {
	Load(ctx context.Context, deviceID string) (prefs.Prefs, error)
	SetLastJourneyDate(ctx context.Context, deviceID, date string) error
}

// Gate answers and records daily Journey completion.
type Gate struct {
	remote *RemoteStore
	local  LocalStore
}

func New(remote *RemoteStore, local LocalStore) *Gate {
	return &Gate{remote: remote, local: local}
}

// IsCompletedToday reports whether the player already finished day's Journey.
func (g *Gate) IsCompletedToday(ctx context.Context, deviceID string, who *identity.Identity, day puzzle.Date) (bool, error) {
	if who.Authenticated() {
		done, err := g.remote.IsCompleted(ctx, who.ID, day.String())
		if err != nil {
			return false, fmt.Errorf("remote completion check: %w", err)
		}
		return done, nil
	}
	p, err := g.local.Load(ctx, deviceID)
	if err != nil {
		return false, fmt.Errorf("local completion check: %w", err)
	}
	return p.LastJourneyDate == day.String(), nil
}

// MarkCompletedToday records that the player finished day's Journey.
func (g *Gate) MarkCompletedToday(ctx context.Context, deviceID string, who *identity.Identity, day puzzle.Date) error {
	if who.Authenticated() {
		if err := g.remote.MarkCompleted(ctx, who.ID, day.String()); err != nil {
			return fmt.Errorf("remote completion mark: %w", err)
		}
		return nil
	}
	return g.local.SetLastJourneyDate(ctx, deviceID, day.String())
}

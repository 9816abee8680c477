// internal/prefs/prefs.go
//
// Per-device persisted preferences, keyed by the anonymous device cookie.
//
// Two values live here:
//   - seen_onboarding:   whether the help overlay was dismissed once; read at
//                        session creation so first-time players start paused.
//   - last_journey_date: the anonymous player's last completed Journey day
//                        (YYYY-MM-DD); the local half of the completion gate.

package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Prefs is one device's stored preferences. The zero value is a fresh device.
type Prefs struct {
	SeenOnboarding  bool
	LastJourneyDate string
}

// Store reads and writes device_prefs rows.
type Store struct{ db *sql.DB }

// NewStore returns a Store over an already-migrated database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Load returns the preferences for deviceID; unknown devices get the zero value.
func (s *Store) Load(ctx context.Context, deviceID string) (Prefs, error) {
	var p Prefs
	var seen int
	err := s.db.QueryRowContext(ctx,
		`SELECT seen_onboarding, last_journey_date FROM device_prefs WHERE device_id=?`,
		deviceID,
	).Scan(&seen, &p.LastJourneyDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Prefs{}, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("load prefs: %w", err)
	}
	p.SeenOnboarding = seen != 0
	return p, nil
}

// SetSeenOnboarding records that the device dismissed the onboarding overlay.
func (s *Store) SetSeenOnboarding(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO device_prefs (device_id, seen_onboarding) VALUES (?, 1)
        ON CONFLICT(device_id) DO UPDATE SET seen_onboarding = 1`,
		deviceID,
	)
	if err != nil {
		return fmt.Errorf("set seen onboarding: %w", err)
	}
	return nil
}

// SetLastJourneyDate records the day the device last completed a Journey.
func (s *Store) SetLastJourneyDate(ctx context.Context, deviceID, date string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO device_prefs (device_id, last_journey_date) VALUES (?, ?)
        ON CONFLICT(device_id) DO UPDATE SET last_journey_date = excluded.last_journey_date`,
		deviceID, date,
	)
	if err != nil {
		return fmt.Errorf("set last journey date: %w", err)
	}
	return nil
}

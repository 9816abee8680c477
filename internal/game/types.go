// internal/game/types.go
//
// Core type definitions for the Word Ripple session.
// Defines:
//   - Mode:     classic (countdown) or journey (daily start → target puzzle).
//   - Status:   active → fading_out (classic expiry grace) → over.
//   - Snapshot: read-only view of a session, safe to serialize.
//   - Event:    notifications pushed to subscribers (UI websocket).

package game

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the rule set of a session.
type Mode string

const (
	ModeClassic Mode = "classic"
	ModeJourney Mode = "journey"
)

// ParseMode accepts "classic" or "journey" (any case). Empty input yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case ModeClassic:
		return ModeClassic, nil
	case ModeJourney:
		return ModeJourney, nil
	}
	return "", fmt.Errorf("game: unknown mode %q", s)
}

// Other returns the mode a toggle switches to.
func (m Mode) Other() Mode {
	if m == ModeJourney {
		return ModeClassic
	}
	return ModeJourney
}

// Status is the coarse lifecycle of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusFadingOut Status = "fading_out"
	StatusOver      Status = "over"
)

var (
	// ErrNotActive is returned when a word is submitted to a session that is
	// fading out, over, or locked.
	ErrNotActive = errors.New("game: session is not accepting words")
	// ErrStaleResponse means the session was reset while a submission was
	// being validated; the result was discarded.
	ErrStaleResponse = errors.New("game: stale response discarded")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("game: session closed")
)

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID             string   `json:"id"`
	Generation     uint64   `json:"generation"`
	Mode           Mode     `json:"mode"`
	Status         Status   `json:"status"`
	CurrentWord    string   `json:"currentWord"`
	TargetWord     string   `json:"targetWord,omitempty"`
	PuzzleDate     string   `json:"puzzleDate,omitempty"`
	Score          int      `json:"score"`
	Chain          []string `json:"chain"`
	Remaining      int      `json:"remaining"`
	Elapsed        int      `json:"elapsed"`
	ClockState     string   `json:"clockState"`
	Paused         bool     `json:"paused"`
	HelpOpen       bool     `json:"helpOpen"`
	DailyCompleted bool     `json:"dailyCompleted"`
	Locked         bool     `json:"locked"`
	ScoreSubmitted bool     `json:"scoreSubmitted"`
	Message        string   `json:"message,omitempty"`
}

// EventType names a session notification.
type EventType string

const (
	EventReset            EventType = "reset"
	EventLocked           EventType = "locked"
	EventClockStarted     EventType = "clock_started"
	EventTick             EventType = "tick"
	EventAccepted         EventType = "accepted"
	EventRejected         EventType = "rejected"
	EventFadingOut        EventType = "fading_out"
	EventOver             EventType = "over"
	EventJourneyCompleted EventType = "journey_completed"
	EventPaused           EventType = "paused"
	EventResumed          EventType = "resumed"
)

// Event is pushed to subscribers after every state change.
type Event struct {
	Type     EventType `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Message  string    `json:"message,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
}

// internal/scores/scores.go
//
// Score persistence and leaderboard.
//
// Rules:
//   - Only authenticated (verified) players submit scores.
//   - Scores below 1 are never written; the table enforces score > 0 too.
//   - The leaderboard shows each player's best score, ranked by score DESC,
//     ties broken by the earliest time that score was reached.
//   - Missing display names render as "Anonymous".

package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/robalobadob/wordripple/internal/identity"
)

const (
	// DefaultLimit is the leaderboard size when the caller passes <= 0.
	DefaultLimit = 20
	// MaxLimit caps leaderboard requests.
	MaxLimit = 100

	anonymousName = "Anonymous"

	// Fixed-width so timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrNotAuthenticated = errors.New("scores: player is not authenticated")
	ErrNonPositive      = errors.New("scores: score must be at least 1")
)

// Entry is one leaderboard row.
type Entry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Timestamp   string `json:"timestamp"`
}

// Store persists scores in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// SubmitScore records a final score for who.
func (s *Store) SubmitScore(ctx context.Context, who *identity.Identity, score int) error {
	if !who.Authenticated() {
		return ErrNotAuthenticated
	}
	if score < 1 {
		return ErrNonPositive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (user_id, display_name, score, created_at) VALUES (?,?,?,?)`,
		who.ID, strings.TrimSpace(who.DisplayName), score, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

type bestRow struct {
	name      string
	score     int
	createdAt string
}

// Leaderboard returns the top players' best scores.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// For each player: highest score, earliest time it was reached.
	rows, err := s.db.QueryContext(ctx, `
        SELECT TRIM(s.display_name), s.score, MIN(s.created_at)
        FROM scores s
        JOIN (SELECT user_id, MAX(score) AS best FROM scores GROUP BY user_id) b
          ON b.user_id = s.user_id AND b.best = s.score
        GROUP BY s.user_id
        ORDER BY s.score DESC, MIN(s.created_at) ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var best []bestRow
	for rows.Next() {
		var r bestRow
		if err := rows.Scan(&r.name, &r.score, &r.createdAt); err != nil {
			return nil, err
		}
		best = append(best, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lo.Map(best, func(r bestRow, i int) Entry {
		return Entry{
			Rank:        i + 1,
			DisplayName: lo.Ternary(r.name == "", anonymousName, r.name),
			Score:       r.score,
			Timestamp:   r.createdAt,
		}
	}), nil
}

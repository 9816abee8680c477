package gate

import (
	"context"
	"database/sql"
	"time"
)

// Completion is one authenticated player's finished Journey day.
type Completion struct {
	UserID      string `json:"userId"`
	Date        string `json:"date"`
	CompletedAt string `json:"completedAt"`
}

// RemoteStore keeps Journey completions for authenticated players.
type RemoteStore struct{ db *sql.DB }

func NewRemoteStore(db *sql.DB) *RemoteStore { return &RemoteStore{db: db} }

// IsCompleted reports whether userID finished the Journey on date (YYYY-MM-DD).
func (s *RemoteStore) IsCompleted(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM journey_completions WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// MarkCompleted records a completion. Repeats for the same day are ignored.
func (s *RemoteStore) MarkCompleted(ctx context.Context, userID, date string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO journey_completions(user_id, date, completed_at)
		VALUES(?,?,?)`, userID, date, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// History returns a player's most recent completions, newest first.
func (s *RemoteStore) History(ctx context.Context, userID string, limit int) ([]Completion, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, completed_at
		FROM journey_completions
		WHERE user_id=?
		ORDER BY date DESC
		LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.UserID, &c.Date, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// internal/httpserver/routes_leaderboard.go
//
// GET /leaderboard?limit=N → best classic score per player, highest first,
// ties broken by who reached it first.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/scores"
)

// lbRes is returned by /leaderboard.
type lbRes struct {
	Top []scores.Entry `json:"top"`
}

func (s *Server) mountLeaderboard(r chi.Router) {
	r.Get("/leaderboard", s.handleLeaderboard)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := scores.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	top, err := s.deps.Scores.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	if top == nil {
		top = []scores.Entry{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Top: top})
}

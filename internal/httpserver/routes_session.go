// internal/httpserver/routes_session.go
//
// HTTP routes that drive a device's live game session:
//   - POST /session          → get or create the session (optionally reset into mode)
//   - GET  /session          → current snapshot
//   - POST /session/reset    → new game (Journey shows the locked view once done today)
//   - POST /session/toggle   → switch classic ↔ journey
//   - POST /session/keypress → first input change; starts the clock lazily
//   - POST /session/help     → open/close the help overlay (pauses the clock)
//   - POST /session/submit   → submit a word (rate limited)
//
// Each browser is identified by a long-lived device cookie; the device owns at
// most one session. Sessions live in memory and are swept when idle.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/game"
	"github.com/robalobadob/wordripple/internal/identity"
	"github.com/robalobadob/wordripple/internal/store"
	"github.com/robalobadob/wordripple/internal/validator"
)

const deviceCookieName = "wordripple_device"

// mountSession registers the /session routes.
func (s *Server) mountSession(r chi.Router) {
	r.Post("/session", s.handleStart)
	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/session", s.handleSnapshot)
		r.Post("/session/reset", s.handleReset)
		r.Post("/session/toggle", s.handleToggle)
		r.Post("/session/keypress", s.handleKeyPress)
		r.Post("/session/help", s.handleHelp)
		r.With(s.rateLimitSubmit).Post("/session/submit", s.handleSubmit)
	})
}

// ------------------------------- device ------------------------------------

// deviceFromRequest returns the device cookie value, or "".
func deviceFromRequest(r *http.Request) string {
	if c, err := r.Cookie(deviceCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ensureDeviceID returns an existing device cookie or sets a new one.
func (s *Server) ensureDeviceID(w http.ResponseWriter, r *http.Request) string {
	if id := deviceFromRequest(r); id != "" {
		return id
	}
	id := uuid.NewString()
	secure, sameSite := s.cookieSecurity()
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// ------------------------------- session -----------------------------------

type ctxSessionKey struct{}

func sessionFrom(r *http.Request) *game.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*game.Session)
	return sess
}

// sessionFor returns the device's session, creating it in mode when missing.
// The request identity is published to the session either way.
func (s *Server) sessionFor(ctx context.Context, device string, who *identity.Identity, mode game.Mode) (*game.Session, bool, error) {
	if sess, err := s.deps.Sessions.Get(ctx, device); err == nil {
		sess.Identity().Set(who)
		return sess, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()
	if sess, err := s.deps.Sessions.Get(ctx, device); err == nil {
		sess.Identity().Set(who)
		return sess, false, nil
	}

	seen := false
	if s.deps.Prefs != nil {
		p, err := s.deps.Prefs.Load(ctx, device)
		if err != nil {
			log.Warn().Err(err).Str("device", device).Msg("load prefs")
		}
		seen = p.SeenOnboarding
	}
	holder := identity.NewHolder()
	holder.Set(who)

	sess, err := game.New(ctx, s.deps.Game, game.Options{
		DeviceID:       device,
		Mode:           mode,
		ClassicSeconds: s.cfg.ClassicSeconds,
		TickInterval:   s.cfg.TickInterval,
		FadeGrace:      s.cfg.FadeGrace,
		Award:          s.cfg.ScoreAward,
		SeenOnboarding: seen,
		Identity:       holder,
	})
	if err != nil {
		return nil, false, err
	}
	if err := s.deps.Sessions.Save(ctx, device, sess); err != nil {
		sess.Close()
		return nil, false, err
	}
	log.Info().Str("session", sess.ID()).Str("device", device).Str("mode", string(mode)).Msg("session created")
	return sess, true, nil
}

// withSession resolves (or creates) the device's session into the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dev := s.ensureDeviceID(w, r)
		sess, _, err := s.sessionFor(r.Context(), dev, currentIdentity(r), game.ModeClassic)
		if err != nil {
			log.Error().Err(err).Str("device", dev).Msg("resolve session")
			http.Error(w, `{"error":"session_unavailable"}`, http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSessionKey{}, sess)))
	})
}

// modeReq is the optional body of POST /session and /session/reset.
type modeReq struct {
	Mode string `json:"mode"`
}

func decodeMode(r *http.Request) (game.Mode, error) {
	var req modeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return game.ParseMode(req.Mode, "")
}

// handleStart gets or creates the session; a mode in the body resets into it.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	mode, err := decodeMode(r)
	if err != nil {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	dev := s.ensureDeviceID(w, r)
	createMode := mode
	if createMode == "" {
		createMode = game.ModeClassic
	}
	sess, created, err := s.sessionFor(r.Context(), dev, currentIdentity(r), createMode)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if created || mode == "" {
		_ = json.NewEncoder(w).Encode(sess.Snapshot())
		return
	}
	snap, err := sess.Reset(r.Context(), mode)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	mode, err := decodeMode(r)
	if err != nil {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	snap, err := sessionFrom(r).Reset(r.Context(), mode)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	snap, err := sessionFrom(r).ToggleMode(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleKeyPress(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).KeyPress())
}

type helpReq struct {
	Open bool `json:"open"`
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	var req helpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(sessionFrom(r).SetHelpOpen(req.Open))
}

// submitReq/Res payloads for POST /session/submit.
type submitReq struct {
	Word string `json:"word"`
}
type submitRes struct {
	Accepted bool             `json:"accepted"`
	Reason   validator.Reason `json:"reason,omitempty"`
	Message  string           `json:"message"`
	Snapshot game.Snapshot    `json:"snapshot"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out, snap, err := sessionFrom(r).Submit(r.Context(), req.Word)
	switch {
	case errors.Is(err, game.ErrNotActive):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "not_active", "snapshot": snap})
		return
	case errors.Is(err, game.ErrStaleResponse):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "stale_response", "snapshot": snap})
		return
	case err != nil:
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(submitRes{
		Accepted: out.Accepted,
		Reason:   out.Reason,
		Message:  out.Message(),
		Snapshot: snap,
	})
}

// writeSessionError maps session errors to JSON error responses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrClosed):
		http.Error(w, `{"error":"session_closed"}`, http.StatusGone)
	default:
		log.Error().Err(err).Msg("session operation failed")
		http.Error(w, `{"error":"session_failed"}`, http.StatusInternalServerError)
	}
}

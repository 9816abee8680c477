package game

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/clock"
)

// startClockLocked starts the clock on first input and schedules its ticks.
// Ticks are bound to the current generation.
func (s *Session) startClockLocked() {
	if !s.clk.Start() {
		return
	}
	gen := s.generation
	s.stopTicks = s.deps.Scheduler.Every(s.opts.TickInterval, func() { s.onTick(gen) })
	s.emitLocked(Event{Type: EventClockStarted})
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return
	}
	switch s.clk.Tick() {
	case clock.TickAdvanced:
		s.emitLocked(Event{Type: EventTick})
	case clock.TickExpired:
		s.expireLocked(gen)
	}
}

// expireLocked freezes the score and starts the fade-out grace period.
func (s *Session) expireLocked(gen uint64) {
	if s.stopTicks != nil {
		s.stopTicks()
		s.stopTicks = nil
	}
	s.status = StatusFadingOut
	log.Info().Str("session", s.id).Int("score", s.score).Msg("time expired")
	s.emitLocked(Event{Type: EventFadingOut})
	s.stopFade = s.deps.Scheduler.After(s.opts.FadeGrace, func() { s.settle(gen) })
}

// settle ends the grace period: the session is over and the score is submitted.
func (s *Session) settle(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.status != StatusFadingOut {
		s.mu.Unlock()
		return
	}
	s.stopFade = nil
	if err := s.clk.Settle(); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("settle clock")
	}
	s.status = StatusOver
	flush := s.flushScoreLocked()
	s.emitLocked(Event{Type: EventOver})
	s.mu.Unlock()

	if flush != nil {
		flush()
	}
}

// flushScoreLocked returns the job submitting the classic score once the
// clock has expired, or nil. The idempotency flag is set whether or not the
// player is eligible, so a score is considered at most once per game.
func (s *Session) flushScoreLocked() func() {
	if s.mode != ModeClassic || s.scoreSubmitted || s.clk == nil {
		return nil
	}
	if st := s.clk.State(); st != clock.StateExpiring && st != clock.StateExpired {
		return nil
	}
	s.scoreSubmitted = true

	who := s.opts.Identity.Current()
	score := s.score
	if score < 1 || !who.Authenticated() {
		log.Debug().Str("session", s.id).Int("score", score).Msg("score not submitted")
		return nil
	}
	return func() {
		s.deps.Runner.Run("submit_score", func(ctx context.Context) error {
			return s.deps.Scores.SubmitScore(ctx, who, score)
		})
	}
}

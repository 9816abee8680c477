// internal/game/session.go
//
// Session orchestrates one player's game: mode, current/target word, score,
// word chain, clock and lifecycle status.
//
// Concurrency model:
//   - Every mutation runs to completion under s.mu (submission result, tick,
//     expiry, keypress, help toggle, identity change, midnight).
//   - Collaborator calls (relatedness, gate, score, prefs) run without s.mu.
//   - A generation counter is bumped on every reset/toggle/close. Work started
//     under an older generation (validation results, ticks, expiry grace) is
//     discarded when it comes back.
//   - Submissions are serialized per session by submitMu, so checks within one
//     submission see a consistent chain.
//
// Remote writes (score submission, completion mark, onboarding flag) go to the
// Runner and never block gameplay. Local state stays authoritative when they fail.

package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/clock"
	"github.com/robalobadob/wordripple/internal/gate"
	"github.com/robalobadob/wordripple/internal/identity"
	"github.com/robalobadob/wordripple/internal/ledger"
	"github.com/robalobadob/wordripple/internal/puzzle"
	"github.com/robalobadob/wordripple/internal/validator"
	"github.com/robalobadob/wordripple/internal/word"
	"github.com/robalobadob/wordripple/internal/worker"
)

// Dictionary is the word list used for validation and classic start words.
type Dictionary interface {
	IsValidWord(w string) bool
	Random() string
}

// Puzzles produces the daily Journey puzzle.
type Puzzles interface {
	Generate(d puzzle.Date) (puzzle.Puzzle, error)
}

// Gate records one completed Journey per player per day.
type Gate interface {
	IsCompletedToday(ctx context.Context, deviceID string, who *identity.Identity, day puzzle.Date) (bool, error)
	MarkCompletedToday(ctx context.Context, deviceID string, who *identity.Identity, day puzzle.Date) error
}

// ScoreSink receives final classic scores.
type ScoreSink interface {
	SubmitScore(ctx context.Context, who *identity.Identity, score int) error
}

// PrefsWriter persists the onboarding-seen flag.
type PrefsWriter interface {
	SetSeenOnboarding(ctx context.Context, deviceID string) error
}

// Runner executes persistence jobs off the gameplay path.
type Runner interface {
	Run(op string, job worker.Job)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Dict      Dictionary
	Relater   validator.Relater
	Puzzles   Puzzles
	Gate      Gate
	Scores    ScoreSink
	Prefs     PrefsWriter
	Scheduler clock.Scheduler
	Runner    Runner
	Calendar  puzzle.Calendar
}

// Options are per-session settings.
type Options struct {
	DeviceID       string
	Mode           Mode
	ClassicSeconds int
	TickInterval   time.Duration
	FadeGrace      time.Duration
	Award          int
	SeenOnboarding bool
	Identity       *identity.Holder
}

func (o *Options) defaults() {
	if o.Mode == "" {
		o.Mode = ModeClassic
	}
	if o.ClassicSeconds <= 0 {
		o.ClassicSeconds = 300
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.FadeGrace < 0 {
		o.FadeGrace = 0
	}
	if o.Award <= 0 {
		o.Award = 10
	}
	if o.Identity == nil {
		o.Identity = identity.NewHolder()
	}
}

// ioTimeout bounds gate lookups made from background callbacks.
const ioTimeout = 5 * time.Second

// Session is one player's live game. Safe for concurrent use.
type Session struct {
	id        string
	deps      Deps
	opts      Options
	validator *validator.Validator

	submitMu sync.Mutex

	mu             sync.Mutex
	closed         bool
	generation     uint64
	mode           Mode
	status         Status
	current        word.Word
	target         word.Word
	date           puzzle.Date
	score          int
	chain          *ledger.Ledger
	clk            *clock.Clock
	stopTicks      func()
	stopFade       func()
	helpOpen       bool
	seenOnboarding bool
	dailyCompleted bool
	finished       *journeyBoard // last Journey finished in this session
	scoreSubmitted bool
	message        string
	lastAccess     time.Time

	subs    map[int]chan Event
	nextSub int

	unsubIdentity func()
	stopMidnight  func()
}

// New creates a session in opts.Mode. First-time players (SeenOnboarding
// false) start with the help overlay open, so the clock is paused.
func New(ctx context.Context, deps Deps, opts Options) (*Session, error) {
	opts.defaults()
	if deps.Scheduler == nil {
		deps.Scheduler = clock.Real{}
	}
	s := &Session{
		id:             uuid.NewString(),
		deps:           deps,
		opts:           opts,
		validator:      validator.New(deps.Dict, deps.Relater),
		chain:          ledger.New(word.Word{}),
		helpOpen:       !opts.SeenOnboarding,
		seenOnboarding: opts.SeenOnboarding,
		subs:           make(map[int]chan Event),
		lastAccess:     time.Now(),
	}
	if _, err := s.Reset(ctx, opts.Mode); err != nil {
		return nil, err
	}
	s.unsubIdentity = opts.Identity.Subscribe(s.onIdentityChange)
	s.stopMidnight = gate.WatchMidnight(deps.Calendar, deps.Scheduler, s.onMidnight)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Identity returns the holder of this player's identity.
func (s *Session) Identity() *identity.Holder { return s.opts.Identity }

// LastAccess returns when a player last interacted with the session.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		Generation:     s.generation,
		Mode:           s.mode,
		Status:         s.status,
		CurrentWord:    s.current.Display(),
		Score:          s.score,
		Chain:          s.chain.Display(),
		Remaining:      s.clk.Remaining(),
		Elapsed:        s.clk.Elapsed(),
		ClockState:     s.clk.State(),
		Paused:         s.clk.Paused(),
		HelpOpen:       s.helpOpen,
		DailyCompleted: s.dailyCompleted,
		Locked:         s.mode == ModeJourney && s.dailyCompleted,
		ScoreSubmitted: s.scoreSubmitted,
		Message:        s.message,
	}
	if s.mode == ModeJourney {
		snap.TargetWord = s.target.Display()
		snap.PuzzleDate = s.date.String()
	}
	return snap
}

func (s *Session) touchLocked() { s.lastAccess = time.Now() }

// ---------------------------------------------------------------------------
// Reset / toggle

// journeyPlan is the I/O result gathered before a journey reset is applied.
type journeyPlan struct {
	puzzle    puzzle.Puzzle
	completed bool
	who       string // identity key the completion check ran for
}

// journeyBoard is a finished Journey, restored by the locked view.
type journeyBoard struct {
	date    puzzle.Date
	by      string // identity key that finished it, "" for anonymous
	current word.Word
	score   int
	chain   *ledger.Ledger
	clk     *clock.Clock
}

func (s *Session) planJourney(ctx context.Context, who *identity.Identity) (journeyPlan, error) {
	today := s.deps.Calendar.Today()
	p, err := s.deps.Puzzles.Generate(today)
	if err != nil {
		return journeyPlan{}, err
	}
	done, err := s.deps.Gate.IsCompletedToday(ctx, s.opts.DeviceID, who, today)
	if err != nil {
		log.Warn().Err(&worker.PersistenceError{Op: "completion_check", Err: err}).
			Str("session", s.id).Msg("completion check failed")
		done = false
	}
	// The completion mark may still be queued; what this session saw wins.
	s.mu.Lock()
	if b := s.finished; b != nil && b.date == today && b.by == who.Key() {
		done = true
	}
	s.mu.Unlock()
	return journeyPlan{puzzle: p, completed: done, who: who.Key()}, nil
}

// Reset starts a new game in mode. Resetting into a Journey that was already
// completed today keeps the board and shows the locked view instead.
func (s *Session) Reset(ctx context.Context, mode Mode) (Snapshot, error) {
	if mode == "" {
		mode = s.Snapshot().Mode
		if mode == "" {
			mode = s.opts.Mode
		}
	}

	var (
		plan  journeyPlan
		start word.Word
	)
	if mode == ModeJourney {
		p, err := s.planJourney(ctx, s.opts.Identity.Current())
		if err != nil {
			return Snapshot{}, err
		}
		plan = p
	} else {
		start = word.New(s.deps.Dict.Random())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	s.touchLocked()
	flush := s.flushScoreLocked()

	if mode == ModeJourney && plan.completed {
		s.enterLockedLocked(plan)
	} else {
		s.startFreshLocked(mode, start, plan.puzzle)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if flush != nil {
		flush()
	}
	return snap, nil
}

// ToggleMode switches classic ↔ journey.
func (s *Session) ToggleMode(ctx context.Context) (Snapshot, error) {
	return s.Reset(ctx, s.Snapshot().Mode.Other())
}

// cancelTimersLocked stops every scheduled callback of the current clock.
func (s *Session) cancelTimersLocked() {
	if s.stopTicks != nil {
		s.stopTicks()
		s.stopTicks = nil
	}
	if s.stopFade != nil {
		s.stopFade()
		s.stopFade = nil
	}
}

func (s *Session) newClockLocked() {
	if s.mode == ModeJourney {
		s.clk = clock.NewStopwatch()
	} else {
		s.clk = clock.NewCountdown(s.opts.ClassicSeconds)
	}
	if s.helpOpen {
		s.clk.Pause()
	}
}

func (s *Session) startFreshLocked(mode Mode, start word.Word, p puzzle.Puzzle) {
	s.generation++
	s.cancelTimersLocked()
	s.mode = mode
	s.status = StatusActive
	s.score = 0
	s.scoreSubmitted = false
	s.dailyCompleted = false
	s.message = ""
	if mode == ModeJourney {
		start = p.Start
		s.target = p.Target
		s.date = p.Date
	} else {
		s.target = word.Word{}
		s.date = puzzle.Date{}
	}
	s.current = start
	s.chain.Reset(start)
	s.newClockLocked()

	log.Debug().Str("session", s.id).Str("mode", string(mode)).Str("word", start.Display()).
		Uint64("generation", s.generation).Msg("session reset")
	s.emitLocked(Event{Type: EventReset})
}

// enterLockedLocked shows today's completed Journey. The board this session
// finished is restored when it belongs to plan's player; otherwise the
// puzzle's start word is shown with no score.
func (s *Session) enterLockedLocked(plan journeyPlan) {
	p := plan.puzzle
	if s.mode == ModeJourney && s.dailyCompleted && s.date == p.Date {
		return
	}
	s.generation++
	s.cancelTimersLocked()
	s.mode = ModeJourney
	s.target = p.Target
	s.date = p.Date
	s.message = ""
	if b := s.finished; b != nil && b.date == p.Date && b.by == plan.who {
		s.current, s.score = b.current, b.score
		s.chain = b.chain.Clone()
		s.clk = b.clk
	} else {
		s.current, s.score = p.Start, 0
		s.chain.Reset(p.Start)
		s.clk = clock.NewStopwatch()
		_ = s.clk.Complete()
	}
	if s.helpOpen {
		s.clk.Pause()
	}
	s.dailyCompleted = true
	s.status = StatusOver

	log.Debug().Str("session", s.id).Str("date", p.Date.String()).Msg("journey locked for today")
	s.emitLocked(Event{Type: EventLocked})
}

// ---------------------------------------------------------------------------
// Submission

// Submit validates raw against the current word and applies the outcome.
func (s *Session) Submit(ctx context.Context, raw string) (validator.Outcome, Snapshot, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return validator.Outcome{}, Snapshot{}, ErrClosed
	}
	s.touchLocked()
	if s.status != StatusActive {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return validator.Outcome{}, snap, ErrNotActive
	}
	s.startClockLocked()
	gen := s.generation
	st := validator.State{Current: s.current, Chain: s.chain.Clone()}
	s.mu.Unlock()

	out := s.validator.Validate(ctx, word.New(raw), st)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return out, Snapshot{}, ErrClosed
	}
	if gen != s.generation {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		log.Debug().Str("session", s.id).Str("word", out.Word.Display()).
			Uint64("generation", gen).Msg("stale submission discarded")
		return out, snap, ErrStaleResponse
	}
	if s.status != StatusActive {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return out, snap, ErrNotActive
	}

	var jobs []func()
	if out.Accepted {
		if err := s.chain.Append(out.Word); errors.Is(err, ledger.ErrDuplicate) {
			out.Accepted = false
			out.Reason = validator.ReasonDuplicate
		}
	}
	s.message = out.Message()
	if out.Accepted {
		s.score += s.opts.Award
		s.current = out.Word
		s.emitLocked(Event{Type: EventAccepted, Message: s.message})
		if s.mode == ModeJourney && out.Word.Equal(s.target) {
			jobs = append(jobs, s.completeJourneyLocked())
		}
	} else {
		s.emitLocked(Event{Type: EventRejected, Reason: string(out.Reason), Message: s.message})
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, job := range jobs {
		job()
	}
	return out, snap, nil
}

// completeJourneyLocked stops the stopwatch for good and returns the job that
// records today's completion.
func (s *Session) completeJourneyLocked() func() {
	s.cancelTimersLocked()
	if err := s.clk.Complete(); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("complete clock")
	}
	s.dailyCompleted = true
	s.status = StatusOver
	who := s.opts.Identity.Current()
	s.finished = &journeyBoard{
		date:    s.date,
		by:      who.Key(),
		current: s.current,
		score:   s.score,
		chain:   s.chain.Clone(),
		clk:     s.clk,
	}
	log.Info().Str("session", s.id).Str("date", s.date.String()).Int("score", s.score).Msg("journey completed")
	s.emitLocked(Event{Type: EventJourneyCompleted})

	device, day := s.opts.DeviceID, s.date
	return func() {
		s.deps.Runner.Run("mark_journey_completed", func(ctx context.Context) error {
			return s.deps.Gate.MarkCompletedToday(ctx, device, who, day)
		})
	}
}

// ---------------------------------------------------------------------------
// Input and overlay

// KeyPress records the first input change; it starts the clock lazily.
func (s *Session) KeyPress() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if !s.closed && s.status == StatusActive {
		s.startClockLocked()
	}
	return s.snapshotLocked()
}

// SetHelpOpen opens or closes the help/onboarding overlay. The clock never
// advances while it is open. Closing it the first time persists the
// onboarding-seen flag.
func (s *Session) SetHelpOpen(open bool) Snapshot {
	s.mu.Lock()
	s.touchLocked()
	var persist bool
	if open != s.helpOpen {
		s.helpOpen = open
		if open {
			s.clk.Pause()
			s.emitLocked(Event{Type: EventPaused})
		} else {
			s.clk.Resume()
			s.emitLocked(Event{Type: EventResumed})
			if !s.seenOnboarding {
				s.seenOnboarding = true
				persist = true
			}
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if persist && s.deps.Prefs != nil && s.opts.DeviceID != "" {
		device := s.opts.DeviceID
		s.deps.Runner.Run("set_seen_onboarding", func(ctx context.Context) error {
			return s.deps.Prefs.SetSeenOnboarding(ctx, device)
		})
	}
	return snap
}

// ---------------------------------------------------------------------------
// Background re-evaluation

// onIdentityChange re-checks the daily lock for the new player.
func (s *Session) onIdentityChange(_ *identity.Identity) {
	s.reevaluateLock("identity_change")
}

// onMidnight re-checks the daily lock when the calendar day rolls over.
func (s *Session) onMidnight(day puzzle.Date) {
	log.Debug().Str("session", s.id).Str("date", day.String()).Msg("midnight")
	s.reevaluateLock("midnight")
}

// reevaluateLock locks a Journey whose current identity already finished today
// (e.g. signing into such an account) and unlocks a locked one that no longer
// is (new day, or signing out).
func (s *Session) reevaluateLock(cause string) {
	snap := s.Snapshot()
	if snap.Mode != ModeJourney {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	plan, err := s.planJourney(ctx, s.opts.Identity.Current())
	if err != nil {
		log.Error().Err(err).Str("session", s.id).Str("cause", cause).Msg("journey puzzle unavailable")
		return
	}

	switch {
	case plan.completed && !snap.DailyCompleted:
		s.mu.Lock()
		if !s.closed && s.mode == ModeJourney && s.generation == snap.Generation {
			s.enterLockedLocked(plan)
		}
		s.mu.Unlock()
	case !plan.completed && snap.DailyCompleted:
		s.mu.Lock()
		if !s.closed && s.mode == ModeJourney && s.generation == snap.Generation {
			s.startFreshLocked(ModeJourney, word.Word{}, plan.puzzle)
		}
		s.mu.Unlock()
	}
}

// Close stops the session's timers and closes subscriber channels. A classic
// score still in its expiry grace is flushed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	flush := s.flushScoreLocked()
	s.closed = true
	s.generation++
	s.cancelTimersLocked()
	for k, ch := range s.subs {
		close(ch)
		delete(s.subs, k)
	}
	s.mu.Unlock()

	if s.unsubIdentity != nil {
		s.unsubIdentity()
	}
	if s.stopMidnight != nil {
		s.stopMidnight()
	}
	if flush != nil {
		flush()
	}
}

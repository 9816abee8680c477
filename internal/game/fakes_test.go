package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/wordripple/internal/clock/clocktest"
	"github.com/robalobadob/wordripple/internal/identity"
	"github.com/robalobadob/wordripple/internal/puzzle"
	"github.com/robalobadob/wordripple/internal/word"
	"github.com/robalobadob/wordripple/internal/worker"
)

type fakeDict struct {
	words map[string]bool
	start string
}

func (d *fakeDict) IsValidWord(w string) bool { return d.words[w] }
func (d *fakeDict) Random() string            { return d.start }

// fakeRelater relates every pair unless listed in unrelated. When gate is
// non-nil each call blocks until it receives.
type fakeRelater struct {
	mu        sync.Mutex
	unrelated map[string]bool
	calls     int
	gate      chan struct{}
	entered   chan struct{}
}

func (r *fakeRelater) AreRelated(_ context.Context, a, b string) bool {
	r.mu.Lock()
	r.calls++
	gate, entered := r.gate, r.entered
	related := !r.unrelated[a+"/"+b]
	r.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return related
}

type fixedPuzzles struct{ start, target string }

func (p fixedPuzzles) Generate(d puzzle.Date) (puzzle.Puzzle, error) {
	return puzzle.Puzzle{Date: d, Start: word.New(p.start), Target: word.New(p.target)}, nil
}

type markCall struct {
	device string
	who    string
	day    puzzle.Date
}

type fakeGate struct {
	mu        sync.Mutex
	completed map[string]bool // key: identity key or "device:<id>", then "|date"
	marks     []markCall
}

func gateKey(device string, who *identity.Identity, day puzzle.Date) string {
	if who.Authenticated() {
		return who.ID + "|" + day.String()
	}
	return "device:" + device + "|" + day.String()
}

func (g *fakeGate) IsCompletedToday(_ context.Context, device string, who *identity.Identity, day puzzle.Date) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completed[gateKey(device, who, day)], nil
}

func (g *fakeGate) MarkCompletedToday(_ context.Context, device string, who *identity.Identity, day puzzle.Date) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.completed == nil {
		g.completed = map[string]bool{}
	}
	g.completed[gateKey(device, who, day)] = true
	g.marks = append(g.marks, markCall{device: device, who: who.Key(), day: day})
	return nil
}

func (g *fakeGate) markCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.marks)
}

type scoreCall struct {
	who   string
	score int
}

type fakeScores struct {
	mu    sync.Mutex
	calls []scoreCall
}

func (f *fakeScores) SubmitScore(_ context.Context, who *identity.Identity, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scoreCall{who: who.ID, score: score})
	return nil
}

func (f *fakeScores) submitted() []scoreCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scoreCall(nil), f.calls...)
}

type fakePrefs struct {
	mu   sync.Mutex
	seen map[string]int
}

func (p *fakePrefs) SetSeenOnboarding(_ context.Context, device string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = map[string]int{}
	}
	p.seen[device]++
	return nil
}

// inlineRunner runs persistence jobs synchronously.
type inlineRunner struct {
	mu  sync.Mutex
	ops []string
}

func (r *inlineRunner) Run(op string, job worker.Job) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
	_ = job(context.Background())
}

// harness wires a session to fakes and a manual scheduler.
type harness struct {
	t       *testing.T
	sched   *clocktest.Manual
	dict    *fakeDict
	rel     *fakeRelater
	gate    *fakeGate
	scores  *fakeScores
	prefs   *fakePrefs
	runner  *inlineRunner
	holder  *identity.Holder
	base    time.Time
	deps    Deps
	options Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		sched: clocktest.New(),
		dict: &fakeDict{start: "ocean", words: map[string]bool{
			"ocean": true, "sea": true, "salt": true, "water": true, "glass": true, "wave": true,
		}},
		rel:    &fakeRelater{unrelated: map[string]bool{}},
		gate:   &fakeGate{},
		scores: &fakeScores{},
		prefs:  &fakePrefs{},
		runner: &inlineRunner{},
		holder: identity.NewHolder(),
		base:   time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC),
	}
	h.deps = Deps{
		Dict:      h.dict,
		Relater:   h.rel,
		Puzzles:   fixedPuzzles{start: "ocean", target: "glass"},
		Gate:      h.gate,
		Scores:    h.scores,
		Prefs:     h.prefs,
		Scheduler: h.sched,
		Runner:    h.runner,
		Calendar: puzzle.Calendar{
			Now:      func() time.Time { return h.base.Add(h.sched.Now()) },
			Location: time.UTC,
		},
	}
	h.options = Options{
		DeviceID:       "dev1",
		Mode:           ModeClassic,
		ClassicSeconds: 300,
		TickInterval:   time.Second,
		FadeGrace:      3 * time.Second,
		Award:          10,
		SeenOnboarding: true,
		Identity:       h.holder,
	}
	return h
}

func (h *harness) session(mode Mode) *Session {
	h.t.Helper()
	opts := h.options
	opts.Mode = mode
	s, err := New(context.Background(), h.deps, opts)
	if err != nil {
		h.t.Fatalf("new session: %v", err)
	}
	h.t.Cleanup(s.Close)
	return s
}

func (h *harness) signIn(id string) {
	h.holder.Set(&identity.Identity{ID: id, DisplayName: id, Verified: true})
}

func (h *harness) today() puzzle.Date { return h.deps.Calendar.Today() }

func (h *harness) submit(s *Session, w string) (Snapshot, bool, string) {
	h.t.Helper()
	out, snap, err := s.Submit(context.Background(), w)
	if err != nil {
		h.t.Fatalf("submit %q: %v", w, err)
	}
	return snap, out.Accepted, string(out.Reason)
}

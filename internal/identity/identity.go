// internal/identity/identity.go
//
// Player identity as seen by the game core.
//
// An Identity is produced by the auth layer (JWT cookie → users row). The game
// only cares whether the player is authenticated, i.e. signed in AND verified;
// unverified accounts play as anonymous for scoring and daily gating.
//
// Holder keeps the identity for one player and notifies subscribers
// synchronously on sign-in/sign-out so the session can re-evaluate its locks.

package identity

import "sync"

// Identity is a signed-in account. A nil *Identity means anonymous.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Verified    bool   `json:"verified"`
}

// Authenticated reports whether id may submit scores and use remote gating.
func (id *Identity) Authenticated() bool {
	return id != nil && id.ID != "" && id.Verified
}

// Key returns the stable identifier used for persistence, or "" when anonymous.
func (id *Identity) Key() string {
	if !id.Authenticated() {
		return ""
	}
	return id.ID
}

func same(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Holder is the current identity of one player. Safe for concurrent use.
type Holder struct {
	mu      sync.Mutex
	current *Identity
	nextSub int
	subs    map[int]func(*Identity)
}

// NewHolder returns a Holder starting as anonymous.
func NewHolder() *Holder {
	return &Holder{subs: make(map[int]func(*Identity))}
}

// Current returns a copy of the current identity, or nil when anonymous.
func (h *Holder) Current() *Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	c := *h.current
	return &c
}

// Set replaces the identity. Subscribers run synchronously, outside the
// holder's lock, only when the identity actually changed.
func (h *Holder) Set(id *Identity) {
	h.mu.Lock()
	if same(h.current, id) {
		h.mu.Unlock()
		return
	}
	if id != nil {
		c := *id
		id = &c
	}
	h.current = id
	fns := make([]func(*Identity), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(h.Current())
	}
}

// Subscribe registers fn for identity changes and returns its unsubscribe func.
func (h *Holder) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSub++
	key := h.nextSub
	h.subs[key] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, key)
		h.mu.Unlock()
	}
}

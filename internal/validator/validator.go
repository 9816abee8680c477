// internal/validator/validator.go
//
// Submission validation pipeline, shared by every game mode.
//
// Checks run strictly in this order and stop at the first failure:
//   1. duplicate   – candidate already in the chain (canonical compare)
//   2. dictionary  – candidate must be a known word
//   3. relatedness – candidate must be semantically related to the current word
//
// Validate has no side effects. The caller applies the outcome (ledger append,
// score, current word) after confirming its state was not superseded while the
// relatedness call was in flight.

package validator

import (
	"context"

	"github.com/robalobadob/wordripple/internal/word"
)

// Reason classifies a rejected submission.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonDuplicate Reason = "duplicate_word"
	ReasonInvalid   Reason = "invalid_word"
	ReasonUnrelated Reason = "unrelated"
)

// Player-facing messages.
const (
	msgAccepted  = "Good job! The words are semantically related."
	msgDuplicate = "You have already used this word."
	msgInvalid   = "Invalid word."
	msgUnrelated = "The words are not semantically related."
)

// Outcome is the result of validating one candidate.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Word     word.Word
}

// Message returns the transient text shown to the player for this outcome.
func (o Outcome) Message() string {
	if o.Accepted {
		return msgAccepted
	}
	switch o.Reason {
	case ReasonDuplicate:
		return msgDuplicate
	case ReasonInvalid:
		return msgInvalid
	default:
		return msgUnrelated
	}
}

// Dictionary answers membership questions.
type Dictionary interface {
	IsValidWord(w string) bool
}

// Relater decides whether two words are semantically related. Implementations
// must fold transport failures into false.
type Relater interface {
	AreRelated(ctx context.Context, current, candidate string) bool
}

// Chain is the read side of the session's word ledger.
type Chain interface {
	Contains(w word.Word) bool
}

// State is the session snapshot a candidate is validated against.
type State struct {
	Current word.Word
	Chain   Chain
}

// Validator runs the submission pipeline.
type Validator struct {
	dict Dictionary
	rel  Relater
}

// New returns a Validator backed by the given collaborators.
func New(dict Dictionary, rel Relater) *Validator {
	return &Validator{dict: dict, rel: rel}
}

// Validate checks candidate against st. It may block on the relatedness call;
// callers must not hold locks across it.
func (v *Validator) Validate(ctx context.Context, candidate word.Word, st State) Outcome {
	out := Outcome{Word: candidate}
	if st.Chain != nil && st.Chain.Contains(candidate) {
		out.Reason = ReasonDuplicate
		return out
	}
	if candidate.IsZero() || !v.dict.IsValidWord(candidate.Canonical()) {
		out.Reason = ReasonInvalid
		return out
	}
	if !v.rel.AreRelated(ctx, st.Current.Canonical(), candidate.Canonical()) {
		out.Reason = ReasonUnrelated
		return out
	}
	out.Accepted = true
	return out
}

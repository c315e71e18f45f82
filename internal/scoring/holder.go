package scoring

import (
	"sync/atomic"

	"github.com/payguard-ai/payguard/internal/forest"
)

// Holder is the single shared model reference. Scoring requests read it
// without blocking; retraining stores a fully built replacement. Readers
// observe either the old model or the new one, never an intermediate
// state, and a failed retrain leaves the reference untouched.
type Holder struct {
	model atomic.Pointer[forest.Model]
}

// NewHolder returns a holder with the given initial model, which may be
// nil when no artifact exists yet.
func NewHolder(initial *forest.Model) *Holder {
	h := &Holder{}
	if initial != nil {
		h.model.Store(initial)
	}
	return h
}

// Current returns the active model, or nil when none is loaded.
func (h *Holder) Current() *forest.Model {
	return h.model.Load()
}

// Swap atomically replaces the active model.
func (h *Holder) Swap(m *forest.Model) {
	h.model.Store(m)
}

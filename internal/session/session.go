// Package session keeps per-responder working state between requests: the
// case currently opened, display settings and the injury draft of the case
// form being filled in.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ems/casebook/internal/domain/bodymap"
)

var ErrEmptyResponder = errors.New("responder id is empty")

// Holder is the state of one subject. All methods are safe for concurrent
// use.
type Holder struct {
	mu          sync.Mutex
	caseNumber  string
	responderID uuid.UUID
	settings    Settings
	editor      *bodymap.Editor
	touched     bool
	lastSeen    time.Time
}

func newHolder(now time.Time) *Holder {
	h := &Holder{settings: DefaultSettings(), lastSeen: now}
	h.resetDraft(nil)
	return h
}

func (h *Holder) CaseNumber() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caseNumber
}

func (h *Holder) SetCaseNumber(n string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.caseNumber = n
}

// ResponderID returns the cached profile id, or uuid.Nil before
// StoreResponder.
func (h *Holder) ResponderID() uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.responderID
}

func (h *Holder) StoreResponder(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrEmptyResponder
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responderID = id
	return nil
}

func (h *Holder) Settings() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

// UpdateSettings merges p and returns the result. An invalid patch changes
// nothing.
func (h *Holder) UpdateSettings(p SettingsPatch) (Settings, error) {
	if err := p.validate(); err != nil {
		return Settings{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings = p.apply(h.settings)
	return h.settings, nil
}

// WithDraft runs fn with exclusive access to the injury editor. fn must not
// keep the editor after returning.
func (h *Holder) WithDraft(fn func(e *bodymap.Editor) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.editor)
}

// ResetDraft replaces the editor with one seeded from initial.
func (h *Holder) ResetDraft(initial []bodymap.InjuryDraft) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetDraft(initial)
}

func (h *Holder) resetDraft(initial []bodymap.InjuryDraft) {
	h.touched = false
	// onChange runs inside WithDraft, so h.mu is already held.
	h.editor = bodymap.NewEditor(initial, func([]bodymap.InjuryDraft) { h.touched = true })
}

// DraftInjuries returns the current draft list.
func (h *Holder) DraftInjuries() []bodymap.InjuryDraft {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.editor.Injuries()
}

// Touched reports whether the draft has differed from its seed since the
// last reset.
func (h *Holder) Touched() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.touched
}

// Registry hands out one Holder per authenticated subject.
type Registry struct {
	mu      sync.Mutex
	holders map[string]*Holder
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{holders: make(map[string]*Holder), now: time.Now}
}

// For returns the holder of subject, creating it on first use.
func (r *Registry) For(subject string) *Holder {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holders[subject]
	if !ok {
		h = newHolder(now)
		r.holders[subject] = h
	}
	h.mu.Lock()
	h.lastSeen = now
	h.mu.Unlock()
	return h
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}

// Sweep drops holders unused for longer than idle and returns how many were
// removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for subject, h := range r.holders {
		h.mu.Lock()
		stale := h.lastSeen.Before(cutoff)
		h.mu.Unlock()
		if stale {
			delete(r.holders, subject)
			removed++
		}
	}
	return removed
}

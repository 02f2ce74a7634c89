package bodymap

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

var ErrDraftNotFound = errors.New("injury draft not found")

// Marker is a draft as shown on the current view, numbered from 1 within
// the drafts of that side.
type Marker struct {
	Number int `json:"number"`
	InjuryDraft
}

// State is a read-only snapshot of an editor.
type State struct {
	View     Side          `json:"view"`
	Selected string        `json:"selected,omitempty"`
	Injuries []InjuryDraft `json:"injuries"`
	Markers  []Marker      `json:"markers"`
}

// Editor holds the injury drafts of one case form. It is not safe for
// concurrent use.
type Editor struct {
	injuries []InjuryDraft
	initial  []InjuryDraft
	view     Side
	selected string
	onChange func([]InjuryDraft)
	newID    func() string
}

// NewEditor starts from initial, which may be nil. onChange, when set,
// receives the full list after each mutation that leaves it different from
// initial.
func NewEditor(initial []InjuryDraft, onChange func([]InjuryDraft)) *Editor {
	return &Editor{
		injuries: slices.Clone(initial),
		initial:  slices.Clone(initial),
		view:     Front,
		onChange: onChange,
		newID:    newDraftID,
	}
}

func newDraftID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "injury_" + id.String()
}

func (e *Editor) changed() {
	if e.onChange == nil || slices.Equal(e.injuries, e.initial) {
		return
	}
	e.onChange(slices.Clone(e.injuries))
}

func (e *Editor) index(id string) int {
	return slices.IndexFunc(e.injuries, func(d InjuryDraft) bool { return d.ID == id })
}

// AddAt places a new marker at (x, y) and labels it with Locate. Clicking
// the same point twice adds two drafts.
func (e *Editor) AddAt(x, y float64, side Side, t InjuryType, sev Severity) (InjuryDraft, error) {
	if x < 0 || x > 100 || y < 0 || y > 100 {
		return InjuryDraft{}, fmt.Errorf("coordinates (%g, %g) outside 0-100", x, y)
	}
	if !side.Valid() {
		return InjuryDraft{}, fmt.Errorf("invalid side %q", side)
	}
	if !t.Valid() {
		return InjuryDraft{}, fmt.Errorf("invalid injury type %q", t)
	}
	if !sev.Valid() {
		return InjuryDraft{}, fmt.Errorf("invalid severity %q", sev)
	}

	d := InjuryDraft{
		ID:       e.newID(),
		X:        x,
		Y:        y,
		Type:     t,
		Severity: sev,
		Side:     side,
		Location: Locate(x, y, side),
	}
	e.injuries = append(e.injuries, d)
	e.changed()
	return d, nil
}

// Remove deletes a draft and clears the selection if it pointed at it.
func (e *Editor) Remove(id string) error {
	i := e.index(id)
	if i < 0 {
		return ErrDraftNotFound
	}
	e.injuries = slices.Delete(e.injuries, i, i+1)
	if e.selected == id {
		e.selected = ""
	}
	e.changed()
	return nil
}

// Update applies u to the draft with the given id.
func (e *Editor) Update(id string, u InjuryUpdate) error {
	if u == nil {
		return errors.New("empty injury update")
	}
	if err := u.validate(); err != nil {
		return err
	}
	i := e.index(id)
	if i < 0 {
		return ErrDraftNotFound
	}
	u.apply(&e.injuries[i])
	e.changed()
	return nil
}

// ClearAll drops every draft. Nothing happens when the list is empty.
func (e *Editor) ClearAll() {
	if len(e.injuries) == 0 {
		return
	}
	e.injuries = nil
	e.selected = ""
	e.changed()
}

// SetView switches the displayed side. Drafts of the other side are kept.
func (e *Editor) SetView(side Side) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	e.view = side
	return nil
}

// View is the side currently displayed.
func (e *Editor) View() Side { return e.view }

// Visible returns the drafts of the current view in insertion order.
func (e *Editor) Visible() []Marker {
	var out []Marker
	for _, d := range e.injuries {
		if d.Side == e.view {
			out = append(out, Marker{Number: len(out) + 1, InjuryDraft: d})
		}
	}
	return out
}

// Select marks a draft as the one being edited.
func (e *Editor) Select(id string) error {
	if e.index(id) < 0 {
		return ErrDraftNotFound
	}
	e.selected = id
	return nil
}

// ClearSelection deselects without touching the drafts.
func (e *Editor) ClearSelection() { e.selected = "" }

// Selected returns the current value of the selected draft, so edits made
// through Update are always reflected.
func (e *Editor) Selected() (InjuryDraft, bool) {
	if e.selected == "" {
		return InjuryDraft{}, false
	}
	i := e.index(e.selected)
	if i < 0 {
		return InjuryDraft{}, false
	}
	return e.injuries[i], true
}

// Injuries returns a copy of every draft in insertion order.
func (e *Editor) Injuries() []InjuryDraft { return slices.Clone(e.injuries) }

// Len is the number of drafts on both sides.
func (e *Editor) Len() int { return len(e.injuries) }

// Snapshot copies the drafts, view and selection.
func (e *Editor) Snapshot() State {
	injuries := e.Injuries()
	if injuries == nil {
		injuries = []InjuryDraft{}
	}
	markers := e.Visible()
	if markers == nil {
		markers = []Marker{}
	}
	return State{
		View:     e.view,
		Selected: e.selected,
		Injuries: injuries,
		Markers:  markers,
	}
}

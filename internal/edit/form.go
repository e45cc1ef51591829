// Package edit implements the two editing workflows over a record store:
// a detail form bound to one selected record, and a table-wide controller
// that stages cell edits until an explicit save.
package edit

import (
	"errors"
	"fmt"
	"time"

	"patientdesk/internal/logging"
	"patientdesk/internal/patient"
	"patientdesk/internal/store"
)

// ErrNoSelection is returned when an edit needs a selected record and there is none.
var ErrNoSelection = errors.New("no patient selected")

// FormState is the detail form's position in its edit cycle.
type FormState int

const (
	FormUnselected FormState = iota
	FormClean
	FormDirty
)

func (s FormState) String() string {
	switch s {
	case FormUnselected:
		return "unselected"
	case FormClean:
		return "clean"
	case FormDirty:
		return "dirty"
	}
	return "unknown"
}

// Form stages edits to a single bound record. Staged values stay out of the
// store until Commit; Rollback drops them.
type Form struct {
	store  *store.Store
	bound  int
	hasRec bool
	staged map[patient.Field]string
}

// NewForm creates an unbound form over s.
func NewForm(s *store.Store) *Form {
	return &Form{store: s, staged: make(map[patient.Field]string)}
}

// Bind attaches the form to record id, discarding anything staged for the
// previous record.
func (f *Form) Bind(id int) error {
	if _, ok := f.store.Get(id); !ok {
		return fmt.Errorf("bind %d: %w", id, store.ErrNotFound)
	}
	if f.hasRec && f.bound == id {
		return nil
	}
	if len(f.staged) > 0 {
		logging.EditDebug("form rebind %d -> %d discards %d staged fields", f.bound, id, len(f.staged))
	}
	f.bound, f.hasRec = id, true
	f.staged = make(map[patient.Field]string)
	return nil
}

// Unbind detaches the form; it becomes inert.
func (f *Form) Unbind() {
	f.hasRec = false
	f.bound = 0
	f.staged = make(map[patient.Field]string)
}

// Selected returns the bound record id.
func (f *Form) Selected() (int, bool) {
	return f.bound, f.hasRec
}

// State reports unselected, clean, or dirty.
func (f *Form) State() FormState {
	switch {
	case !f.hasRec:
		return FormUnselected
	case len(f.staged) > 0:
		return FormDirty
	default:
		return FormClean
	}
}

// Dirty reports whether any field is staged.
func (f *Form) Dirty() bool { return f.State() == FormDirty }

// FieldDirty reports whether field has a staged value.
func (f *Form) FieldDirty(field patient.Field) bool {
	_, ok := f.staged[field]
	return ok
}

// Value returns the staged text for field, or the committed text.
// It is empty when the form is unbound or the record is gone.
func (f *Form) Value(field patient.Field) string {
	if !f.hasRec {
		return ""
	}
	if v, ok := f.staged[field]; ok {
		return v
	}
	rec, ok := f.store.Get(f.bound)
	if !ok {
		return ""
	}
	return rec.Text(field, time.Now())
}

// Stage validates raw and holds it for field. Staging the committed value
// clears the field's dirty flag. Rejected input leaves the prior value.
func (f *Form) Stage(field patient.Field, raw string) error {
	if !f.hasRec {
		return ErrNoSelection
	}
	norm, err := patient.Normalize(field, raw)
	if err != nil {
		return err
	}
	rec, ok := f.store.Get(f.bound)
	if !ok {
		return fmt.Errorf("stage %d: %w", f.bound, store.ErrNotFound)
	}
	if rec.Text(field, time.Time{}) == norm {
		delete(f.staged, field)
		return nil
	}
	f.staged[field] = norm
	return nil
}

// Commit writes every staged field into the bound record. Unbound forms
// commit nothing.
func (f *Form) Commit() error {
	if !f.hasRec || len(f.staged) == 0 {
		return nil
	}
	var errs []error
	n := 0
	for _, field := range patient.EditableFields() {
		v, ok := f.staged[field]
		if !ok {
			continue
		}
		if err := f.store.Set(f.bound, field, v); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	f.staged = make(map[patient.Field]string)
	err := errors.Join(errs...)
	logging.Edit("form committed %d fields to patient %d", n, f.bound)
	logging.Audit().EditsSaved(n, err)
	return err
}

// Rollback discards staged edits.
func (f *Form) Rollback() {
	if len(f.staged) > 0 {
		logging.Edit("form rolled back %d fields on patient %d", len(f.staged), f.bound)
		logging.Audit().EditsDiscarded(len(f.staged))
	}
	f.staged = make(map[patient.Field]string)
}

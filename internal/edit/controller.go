package edit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"patientdesk/internal/logging"
	"patientdesk/internal/patient"
	"patientdesk/internal/store"
)

// CellKey addresses one editable cell.
type CellKey struct {
	ID    int
	Field patient.Field
}

// StagedEdit is a pending cell value.
type StagedEdit struct {
	CellKey
	Value string
}

// Controller tracks staged cell edits across the whole table, commits them
// on Save, and owns delete/refresh of the store it wraps.
type Controller struct {
	store    *store.Store
	provider patient.Provider
	staged   map[CellKey]string
	selected int
	hasSel   bool
}

// NewController wraps s; Refresh reloads it from p.
func NewController(s *store.Store, p patient.Provider) *Controller {
	return &Controller{
		store:    s,
		provider: p,
		staged:   make(map[CellKey]string),
	}
}

// Store returns the wrapped store.
func (c *Controller) Store() *store.Store { return c.store }

// Provider returns the provider used by Refresh.
func (c *Controller) Provider() patient.Provider { return c.provider }

// Refresh reloads the store from the provider. Staged edits and the
// selection are dropped because the rows they point at are replaced.
func (c *Controller) Refresh(ctx context.Context) error {
	records, err := c.provider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh patients: %w", err)
	}
	return c.Apply(records)
}

// Apply replaces the store with an already loaded record list.
func (c *Controller) Apply(records []patient.Patient) error {
	if err := c.store.Replace(records); err != nil {
		return err
	}
	if len(c.staged) > 0 {
		logging.Edit("refresh discarded %d staged edits", len(c.staged))
	}
	c.staged = make(map[CellKey]string)
	c.ClearSelection()
	return nil
}

// Select marks id as the current row.
func (c *Controller) Select(id int) error {
	if _, ok := c.store.Get(id); !ok {
		return fmt.Errorf("select %d: %w", id, store.ErrNotFound)
	}
	c.selected, c.hasSel = id, true
	return nil
}

// ClearSelection forgets the current row.
func (c *Controller) ClearSelection() {
	c.selected, c.hasSel = 0, false
}

// Selected returns the current row id.
func (c *Controller) Selected() (int, bool) {
	return c.selected, c.hasSel
}

// CanDelete reports whether a delete would do anything.
func (c *Controller) CanDelete() bool {
	if !c.hasSel {
		return false
	}
	_, ok := c.store.Get(c.selected)
	return ok
}

// Stage validates raw and holds it for the cell. Staging the committed value
// removes the pending edit. Rejected input leaves the prior value.
func (c *Controller) Stage(id int, field patient.Field, raw string) error {
	norm, err := patient.Normalize(field, raw)
	if err != nil {
		return err
	}
	rec, ok := c.store.Get(id)
	if !ok {
		return fmt.Errorf("stage %d: %w", id, store.ErrNotFound)
	}
	key := CellKey{ID: id, Field: field}
	if rec.Text(field, time.Time{}) == norm {
		delete(c.staged, key)
		return nil
	}
	c.staged[key] = norm
	logging.EditDebug("staged patient %d %s", id, field)
	return nil
}

// Staged returns the pending value for a cell.
func (c *Controller) Staged(id int, field patient.Field) (string, bool) {
	v, ok := c.staged[CellKey{ID: id, Field: field}]
	return v, ok
}

// Value returns the pending value for a cell, or the committed one.
func (c *Controller) Value(id int, field patient.Field, now time.Time) string {
	if v, ok := c.Staged(id, field); ok {
		return v
	}
	rec, ok := c.store.Get(id)
	if !ok {
		return ""
	}
	return rec.Text(field, now)
}

// Dirty reports whether any edit is pending.
func (c *Controller) Dirty() bool { return len(c.staged) > 0 }

// Pending lists staged edits in table order, then column order.
func (c *Controller) Pending() []StagedEdit {
	out := make([]StagedEdit, 0, len(c.staged))
	for k, v := range c.staged {
		out = append(out, StagedEdit{CellKey: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := c.store.Index(out[i].ID), c.store.Index(out[j].ID)
		if ri != rj {
			return ri < rj
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Save applies every staged edit and clears staged state. It returns how
// many cells were written; failures for individual cells are joined, and
// nothing stays staged either way.
func (c *Controller) Save() (int, error) {
	pending := c.Pending()
	c.staged = make(map[CellKey]string)

	var errs []error
	n := 0
	for _, e := range pending {
		if err := c.store.Set(e.ID, e.Field, e.Value); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	err := errors.Join(errs...)
	logging.Edit("saved %d of %d staged edits", n, len(pending))
	logging.Audit().EditsSaved(n, err)
	return n, err
}

// Discard drops every staged edit.
func (c *Controller) Discard() {
	if len(c.staged) > 0 {
		logging.Edit("discarded %d staged edits", len(c.staged))
		logging.Audit().EditsDiscarded(len(c.staged))
	}
	c.staged = make(map[CellKey]string)
}

// Delete removes the selected record and any edits staged for it.
// Without a selection it does nothing and returns false.
func (c *Controller) Delete() bool {
	if !c.hasSel {
		return false
	}
	id := c.selected
	c.ClearSelection()
	for k := range c.staged {
		if k.ID == id {
			delete(c.staged, k)
		}
	}
	return c.store.Remove(id)
}

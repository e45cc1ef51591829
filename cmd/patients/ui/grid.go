package ui

import (
	"strconv"
	"time"

	"patientdesk/internal/patient"
	"patientdesk/internal/store"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// CellFunc returns the display text of a cell and whether it holds a
// staged (uncommitted) value.
type CellFunc func(rec patient.Patient, f patient.Field, now time.Time) (string, bool)

// ApplyFunc receives a confirmed cell edit. A returned error rejects it.
type ApplyFunc func(id int, f patient.Field, raw string) error

// committedCell shows the record as stored.
func committedCell(rec patient.Patient, f patient.Field, now time.Time) (string, bool) {
	return rec.Text(f, now), false
}

// pendingCell shows rec with pending values laid over it. AGE follows a
// pending birthday.
func pendingCell(rec patient.Patient, f patient.Field, now time.Time, pending func(patient.Field) (string, bool)) (string, bool) {
	if f == patient.FieldAge {
		if v, ok := pending(patient.FieldBirthday); ok {
			if b, err := patient.ParseDate(v); err == nil {
				return strconv.Itoa(patient.YearsBetween(b, now)), true
			}
		}
		return rec.Text(f, now), false
	}
	if v, ok := pending(f); ok {
		return v, true
	}
	return rec.Text(f, now), false
}

var columnWidths = map[patient.Field]int{
	patient.FieldID:        4,
	patient.FieldFirstName: 12,
	patient.FieldLastName:  12,
	patient.FieldBirthday:  12,
	patient.FieldAge:       5,
	patient.FieldWBCC:      8,
}

// Grid is the editable patient table shared by both pages: one row per
// record, row cursor from the bubbles table, a column cursor over the
// editable fields, and an in-place cell editor.
type Grid struct {
	table  table.Model
	input  textinput.Model
	store  *store.Store
	cell   CellFunc
	apply  ApplyFunc
	now    func() time.Time
	styles Styles

	rowIDs   []int
	col      int
	editing  bool
	selected bool
	status   string

	// shared across copies of the model; set by the store observer
	stale  *bool
	cancel func()
}

// NewGrid creates a grid over s. cell and apply decide whether edits are
// staged or committed.
func NewGrid(s *store.Store, cell CellFunc, apply ApplyFunc, styles Styles) Grid {
	if cell == nil {
		cell = committedCell
	}

	t := table.New(
		table.WithFocused(true),
		table.WithHeight(15),
	)

	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 24
	ti.Prompt = "› "

	stale := new(bool)
	*stale = true
	g := Grid{
		table:  t,
		input:  ti,
		store:  s,
		cell:   cell,
		apply:  apply,
		now:    time.Now,
		styles: styles,
		stale:  stale,
	}
	g.cancel = s.Subscribe(func(store.Event) { *stale = true })
	g.setColumns()
	g.Sync()
	return g
}

// SetClock replaces the clock used for the AGE column.
func (g *Grid) SetClock(now func() time.Time) {
	g.now = now
	*g.stale = true
	g.Sync()
}

// Close unsubscribes from the store.
func (g *Grid) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

// Invalidate forces the next Sync to rebuild rows.
func (g *Grid) Invalidate() { *g.stale = true }

// Sync rebuilds the rows when the store changed, keeping the cursor on the
// same record when it still exists.
func (g *Grid) Sync() {
	if !*g.stale {
		return
	}
	*g.stale = false

	prevID, hadPrev := g.cursorID()
	records := g.store.Records()
	now := g.now()

	rows := make([]table.Row, 0, len(records))
	ids := make([]int, 0, len(records))
	for _, rec := range records {
		row := make(table.Row, 0, len(patient.Fields()))
		for _, f := range patient.Fields() {
			text, staged := g.cell(rec, f, now)
			if staged {
				text += "*"
			}
			row = append(row, text)
		}
		rows = append(rows, row)
		ids = append(ids, rec.ID)
	}
	g.rowIDs = ids
	g.table.SetRows(rows)

	cursor := g.table.Cursor()
	if hadPrev {
		if i := g.store.Index(prevID); i >= 0 {
			cursor = i
		} else {
			// the selected record is gone
			g.selected = false
		}
	}
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
		g.selected = false
	}
	g.table.SetCursor(cursor)
}

func (g *Grid) setColumns() {
	editable := patient.EditableFields()
	cols := make([]table.Column, 0, len(patient.Fields()))
	for _, f := range patient.Fields() {
		title := f.Title()
		if g.col >= 0 && g.col < len(editable) && editable[g.col] == f {
			title = "[" + title + "]"
		}
		cols = append(cols, table.Column{Title: title, Width: columnWidths[f] + 2})
	}
	g.table.SetColumns(cols)
}

func (g Grid) cursorID() (int, bool) {
	c := g.table.Cursor()
	if c < 0 || c >= len(g.rowIDs) {
		return 0, false
	}
	return g.rowIDs[c], true
}

// SelectedID returns the selected record. A row counts as selected only
// after the user has navigated to it.
func (g Grid) SelectedID() (int, bool) {
	if !g.selected {
		return 0, false
	}
	return g.cursorID()
}

// ClearSelection leaves the cursor in place but deselects the row.
func (g *Grid) ClearSelection() { g.selected = false }

// Column returns the field under the column cursor.
func (g Grid) Column() patient.Field {
	return patient.EditableFields()[g.col]
}

// Editing reports whether the cell editor is open.
func (g Grid) Editing() bool { return g.editing }

// Status returns the last edit error, if any.
func (g Grid) Status() string { return g.status }

// Rows returns the rendered rows.
func (g Grid) Rows() []table.Row { return g.table.Rows() }

// Focus gives the grid keyboard focus.
func (g *Grid) Focus() { g.table.Focus() }

// Blur removes keyboard focus; an open editor is cancelled.
func (g *Grid) Blur() {
	g.table.Blur()
	g.cancelEdit()
}

// Focused reports whether the grid has focus.
func (g Grid) Focused() bool { return g.table.Focused() }

// SetSize fits the table to the given area.
func (g *Grid) SetSize(w, h int) {
	g.table.SetWidth(w)
	if h > 4 {
		g.table.SetHeight(h - 3)
	}
}

// Update handles navigation and the cell editor.
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)
	if !isKey {
		if g.editing {
			var cmd tea.Cmd
			g.input, cmd = g.input.Update(msg)
			return g, cmd
		}
		var cmd tea.Cmd
		g.table, cmd = g.table.Update(msg)
		return g, cmd
	}
	if !g.table.Focused() {
		return g, nil
	}

	if g.editing {
		switch key.String() {
		case "enter":
			g.confirmEdit()
			return g, nil
		case "esc":
			g.cancelEdit()
			return g, nil
		}
		var cmd tea.Cmd
		g.input, cmd = g.input.Update(msg)
		return g, cmd
	}

	switch key.String() {
	case "left", "h":
		if g.col > 0 {
			g.col--
			g.setColumns()
		}
		return g, nil
	case "right", "l":
		if g.col < len(patient.EditableFields())-1 {
			g.col++
			g.setColumns()
		}
		return g, nil
	case "enter":
		return g, g.beginEdit()
	case "esc":
		g.selected = false
		return g, nil
	case " ":
		if len(g.rowIDs) > 0 {
			g.selected = true
		}
		return g, nil
	}

	before := g.table.Cursor()
	var cmd tea.Cmd
	g.table, cmd = g.table.Update(msg)
	if len(g.rowIDs) > 0 && (g.table.Cursor() != before || isNavKey(key.String())) {
		g.selected = true
		g.status = ""
	}
	return g, cmd
}

func isNavKey(k string) bool {
	switch k {
	case "up", "down", "k", "j", "pgup", "pgdown", "home", "end", "g", "G":
		return true
	}
	return false
}

func (g *Grid) beginEdit() tea.Cmd {
	id, ok := g.cursorID()
	if !ok || g.apply == nil {
		return nil
	}
	rec, ok := g.store.Get(id)
	if !ok {
		return nil
	}
	g.selected = true
	text, _ := g.cell(rec, g.Column(), g.now())
	g.input.SetValue(text)
	g.input.CursorEnd()
	g.input.Placeholder = g.Column().Title()
	g.editing = true
	g.status = ""
	return g.input.Focus()
}

func (g *Grid) confirmEdit() {
	id, ok := g.cursorID()
	raw := g.input.Value()
	g.cancelEdit()
	if !ok {
		return
	}
	if err := g.apply(id, g.Column(), raw); err != nil {
		g.status = err.Error()
		return
	}
	g.status = ""
	// staged edits do not touch the store, so no event arrives
	*g.stale = true
	g.Sync()
}

func (g *Grid) cancelEdit() {
	g.editing = false
	g.input.Blur()
	g.input.SetValue("")
}

// View renders the table and, when open, the cell editor.
func (g Grid) View() string {
	out := g.table.View()
	if g.editing {
		id, _ := g.cursorID()
		label := g.styles.Bold.Render("Edit " + g.Column().Title() + " of #" + strconv.Itoa(id) + ": ")
		out += "\n" + label + g.styles.InputFocused.Render(g.input.View())
	}
	if g.status != "" {
		out += "\n" + g.styles.Error.Render(g.status)
	}
	return out
}

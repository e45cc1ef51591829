package ui

import (
	"strings"
	"time"

	"patientdesk/internal/edit"
	"patientdesk/internal/logging"
	"patientdesk/internal/patient"
	"patientdesk/internal/store"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FormTitle is the window title of the detail form view.
const FormTitle = "My View"

// formFocus enumerates the focus stops of the form page in tab order.
type formFocus int

const (
	focusTable formFocus = iota
	focusFirst
	focusLast
	focusBirthday
	focusWBCC
	focusSave
	focusRollback
	focusCount
)

// inputField maps an input focus stop to its field.
func (f formFocus) inputField() (patient.Field, bool) {
	switch f {
	case focusFirst:
		return patient.FieldFirstName, true
	case focusLast:
		return patient.FieldLastName, true
	case focusBirthday:
		return patient.FieldBirthday, true
	case focusWBCC:
		return patient.FieldWBCC, true
	}
	return 0, false
}

// FormPageModel is the detail form view: an editable table on the right
// and a form bound to the selected row on the left. Table and form edits
// are both staged in the form and wait for SAVE.
type FormPageModel struct {
	width  int
	height int

	store  *store.Store
	form   *edit.Form
	grid   Grid
	inputs map[patient.Field]textinput.Model
	focus  formFocus

	status   string
	statusOK bool
	showHelp bool
	help     string

	styles Styles
}

// NewFormPage creates the detail form view over s.
func NewFormPage(s *store.Store, styles Styles) FormPageModel {
	inputs := make(map[patient.Field]textinput.Model, len(patient.EditableFields()))
	for _, f := range patient.EditableFields() {
		ti := textinput.New()
		ti.Placeholder = f.Title()
		ti.CharLimit = 64
		ti.Width = 20
		ti.Prompt = ""
		inputs[f] = ti
	}

	form := edit.NewForm(s)
	cell := func(rec patient.Patient, f patient.Field, now time.Time) (string, bool) {
		if id, ok := form.Selected(); !ok || id != rec.ID {
			return rec.Text(f, now), false
		}
		return pendingCell(rec, f, now, func(f patient.Field) (string, bool) {
			if !form.FieldDirty(f) {
				return "", false
			}
			return form.Value(f), true
		})
	}
	apply := func(id int, f patient.Field, raw string) error {
		if err := form.Bind(id); err != nil {
			return err
		}
		return form.Stage(f, raw)
	}

	m := FormPageModel{
		store:  s,
		form:   form,
		grid:   NewGrid(s, cell, apply, styles),
		inputs: inputs,
		focus:  focusTable,
		styles: styles,
	}
	m.grid.Focus()
	return m
}

// Init sets the window title.
func (m FormPageModel) Init() tea.Cmd {
	return tea.SetWindowTitle(FormTitle)
}

// Form exposes the bound form.
func (m FormPageModel) Form() *edit.Form { return m.form }

// Grid exposes the table.
func (m FormPageModel) Grid() Grid { return m.grid }

// Status returns the status line text.
func (m FormPageModel) Status() string { return m.status }

// InputValue returns the text currently shown in the form input for f.
func (m FormPageModel) InputValue(f patient.Field) string {
	return m.inputs[f].Value()
}

// Update handles messages.
func (m FormPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "?", "esc", "q":
				m.showHelp = false
			}
			return m, nil
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// keys owned by the cell editor
		if m.focus == focusTable && m.grid.Editing() {
			m.grid, cmd = m.grid.Update(msg)
			m.afterUpdate()
			return m, cmd
		}

		_, inInput := m.focus.inputField()
		switch msg.String() {
		case "tab":
			cmd = m.moveFocus(1)
			m.afterUpdate()
			return m, cmd
		case "shift+tab":
			cmd = m.moveFocus(-1)
			m.afterUpdate()
			return m, cmd
		case "ctrl+s":
			m.save()
			m.afterUpdate()
			return m, nil
		case "ctrl+z":
			m.rollback()
			m.afterUpdate()
			return m, nil
		case "q":
			if !inInput {
				return m, tea.Quit
			}
		case "?":
			if !inInput {
				m.help = renderHelp(formHelp, m.styles.Theme.IsDark)
				m.showHelp = true
				return m, nil
			}
		case "enter":
			switch m.focus {
			case focusSave:
				m.save()
				m.afterUpdate()
				return m, nil
			case focusRollback:
				m.rollback()
				m.afterUpdate()
				return m, nil
			}
			if inInput {
				cmd = m.moveFocus(1)
				m.afterUpdate()
				return m, cmd
			}
		}
	}

	if f, ok := m.focus.inputField(); ok {
		in := m.inputs[f]
		in, cmd = in.Update(msg)
		m.inputs[f] = in
	} else if m.focus == focusTable {
		m.grid, cmd = m.grid.Update(msg)
	}
	m.afterUpdate()
	return m, cmd
}

// afterUpdate rebuilds the table, rebinds the form to the selected row and
// refreshes inputs that are not being typed into.
func (m *FormPageModel) afterUpdate() {
	m.grid.Sync()

	id, ok := m.grid.SelectedID()
	bound, isBound := m.form.Selected()
	switch {
	case ok && (!isBound || bound != id):
		if err := m.form.Bind(id); err != nil {
			m.setError(err)
			m.form.Unbind()
		}
		m.resetInputs()
	case !ok && isBound:
		m.form.Unbind()
		m.resetInputs()
	default:
		m.syncInputs()
	}

	// staged form values never reach the store, so no event marks the rows stale
	m.grid.Invalidate()
	m.grid.Sync()
}

// syncInputs copies form values into every input except the focused one.
func (m *FormPageModel) syncInputs() {
	focused, _ := m.focus.inputField()
	for f, in := range m.inputs {
		if in.Focused() && f == focused {
			continue
		}
		in.SetValue(m.form.Value(f))
		m.inputs[f] = in
	}
}

// resetInputs copies form values into every input.
func (m *FormPageModel) resetInputs() {
	for f, in := range m.inputs {
		in.SetValue(m.form.Value(f))
		m.inputs[f] = in
	}
}

// stageFocused stages the focused input. Rejected text is replaced by the
// form's current value.
func (m *FormPageModel) stageFocused() error {
	f, ok := m.focus.inputField()
	if !ok {
		return nil
	}
	in := m.inputs[f]
	if _, bound := m.form.Selected(); !bound {
		in.SetValue("")
		m.inputs[f] = in
		return nil
	}
	err := m.form.Stage(f, in.Value())
	if err != nil {
		m.setError(err)
		logging.EditDebug("form rejected %s=%q: %v", f, in.Value(), err)
	}
	in.SetValue(m.form.Value(f))
	m.inputs[f] = in
	return err
}

func (m *FormPageModel) moveFocus(delta int) tea.Cmd {
	_ = m.stageFocused()

	if f, ok := m.focus.inputField(); ok {
		in := m.inputs[f]
		in.Blur()
		m.inputs[f] = in
	}
	if m.focus == focusTable {
		m.grid.Blur()
	}

	m.focus = (m.focus + formFocus(delta) + focusCount) % focusCount

	if m.focus == focusTable {
		m.grid.Focus()
		return nil
	}
	if f, ok := m.focus.inputField(); ok {
		in := m.inputs[f]
		cmd := in.Focus()
		in.CursorEnd()
		m.inputs[f] = in
		return cmd
	}
	return nil
}

func (m *FormPageModel) save() {
	if _, ok := m.form.Selected(); !ok {
		m.setError(edit.ErrNoSelection)
		return
	}
	stageErr := m.stageFocused()
	logging.UIDebug("form save requested, state %s", m.form.State())
	if err := m.form.Commit(); err != nil {
		m.setError(err)
	} else if stageErr == nil {
		m.setOK("saved")
	}
	m.resetInputs()
}

func (m *FormPageModel) rollback() {
	if _, ok := m.form.Selected(); !ok {
		return
	}
	logging.UIDebug("form rollback requested, state %s", m.form.State())
	m.form.Rollback()
	m.resetInputs()
	m.setOK("rolled back")
}

func (m *FormPageModel) setError(err error) {
	m.status = err.Error()
	m.statusOK = false
}

func (m *FormPageModel) setOK(s string) {
	m.status = s
	m.statusOK = true
}

// SetSize sets the page dimensions.
func (m *FormPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	formWidth := 36
	if w > formWidth+20 {
		m.grid.SetSize(w-formWidth-4, h-4)
	}
}

// View renders the page.
func (m FormPageModel) View() string {
	if m.showHelp {
		return m.help
	}

	header := m.styles.Header.Render(FormTitle)
	if m.form.Dirty() {
		header += " " + m.styles.Warning.Render("(modified)")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderForm(),
		"  ",
		m.grid.View(),
	)

	var footer strings.Builder
	footer.WriteString(m.styles.Footer.Render("tab focus • ctrl+s save • ctrl+z rollback • ? help • q quit"))
	if m.status != "" {
		footer.WriteString("\n")
		if m.statusOK {
			footer.WriteString(m.styles.Success.Render(m.status))
		} else {
			footer.WriteString(m.styles.Error.Render(m.status))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer.String())
}

func (m FormPageModel) renderForm() string {
	row := func(f patient.Field) string {
		style := m.styles.Input
		if m.inputs[f].Focused() {
			style = m.styles.InputFocused
		}
		label := f.Title()
		if m.form.FieldDirty(f) {
			label += "*"
		}
		return lipgloss.JoinHorizontal(lipgloss.Center,
			m.styles.Label.Render(label),
			style.Render(m.inputs[f].View()),
		)
	}

	name := m.styles.Fieldset.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Bold.Render("NAME"),
		row(patient.FieldFirstName),
		row(patient.FieldLastName),
	))
	details := m.styles.Fieldset.Render(lipgloss.JoinVertical(lipgloss.Left,
		row(patient.FieldBirthday),
		row(patient.FieldWBCC),
	))

	button := func(label string, f formFocus) string {
		if m.focus == f {
			return m.styles.ButtonFocused.Render(label)
		}
		return m.styles.Button.Render(label)
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		button("SAVE", focusSave), " ", button("ROLLBACK", focusRollback))

	state := m.styles.Muted.Render("state: " + m.form.State().String())
	return lipgloss.JoinVertical(lipgloss.Left, name, details, "", buttons, state)
}

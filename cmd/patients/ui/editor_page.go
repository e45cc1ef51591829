package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"patientdesk/internal/edit"
	"patientdesk/internal/logging"
	"patientdesk/internal/patient"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EditorTitle is the window title of the table editor view.
const EditorTitle = "Patients"

// EditorPageModel is the table editor view. Cell edits are staged in the
// controller and reach the store only on save.
type EditorPageModel struct {
	width  int
	height int

	ctx  context.Context
	ctrl *edit.Controller
	grid Grid

	loading  bool
	loaded   bool
	err      error
	status   string
	statusOK bool
	showHelp bool
	help     string

	styles Styles
}

// NewEditorPage creates the table editor over ctrl. Records are loaded
// from the controller's provider by Init.
func NewEditorPage(ctx context.Context, ctrl *edit.Controller, styles Styles) EditorPageModel {
	cell := func(rec patient.Patient, f patient.Field, now time.Time) (string, bool) {
		return pendingCell(rec, f, now, func(f patient.Field) (string, bool) {
			return ctrl.Staged(rec.ID, f)
		})
	}
	m := EditorPageModel{
		ctx:     ctx,
		ctrl:    ctrl,
		grid:    NewGrid(ctrl.Store(), cell, ctrl.Stage, styles),
		loading: true,
		styles:  styles,
	}
	m.grid.Focus()
	return m
}

// Init sets the window title and starts the initial load.
func (m EditorPageModel) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(EditorTitle),
		loadCmd(m.ctx, m.ctrl.Provider(), true),
	)
}

// Err returns the fatal error that ended the program, if any.
func (m EditorPageModel) Err() error { return m.err }

// Controller exposes the edit controller.
func (m EditorPageModel) Controller() *edit.Controller { return m.ctrl }

// Grid exposes the table.
func (m EditorPageModel) Grid() Grid { return m.grid }

// Status returns the status line text.
func (m EditorPageModel) Status() string { return m.status }

// Loading reports whether a load is in flight.
func (m EditorPageModel) Loading() bool { return m.loading }

// Update handles messages.
func (m EditorPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case RecordsLoadedMsg:
		return m.applyLoad(msg)

	case RefreshMsg:
		return m, m.refresh()

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
		if m.grid.Editing() {
			break
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "?":
			m.help = renderHelp(editorHelp, m.styles.Theme.IsDark)
			m.showHelp = true
			return m, nil
		case "ctrl+s":
			m.save()
			m.afterUpdate()
			return m, nil
		case "ctrl+z":
			if m.ctrl.Dirty() {
				logging.UIDebug("editor discard requested")
				m.ctrl.Discard()
				m.grid.Invalidate()
				m.setOK("discarded staged edits")
			}
			m.afterUpdate()
			return m, nil
		case "d", "delete":
			m.delete()
			m.afterUpdate()
			return m, nil
		case "ctrl+r":
			return m, m.refresh()
		case "y":
			m.copySelected()
			return m, nil
		}
	}

	m.grid, cmd = m.grid.Update(msg)
	m.afterUpdate()
	return m, cmd
}

func (m EditorPageModel) applyLoad(msg RecordsLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	err := msg.Err
	if err == nil {
		err = m.ctrl.Apply(msg.Records)
	}
	if err != nil {
		if msg.Initial {
			m.err = fmt.Errorf("failed to load patients: %w", err)
			logging.LoaderError("%v", m.err)
			return m, tea.Quit
		}
		logging.LoaderError("refresh failed: %v", err)
		m.setError(fmt.Errorf("refresh failed: %w", err))
		return m, nil
	}

	m.loaded = true
	m.grid.ClearSelection()
	m.grid.Invalidate()
	m.afterUpdate()
	m.setOK(fmt.Sprintf("loaded %d patients", len(msg.Records)))
	return m, nil
}

// refresh starts a reload unless one is already running.
func (m *EditorPageModel) refresh() tea.Cmd {
	if m.loading {
		return nil
	}
	logging.UIDebug("editor refresh started")
	m.loading = true
	m.status = "refreshing..."
	m.statusOK = true
	return loadCmd(m.ctx, m.ctrl.Provider(), false)
}

// afterUpdate rebuilds the table and mirrors the table selection into the
// controller.
func (m *EditorPageModel) afterUpdate() {
	m.grid.Sync()
	id, ok := m.grid.SelectedID()
	if !ok {
		m.ctrl.ClearSelection()
		return
	}
	if sel, has := m.ctrl.Selected(); has && sel == id {
		return
	}
	if err := m.ctrl.Select(id); err != nil {
		m.grid.ClearSelection()
	}
}

func (m *EditorPageModel) save() {
	if !m.ctrl.Dirty() {
		return
	}
	n, err := m.ctrl.Save()
	m.grid.Invalidate()
	logging.UIDebug("editor saved %d edits: %v", n, err)
	if err != nil {
		m.setError(err)
		return
	}
	m.setOK(fmt.Sprintf("saved %d edits", n))
}

func (m *EditorPageModel) delete() {
	id, ok := m.ctrl.Selected()
	if !ok || !m.ctrl.CanDelete() {
		return
	}
	if m.ctrl.Delete() {
		logging.UIDebug("editor deleted patient %d", id)
		m.grid.ClearSelection()
		m.grid.Invalidate()
		m.setOK(fmt.Sprintf("deleted patient %d", id))
	}
}

func (m *EditorPageModel) copySelected() {
	id, ok := m.ctrl.Selected()
	if !ok {
		return
	}
	rec, ok := m.ctrl.Store().Get(id)
	if !ok {
		return
	}
	now := time.Now()
	cols := make([]string, 0, len(patient.Fields()))
	for _, f := range patient.Fields() {
		cols = append(cols, rec.Text(f, now))
	}
	if err := clipboardWriteAll(strings.Join(cols, "\t")); err != nil {
		m.setError(fmt.Errorf("copy failed: %w", err))
		return
	}
	m.setOK(fmt.Sprintf("copied patient %d", id))
}

func (m *EditorPageModel) setError(err error) {
	m.status = err.Error()
	m.statusOK = false
}

func (m *EditorPageModel) setOK(s string) {
	m.status = s
	m.statusOK = true
}

// SetSize sets the page dimensions.
func (m *EditorPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.grid.SetSize(w-2, h-4)
}

// View renders the page.
func (m EditorPageModel) View() string {
	if m.showHelp {
		return m.help
	}

	header := m.styles.Header.Render(EditorTitle)
	if m.ctrl.Dirty() {
		header += " " + m.styles.Warning.Render(fmt.Sprintf("(%d staged)", len(m.ctrl.Pending())))
	}

	var body string
	if !m.loaded && m.loading {
		body = m.styles.Info.Render("Loading patients...")
	} else {
		body = m.grid.View()
	}

	keys := []string{"ctrl+s save", "ctrl+z discard"}
	if m.ctrl.CanDelete() {
		keys = append(keys, "d delete", "y copy")
	}
	keys = append(keys, "ctrl+r refresh", "? help", "q quit")
	footer := m.styles.Footer.Render(strings.Join(keys, " • "))
	if m.status != "" {
		if m.loading {
			footer += "\n" + m.styles.Info.Render(m.status)
		} else if m.statusOK {
			footer += "\n" + m.styles.Success.Render(m.status)
		} else {
			footer += "\n" + m.styles.Error.Render(m.status)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer)
}

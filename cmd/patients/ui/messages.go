package ui

import (
	"context"

	"patientdesk/internal/patient"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// RecordsLoadedMsg carries the result of a provider load back to the
// event loop.
type RecordsLoadedMsg struct {
	Records []patient.Patient
	Err     error
	Initial bool
}

// RefreshMsg asks the editor page to reload from its provider. It is safe
// to send from other goroutines via tea.Program.Send.
type RefreshMsg struct{}

// loadCmd runs the provider off the event loop.
func loadCmd(ctx context.Context, p patient.Provider, initial bool) tea.Cmd {
	return func() tea.Msg {
		records, err := p.Load(ctx)
		return RecordsLoadedMsg{Records: records, Err: err, Initial: initial}
	}
}

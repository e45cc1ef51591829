package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const editorHelp = `# Patients

| Key | Action |
| --- | --- |
| ↑/↓ | select a row |
| ←/→ | choose the column to edit |
| enter | edit the cell (enter confirms, esc cancels) |
| ctrl+s | save all staged edits |
| ctrl+z | discard staged edits |
| d / delete | delete the selected patient |
| ctrl+r | reload patients |
| y | copy the selected patient |
| ? | toggle this help |
| q | quit |

Edited cells are marked with *. Nothing is written until you save.
`

const formHelp = `# My View

| Key | Action |
| --- | --- |
| tab / shift+tab | move between the table and the form |
| ↑/↓ | select a row in the table |
| enter | edit a table cell in place, or press a focused button |
| ctrl+s | SAVE the form into the selected patient |
| ctrl+z | ROLLBACK the form |
| ? | toggle this help |
| q / ctrl+c | quit |

Form and table edits stay staged until SAVE. ROLLBACK drops them.
`

// renderHelp renders markdown for the terminal, falling back to the raw
// text when the renderer cannot be built.
func renderHelp(markdown string, dark bool) string {
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

package ui

import (
	"strings"
	"testing"

	"patientdesk/internal/patient"
)

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Test Table", []string{"Col1", "Col2"})
	table.AddRow("Row1Col1", "Row1Col2")

	styles := DefaultStyles()
	view := table.View(styles)

	t.Logf("View:\n%q", view)

	if !strings.Contains(view, "Test Table") {
		t.Error("View missing title")
	}
	if !strings.Contains(view, "Row1Col1") {
		t.Error("View missing cell content")
	}
}

func TestSimpleTableEmpty(t *testing.T) {
	view := NewSimpleTable("", []string{"A"}).View(DefaultStyles())
	if !strings.Contains(view, "(no rows)") {
		t.Errorf("expected empty marker, got %q", view)
	}
}

func TestPatientTable(t *testing.T) {
	table := PatientTable("Patients", patient.Sample(), fixedNow)
	if len(table.Rows) != 13 {
		t.Fatalf("expected 13 rows, got %d", len(table.Rows))
	}
	if got := strings.Join(table.Rows[0], ","); got != "1,John,Simone,1989-01-07,35,4500" {
		t.Errorf("unexpected first row %q", got)
	}
	if table.Headers[4] != "AGE" {
		t.Errorf("expected AGE column, got %q", table.Headers[4])
	}

	view := table.View(DefaultStyles())
	for _, want := range []string{"FIRST NAME", "Jasper", "Martin", "1971-07-01"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

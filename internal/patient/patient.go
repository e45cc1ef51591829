// Package patient defines the patient record, its editable fields, and the
// derived age value shown in every table.
package patient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidValue is returned when text cannot be coerced to a field's type.
	ErrInvalidValue = errors.New("invalid value")
	// ErrReadOnlyField is returned when an edit targets ID or AGE.
	ErrReadOnlyField = errors.New("field is read-only")
)

// DateLayout is the canonical birthday format.
const DateLayout = "2006-01-02"

// usDateLayout matches the month/day/year form typed into date pickers.
const usDateLayout = "1/2/2006"

// Field identifies a column of the patient table.
type Field int

const (
	FieldID Field = iota
	FieldFirstName
	FieldLastName
	FieldBirthday
	FieldAge
	FieldWBCC
)

var fieldTitles = map[Field]string{
	FieldID:        "ID",
	FieldFirstName: "FIRST NAME",
	FieldLastName:  "LAST NAME",
	FieldBirthday:  "BIRTHDAY",
	FieldAge:       "AGE",
	FieldWBCC:      "WBCC",
}

// Fields returns every field in column order.
func Fields() []Field {
	return []Field{FieldID, FieldFirstName, FieldLastName, FieldBirthday, FieldAge, FieldWBCC}
}

// EditableFields returns the fields a user may change, in column order.
func EditableFields() []Field {
	return []Field{FieldFirstName, FieldLastName, FieldBirthday, FieldWBCC}
}

// Title is the column header for the field.
func (f Field) Title() string {
	if t, ok := fieldTitles[f]; ok {
		return t
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func (f Field) String() string { return f.Title() }

// Editable reports whether the field accepts edits.
func (f Field) Editable() bool {
	switch f {
	case FieldFirstName, FieldLastName, FieldBirthday, FieldWBCC:
		return true
	default:
		return false
	}
}

// Patient is a single record. ID is assigned once and never changes.
type Patient struct {
	ID                  int
	FirstName           string
	LastName            string
	Birthday            time.Time
	WhiteBloodCellCount int
}

// Age is the number of whole years between the birthday and now.
// It is never stored; callers pass the clock reading they render with.
func (p Patient) Age(now time.Time) int {
	return YearsBetween(p.Birthday, now)
}

// Text renders a field for display. AGE is derived from now.
func (p Patient) Text(f Field, now time.Time) string {
	switch f {
	case FieldID:
		return strconv.Itoa(p.ID)
	case FieldFirstName:
		return p.FirstName
	case FieldLastName:
		return p.LastName
	case FieldBirthday:
		return FormatDate(p.Birthday)
	case FieldAge:
		return strconv.Itoa(p.Age(now))
	case FieldWBCC:
		return strconv.Itoa(p.WhiteBloodCellCount)
	}
	return ""
}

// SetText coerces raw into the field's type and assigns it.
// On error the record is left untouched.
func (p *Patient) SetText(f Field, raw string) error {
	switch f {
	case FieldFirstName:
		p.FirstName = raw
	case FieldLastName:
		p.LastName = raw
	case FieldBirthday:
		d, err := ParseDate(raw)
		if err != nil {
			return err
		}
		p.Birthday = d
	case FieldWBCC:
		n, err := parseCount(raw)
		if err != nil {
			return err
		}
		p.WhiteBloodCellCount = n
	default:
		return fmt.Errorf("%s: %w", f.Title(), ErrReadOnlyField)
	}
	return nil
}

// Normalize validates raw for the field and returns its canonical text,
// the form Text would produce after SetText.
func Normalize(f Field, raw string) (string, error) {
	var p Patient
	if err := p.SetText(f, raw); err != nil {
		return "", err
	}
	return p.Text(f, time.Time{}), nil
}

// YearsBetween counts whole calendar years from 'from' to 'to', truncated
// toward zero. An anniversary is reached once to's month and day are at or
// past from's, so a 29 February birthday turns over on 1 March in common years.
func YearsBetween(from, to time.Time) int {
	if to.Before(from) {
		return -YearsBetween(to, from)
	}
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	years := ty - fy
	if tm < fm || (tm == fm && td < fd) {
		years--
	}
	return years
}

// Date builds a calendar date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a birthday in DateLayout.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate accepts ISO (2006-01-02) or month/day/year (1/2/2006) text.
// 0001-01-01 is the zero time, which FormatDate renders as no date, so it
// is rejected.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, usDateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil && !t.IsZero() {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("birthday %q: %w", raw, ErrInvalidValue)
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", raw, ErrInvalidValue)
	}
	return n, nil
}

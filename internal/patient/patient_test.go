package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearsBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"after anniversary", Date(1989, time.January, 7), Date(2024, time.June, 1), 35},
		{"day before anniversary", Date(1989, time.June, 2), Date(2024, time.June, 1), 34},
		{"on anniversary", Date(1989, time.June, 1), Date(2024, time.June, 1), 35},
		{"leap day on Feb 28", Date(2000, time.February, 29), Date(2001, time.February, 28), 0},
		{"leap day on Mar 1", Date(2000, time.February, 29), Date(2001, time.March, 1), 1},
		{"same day", Date(2020, time.May, 5), Date(2020, time.May, 5), 0},
		{"future birthday", Date(2030, time.June, 1), Date(2026, time.October, 18), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, YearsBetween(tt.from, tt.to))
		})
	}
}

func TestPatientAgeIsDerivedAtReadTime(t *testing.T) {
	p := Patient{ID: 1, Birthday: Date(1989, time.January, 7)}
	assert.Equal(t, 35, p.Age(Date(2024, time.June, 1)))
	assert.Equal(t, 36, p.Age(Date(2025, time.January, 7)))

	require.NoError(t, p.SetText(FieldBirthday, "1999-01-07"))
	assert.Equal(t, "26", p.Text(FieldAge, Date(2025, time.January, 7)))
}

func TestSetTextCoercion(t *testing.T) {
	p := Sample()[0]

	require.NoError(t, p.SetText(FieldWBCC, " 5200 "))
	assert.Equal(t, 5200, p.WhiteBloodCellCount)

	err := p.SetText(FieldWBCC, "lots")
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.Equal(t, 5200, p.WhiteBloodCellCount, "rejected edit must keep prior value")

	require.NoError(t, p.SetText(FieldBirthday, "2/5/1970"))
	assert.Equal(t, "1970-02-05", p.Text(FieldBirthday, time.Time{}))

	err = p.SetText(FieldBirthday, "1970-13-40")
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "1970-02-05", FormatDate(p.Birthday))

	assert.ErrorIs(t, p.SetText(FieldID, "99"), ErrReadOnlyField)
	assert.ErrorIs(t, p.SetText(FieldAge, "3"), ErrReadOnlyField)
	assert.Equal(t, 1, p.ID)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(FieldBirthday, "1/7/1989")
	require.NoError(t, err)
	assert.Equal(t, "1989-01-07", got)

	got, err = Normalize(FieldWBCC, "007")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	got, err = Normalize(FieldFirstName, " Jo ")
	require.NoError(t, err)
	assert.Equal(t, " Jo ", got)

	_, err = Normalize(FieldAge, "1")
	assert.ErrorIs(t, err, ErrReadOnlyField)
}

func TestParseDateRejectsZeroDate(t *testing.T) {
	for _, raw := range []string{"0001-01-01", "1/1/0001"} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, ErrInvalidValue, raw)

		_, err = Normalize(FieldBirthday, raw)
		assert.ErrorIs(t, err, ErrInvalidValue, raw)
	}

	p := Patient{ID: 1, Birthday: Date(1989, time.January, 7)}
	assert.ErrorIs(t, p.SetText(FieldBirthday, "0001-01-01"), ErrInvalidValue)
	assert.Equal(t, "1989-01-07", FormatDate(p.Birthday))

	d, err := ParseDate("0001-01-02")
	require.NoError(t, err)
	assert.Equal(t, "0001-01-02", FormatDate(d))
}

func TestFields(t *testing.T) {
	titles := make([]string, 0)
	for _, f := range Fields() {
		titles = append(titles, f.Title())
	}
	assert.Equal(t, []string{"ID", "FIRST NAME", "LAST NAME", "BIRTHDAY", "AGE", "WBCC"}, titles)

	for _, f := range EditableFields() {
		assert.True(t, f.Editable(), f.Title())
	}
	assert.False(t, FieldID.Editable())
	assert.False(t, FieldAge.Editable())
}

func TestSampleProvider(t *testing.T) {
	records, err := SampleProvider{}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 13)
	for i, p := range records {
		assert.Equal(t, i+1, p.ID)
	}
	assert.Equal(t, "Jasper", records[12].FirstName)

	records[0].FirstName = "Changed"
	assert.Equal(t, "John", Sample()[0].FirstName, "Sample must return a fresh copy")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SampleProvider{}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

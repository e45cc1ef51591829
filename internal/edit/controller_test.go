package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patientdesk/internal/patient"
	"patientdesk/internal/store"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	s, err := store.New()
	require.NoError(t, err)
	c := NewController(s, patient.SampleProvider{})
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func TestControllerSaveAppliesEverything(t *testing.T) {
	c := newController(t)

	require.NoError(t, c.Stage(9, patient.FieldWBCC, "4700"))
	require.NoError(t, c.Stage(1, patient.FieldLastName, "Simons"))
	require.NoError(t, c.Stage(1, patient.FieldBirthday, "1/8/1989"))
	assert.True(t, c.Dirty())

	pending := c.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, CellKey{ID: 1, Field: patient.FieldLastName}, pending[0].CellKey)
	assert.Equal(t, CellKey{ID: 1, Field: patient.FieldBirthday}, pending[1].CellKey)
	assert.Equal(t, CellKey{ID: 9, Field: patient.FieldWBCC}, pending[2].CellKey)

	rec, _ := c.Store().Get(1)
	assert.Equal(t, "Simone", rec.LastName, "nothing committed before save")

	n, err := c.Save()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, c.Dirty())
	assert.Empty(t, c.Pending())

	rec, _ = c.Store().Get(1)
	assert.Equal(t, "Simons", rec.LastName)
	assert.Equal(t, "1989-01-08", patient.FormatDate(rec.Birthday))
	rec, _ = c.Store().Get(9)
	assert.Equal(t, 4700, rec.WhiteBloodCellCount)
}

func TestControllerStageRejectsInvalid(t *testing.T) {
	c := newController(t)
	assert.ErrorIs(t, c.Stage(2, patient.FieldWBCC, "abc"), patient.ErrInvalidValue)
	assert.ErrorIs(t, c.Stage(2, patient.FieldID, "3"), patient.ErrReadOnlyField)
	assert.ErrorIs(t, c.Stage(77, patient.FieldFirstName, "x"), store.ErrNotFound)
	assert.False(t, c.Dirty())
	assert.Equal(t, "6700", c.Value(2, patient.FieldWBCC, patient.Date(2024, 6, 1)))
}

func TestControllerStageRejectsZeroBirthday(t *testing.T) {
	c := newController(t)
	assert.ErrorIs(t, c.Stage(1, patient.FieldBirthday, "0001-01-01"), patient.ErrInvalidValue)
	_, ok := c.Staged(1, patient.FieldBirthday)
	assert.False(t, ok)

	n, err := c.Save()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "1989-01-07", c.Value(1, patient.FieldBirthday, patient.Date(2024, 6, 1)))
}

func TestControllerStagingCommittedValueClearsCell(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Stage(2, patient.FieldWBCC, "1"))
	require.NoError(t, c.Stage(2, patient.FieldWBCC, "6700"))
	_, ok := c.Staged(2, patient.FieldWBCC)
	assert.False(t, ok)
}

func TestControllerDeleteSelected(t *testing.T) {
	c := newController(t)
	before := c.Store().Records()

	assert.False(t, c.CanDelete())
	assert.False(t, c.Delete(), "delete without selection is a no-op")
	assert.Equal(t, 13, c.Store().Len())

	require.NoError(t, c.Select(7))
	assert.True(t, c.CanDelete())
	assert.True(t, c.Delete())
	assert.False(t, c.CanDelete())

	after := c.Store().Records()
	want := append(append([]patient.Patient(nil), before[:6]...), before[7:]...)
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("delete changed other rows (-want +got):\n%s", diff)
	}
}

func TestControllerDeleteDiscardsPendingEditsForRow(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Stage(7, patient.FieldFirstName, "Mike"))
	require.NoError(t, c.Stage(8, patient.FieldFirstName, "Jay"))

	require.NoError(t, c.Select(7))
	require.True(t, c.Delete())

	pending := c.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 8, pending[0].ID)

	n, err := c.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestControllerRefreshResetsToProvider(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Select(3))
	require.True(t, c.Delete())
	require.NoError(t, c.Stage(4, patient.FieldLastName, "B"))
	require.NoError(t, c.Select(5))

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 13, c.Store().Len())
	assert.False(t, c.Dirty())
	_, ok := c.Selected()
	assert.False(t, ok)
	if diff := cmp.Diff(patient.Sample(), c.Store().Records()); diff != "" {
		t.Fatalf("refresh mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerRefreshFailureKeepsState(t *testing.T) {
	s, err := store.New(patient.Sample()...)
	require.NoError(t, err)
	boom := errors.New("disk on fire")
	c := NewController(s, patient.ProviderFunc(func(context.Context) ([]patient.Patient, error) {
		return nil, boom
	}))
	require.NoError(t, c.Stage(1, patient.FieldFirstName, "J"))

	err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, c.Dirty())
	assert.Equal(t, 13, s.Len())
}

func TestControllerSaveSkipsVanishedRows(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Stage(2, patient.FieldFirstName, "Sara"))
	require.NoError(t, c.Stage(3, patient.FieldFirstName, "Jess"))
	c.Store().Remove(2)

	n, err := c.Save()
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, c.Dirty())
}

func TestControllerDiscard(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Stage(2, patient.FieldFirstName, "Sara"))
	c.Discard()
	assert.False(t, c.Dirty())
	assert.Equal(t, "Sarah", c.Value(2, patient.FieldFirstName, patient.Date(2024, 6, 1)))
}

func TestControllerSelectUnknown(t *testing.T) {
	c := newController(t)
	assert.ErrorIs(t, c.Select(100), store.ErrNotFound)
	_, ok := c.Selected()
	assert.False(t, ok)
}

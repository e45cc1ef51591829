package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"patientdesk/internal/logging"
	"patientdesk/internal/patient"
)

func newSampleStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background(), patient.SampleProvider{}))
	return s
}

func ids(records []patient.Patient) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestLoadSampleInOrder(t *testing.T) {
	s := newSampleStore(t)
	require.Equal(t, 13, s.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, ids(s.Records()))
	if diff := cmp.Diff(patient.Sample(), s.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	recs := patient.Sample()
	recs[3].ID = 1
	_, err := New(recs...)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoadFailureKeepsContents(t *testing.T) {
	s := newSampleStore(t)
	boom := errors.New("boom")
	err := s.Load(context.Background(), patient.ProviderFunc(func(context.Context) ([]patient.Patient, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 13, s.Len())
}

func TestSetCommitsValue(t *testing.T) {
	s := newSampleStore(t)
	rev := s.Revision()

	require.NoError(t, s.Set(3, patient.FieldLastName, "Arnoldson"))
	got, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Arnoldson", got.LastName)
	assert.Greater(t, s.Revision(), rev)

	err := s.Set(3, patient.FieldWBCC, "n/a")
	assert.ErrorIs(t, err, patient.ErrInvalidValue)
	got, _ = s.Get(3)
	assert.Equal(t, 3400, got.WhiteBloodCellCount)

	assert.ErrorIs(t, s.Set(99, patient.FieldFirstName, "x"), ErrNotFound)
	assert.ErrorIs(t, s.Set(3, patient.FieldID, "8"), patient.ErrReadOnlyField)
}

func TestRemoveLeavesOthersUnchanged(t *testing.T) {
	s := newSampleStore(t)
	before := s.Records()

	require.True(t, s.Remove(5))
	after := s.Records()
	require.Len(t, after, 12)

	want := append(append([]patient.Patient(nil), before[:4]...), before[5:]...)
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("unexpected change (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, s.Index(6), "index must follow the removal")
	assert.Equal(t, -1, s.Index(5))

	assert.False(t, s.Remove(5), "second remove is a no-op")
	assert.Equal(t, 12, s.Len())
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	s := newSampleStore(t)

	var got []Event
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev) })

	var second []EventKind
	s.Subscribe(func(ev Event) { second = append(second, ev.Kind) })

	require.NoError(t, s.Set(1, patient.FieldFirstName, "Jon"))
	s.Remove(2)
	require.NoError(t, s.Replace(patient.Sample()))

	require.Len(t, got, 3)
	assert.Equal(t, EventUpdated, got[0].Kind)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, patient.FieldFirstName, got[0].Field)
	assert.Equal(t, EventRemoved, got[1].Kind)
	assert.Equal(t, EventLoaded, got[2].Kind)
	assert.Less(t, got[0].Revision, got[2].Revision)

	cancel()
	s.Remove(1)
	assert.Len(t, got, 3, "cancelled observer must not be called")
	assert.Equal(t, []EventKind{EventUpdated, EventRemoved, EventLoaded, EventRemoved}, second)
}

func TestObserverMayReadStore(t *testing.T) {
	s := newSampleStore(t)
	var seen int
	s.Subscribe(func(Event) { seen = s.Len() })
	s.Remove(13)
	assert.Equal(t, 12, seen)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "loaded", EventLoaded.String())
	assert.Equal(t, "updated", EventUpdated.String())
	assert.Equal(t, "removed", EventRemoved.String())
}

func TestAuditObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logging.SetAuditBase(zap.New(core))
	defer logging.CloseAudit()

	s, err := New()
	require.NoError(t, err)
	cancel := s.Subscribe(s.AuditObserver())
	defer cancel()

	require.NoError(t, s.Load(context.Background(), patient.SampleProvider{}))
	require.NoError(t, s.Set(5, patient.FieldLastName, "Forny"))
	require.True(t, s.Remove(5))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "records_loaded", entries[0].ContextMap()["event"])
	assert.EqualValues(t, 13, entries[0].ContextMap()["count"])
	assert.Equal(t, "LAST NAME", entries[1].ContextMap()["field"])
	assert.Equal(t, "record_removed", entries[2].ContextMap()["event"])
	assert.EqualValues(t, 5, entries[2].ContextMap()["patient"])
}

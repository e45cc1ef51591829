package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditDisabledDropsEvents(t *testing.T) {
	CloseAll()
	// must not panic without a sink
	Audit().RecordRemoved(3)
	var nilLogger *AuditLogger
	nilLogger.EditsDiscarded(1)
}

func TestAuditEventsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetAuditBase(zap.New(core))
	defer CloseAudit()

	a := Audit()
	a.RecordUpdated(4, "WBCC")
	a.RecordRemoved(9)
	a.EditsSaved(2, errors.New("patient 77 not found"))
	a.EditsDiscarded(3)

	entries := logs.All()
	require.Len(t, entries, 4)

	updated := entries[0].ContextMap()
	assert.Equal(t, "record_updated", updated["event"])
	assert.EqualValues(t, 4, updated["patient"])
	assert.Equal(t, "WBCC", updated["field"])
	assert.Equal(t, true, updated["success"])

	removed := entries[1].ContextMap()
	assert.Equal(t, "record_removed", removed["event"])
	_, hasField := removed["field"]
	assert.False(t, hasField)

	saved := entries[2].ContextMap()
	assert.Equal(t, false, saved["success"])
	assert.Equal(t, "patient 77 not found", saved["error"])
	assert.EqualValues(t, 2, saved["count"])

	assert.Equal(t, "edits_discarded", entries[3].ContextMap()["event"])
}

func TestAuditFileWrittenInDebugMode(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, Initialize(ws, Options{DebugMode: true, SessionID: "sess-a"}))

	Audit().SessionStart("list")
	Audit().RecordsLoaded(13)
	CloseAll()

	matches, err := filepath.Glob(filepath.Join(ws, ".patients", "logs", "*_audit.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"event":"session_start"`)
	assert.Contains(t, content, `"event":"records_loaded"`)
	assert.Contains(t, content, `"count":13`)
	assert.Contains(t, content, `"session":"sess-a"`)
}

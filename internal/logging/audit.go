package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a change to patient data.
type AuditEventType string

const (
	AuditSessionStart   AuditEventType = "session_start"
	AuditSessionEnd     AuditEventType = "session_end"
	AuditRecordsLoaded  AuditEventType = "records_loaded"
	AuditRecordUpdated  AuditEventType = "record_updated"
	AuditRecordRemoved  AuditEventType = "record_removed"
	AuditEditsSaved     AuditEventType = "edits_saved"
	AuditEditsDiscarded AuditEventType = "edits_discarded"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	EventType AuditEventType
	PatientID int    // zero when the event is not about one record
	Field     string // column title for record_updated
	Count     int    // rows loaded, edits saved or discarded
	Success   bool
	Error     string
	Message   string
}

// MarshalLogObject writes the event as flat JSON fields.
func (e AuditEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event", string(e.EventType))
	if e.PatientID != 0 {
		enc.AddInt("patient", e.PatientID)
	}
	if e.Field != "" {
		enc.AddString("field", e.Field)
	}
	if e.Count != 0 {
		enc.AddInt("count", e.Count)
	}
	enc.AddBool("success", e.Success)
	if e.Error != "" {
		enc.AddString("error", e.Error)
	}
	if e.Message != "" {
		enc.AddString("msg", e.Message)
	}
	return nil
}

var (
	auditMu     sync.Mutex
	auditFile   *os.File
	auditLogger *AuditLogger
)

// AuditLogger writes audit events as JSON lines. A nil or closed logger
// drops events.
type AuditLogger struct {
	log       *zap.Logger
	sessionID string
}

// InitAudit opens <logsDir>/<date>_audit.log. It is a no-op unless debug
// mode is on.
func InitAudit(logsDir, sessionID string) error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	encCfg.MessageKey = ""
	encCfg.LevelKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)

	l := zap.New(core)
	if sessionID != "" {
		l = l.With(zap.String("session", sessionID))
	}
	auditFile = f
	auditLogger = &AuditLogger{log: l, sessionID: sessionID}
	return nil
}

// SetAuditBase routes audit events to l. Tests use it with an observer core.
func SetAuditBase(l *zap.Logger) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditLogger = &AuditLogger{log: l}
}

// CloseAudit flushes and closes the audit log.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger != nil && auditLogger.log != nil {
		_ = auditLogger.log.Sync()
	}
	if auditFile != nil {
		_ = auditFile.Close()
		auditFile = nil
	}
	auditLogger = nil
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger == nil {
		return &AuditLogger{}
	}
	return auditLogger
}

// Log writes an event.
func (a *AuditLogger) Log(event AuditEvent) {
	if a == nil || a.log == nil {
		return
	}
	a.log.Info("", zap.Inline(event))
}

func (a *AuditLogger) SessionStart(command string) {
	a.Log(AuditEvent{EventType: AuditSessionStart, Success: true, Message: command})
}

func (a *AuditLogger) SessionEnd(err error) {
	a.Log(withError(AuditEvent{EventType: AuditSessionEnd}, err))
}

func (a *AuditLogger) RecordsLoaded(count int) {
	a.Log(AuditEvent{EventType: AuditRecordsLoaded, Count: count, Success: true})
}

func (a *AuditLogger) RecordUpdated(id int, field string) {
	a.Log(AuditEvent{EventType: AuditRecordUpdated, PatientID: id, Field: field, Success: true})
}

func (a *AuditLogger) RecordRemoved(id int) {
	a.Log(AuditEvent{EventType: AuditRecordRemoved, PatientID: id, Success: true})
}

// EditsSaved records a save. err carries cells that failed to apply.
func (a *AuditLogger) EditsSaved(count int, err error) {
	a.Log(withError(AuditEvent{EventType: AuditEditsSaved, Count: count}, err))
}

func (a *AuditLogger) EditsDiscarded(count int) {
	a.Log(AuditEvent{EventType: AuditEditsDiscarded, Count: count, Success: true})
}

func withError(e AuditEvent, err error) AuditEvent {
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

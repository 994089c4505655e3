package log

import (
	"strings"
	"sync"
)

// TestEntry represents a captured log entry for testing
type TestEntry struct {
	Level   Level
	Message string
	Fields  []Field
}

// Field returns the value of the named field and whether it was present.
func (e TestEntry) Field(key string) (interface{}, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// TestLogger is a Logger implementation for testing that captures logs
// without producing output.
type TestLogger struct {
	sink   *testSink
	fields []Field
	level  Level
}

type testSink struct {
	mu      sync.Mutex
	entries []TestEntry
}

// NewTestLogger creates a new TestLogger for use in unit tests
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testSink{}, level: DebugLevel}
}

// GetEntries returns all captured log entries, including those of derived loggers.
func (l *TestLogger) GetEntries() []TestEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	result := make([]TestEntry, len(l.sink.entries))
	copy(result, l.sink.entries)
	return result
}

// EntriesAt returns the captured entries at the given level.
func (l *TestLogger) EntriesAt(level Level) []TestEntry {
	var result []TestEntry
	for _, e := range l.GetEntries() {
		if e.Level == level {
			result = append(result, e)
		}
	}
	return result
}

// ContainsMessage reports whether any captured message contains substr.
func (l *TestLogger) ContainsMessage(substr string) bool {
	for _, e := range l.GetEntries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func (l *TestLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *TestLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *TestLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *TestLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *TestLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, TestEntry{Level: level, Message: msg, Fields: all})
}

// With returns a logger sharing this logger's capture buffer.
func (l *TestLogger) With(fields ...Field) Logger {
	child := &TestLogger{sink: l.sink, level: l.level}
	child.fields = append(append([]Field{}, l.fields...), fields...)
	return child
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

func (l *TestLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *TestLogger) SetLevel(level Level) { l.level = level }
func (l *TestLogger) GetLevel() Level      { return l.level }

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer, options ...LoggerOption) Logger {
	options = append([]LoggerOption{WithOutput(NewConsoleOutput(WithCustomWriter(buf)))}, options...)
	return NewLogger(options...)
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, WithLevel(DebugLevel)).WithComponent("nodes")

	logger.Info("Patched node", Hostname("h1"), Int("nodes", 3), Err(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "Patched node", entry["message"])
	assert.Equal(t, "nodes", entry[ComponentKey])
	assert.Equal(t, "h1", entry[HostnameKey])
	assert.Equal(t, float64(3), entry["nodes"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, WithLevel(WarnLevel))

	logger.Debug("debug")
	logger.Info("info")
	assert.Zero(t, buf.Len())

	logger.Warn("warn")
	assert.Contains(t, buf.String(), `"warn"`)

	logger.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, logger.GetLevel())
	buf.Reset()
	logger.Warn("warn again")
	assert.Zero(t, buf.Len())
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{DisableColors: true}
	out, err := f.Format(&Entry{
		Level:     WarnLevel,
		Message:   "Lock timed out",
		Fields:    Fields{"b": 2, "a": "x"},
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00.000 WRN Lock timed out a=x b=2\n", string(out))
}

func TestApplyConfig(t *testing.T) {
	logger, err := ApplyConfig(&Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, logger.GetLevel())

	logger, err = ApplyConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.GetLevel())

	_, err = ApplyConfig(&Config{Level: "loud"})
	assert.Error(t, err)
	_, err = ApplyConfig(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{"DEBUG": DebugLevel, "": InfoLevel, "warning": WarnLevel, "error": ErrorLevel} {
		level, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, level, input)
	}
}

func TestContextLogger(t *testing.T) {
	logger := NewTestLogger()
	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("from context")
	assert.True(t, logger.ContainsMessage("from context"))
	assert.Equal(t, GetDefaultLogger(), FromContext(context.Background()))
}

func TestTestLoggerSharesEntries(t *testing.T) {
	logger := NewTestLogger()
	child := logger.WithComponent("maintenance").With(Str("job", "a"))
	child.Warn("Exception on maintenance redeploy of t:a:default", Application("t:a:default"))
	logger.Info("other")

	entries := logger.EntriesAt(WarnLevel)
	require.Len(t, entries, 1)
	component, ok := entries[0].Field(ComponentKey)
	require.True(t, ok)
	assert.Equal(t, "maintenance", component)
	app, _ := entries[0].Field(ApplicationKey)
	assert.Equal(t, "t:a:default", app)
	assert.Len(t, logger.GetEntries(), 2)
	assert.True(t, strings.HasPrefix(entries[0].Message, "Exception"))
}

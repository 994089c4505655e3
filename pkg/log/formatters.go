package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// JSONFormatter formats log entries as JSON.
type JSONFormatter struct {
	TimestampFormat string
	EnableCaller    bool
}

// Format formats the entry as JSON.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+4)

	timestampFormat := time.RFC3339
	if f.TimestampFormat != "" {
		timestampFormat = f.TimestampFormat
	}
	data["timestamp"] = entry.Timestamp.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if f.EnableCaller && entry.Caller != "" {
		data["caller"] = entry.Caller
	}

	for k, v := range entry.Fields {
		// Standard keys win over fields of the same name
		if _, reserved := data[k]; !reserved {
			data[k] = v
		}
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// TextFormatter formats log entries as human-readable text.
type TextFormatter struct {
	TimestampFormat string
	EnableCaller    bool
	DisableColors   bool
}

var (
	dim       = color.New(color.FgHiBlack)
	fieldKey  = color.New(color.FgCyan)
	levelDbg  = color.New(color.FgBlue)
	levelInf  = color.New(color.FgGreen)
	levelWarn = color.New(color.FgYellow)
	levelErr  = color.New(color.FgRed)
)

// Format formats the entry as text. Fields are sorted by key so lines are stable.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	timestampFormat := "2006-01-02T15:04:05.000"
	if f.TimestampFormat != "" {
		timestampFormat = f.TimestampFormat
	}

	paint := func(c *color.Color, s string) string {
		if f.DisableColors {
			return s
		}
		return c.Sprint(s)
	}

	var b strings.Builder
	b.WriteString(paint(dim, entry.Timestamp.Format(timestampFormat)))
	b.WriteByte(' ')
	b.WriteString(f.level(entry.Level, paint))
	if f.EnableCaller && entry.Caller != "" {
		b.WriteString(" (" + paint(dim, entry.Caller) + ")")
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", paint(fieldKey, k), entry.Fields[k])
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

func (f *TextFormatter) level(level Level, paint func(*color.Color, string) string) string {
	switch level {
	case DebugLevel:
		return paint(levelDbg, "DBG")
	case InfoLevel:
		return paint(levelInf, "INF")
	case WarnLevel:
		return paint(levelWarn, "WRN")
	case ErrorLevel:
		return paint(levelErr, "ERR")
	default:
		return level.String()
	}
}

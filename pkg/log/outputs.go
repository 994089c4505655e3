package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes log entries to stdout, or to stderr for errors.
type ConsoleOutput struct {
	mu            sync.Mutex
	errorToStderr bool
	writer        io.Writer
	errorWriter   io.Writer
}

// ConsoleOutputOption is a function that configures a ConsoleOutput.
type ConsoleOutputOption func(*ConsoleOutput)

// WithCustomWriter makes the ConsoleOutput write every entry to writer.
func WithCustomWriter(writer io.Writer) ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.writer = writer
		o.errorWriter = writer
	}
}

// WithoutErrorToStderr keeps error entries on the main writer.
func WithoutErrorToStderr() ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.errorToStderr = false
	}
}

// NewConsoleOutput creates a new ConsoleOutput with the given options.
func NewConsoleOutput(options ...ConsoleOutputOption) *ConsoleOutput {
	o := &ConsoleOutput{
		errorToStderr: true,
		writer:        os.Stdout,
		errorWriter:   os.Stderr,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Write writes the log entry to the console.
func (o *ConsoleOutput) Write(entry *Entry, formattedEntry []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	writer := o.writer
	if entry.Level == ErrorLevel && o.errorToStderr {
		writer = o.errorWriter
	}

	_, err := writer.Write(formattedEntry)
	return err
}

// Close implements the Output interface but does nothing for console output.
func (o *ConsoleOutput) Close() error {
	return nil
}

// Package test runs the command line in-process for tests and parses its
// JSON log output.
package test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/cmd"
	"github.com/consultant-1379/am-package-manager/internal/flags/log"
)

// Options holds configuration for executing commands in tests
type Options struct {
	args   []string
	out    io.Writer
	logs   io.Writer
	format string
}

// Option is a function that configures Options
type Option func(*Options)

// WithArgs sets the command line arguments.
func WithArgs(args ...string) Option {
	return func(o *Options) {
		o.args = args
	}
}

// WithOutput captures the standard output of the command.
func WithOutput(out io.Writer) Option {
	return func(o *Options) {
		o.out = out
	}
}

// WithLogs captures the log output of the command.
func WithLogs(logs io.Writer) Option {
	return func(o *Options) {
		o.logs = logs
	}
}

// WithLogFormat sets the log format, json by default.
func WithLogFormat(format string) Option {
	return func(o *Options) {
		o.format = format
	}
}

// Run executes the root command with the given options and returns the
// command that ran and its error.
func Run(tb testing.TB, opts ...Option) (*cobra.Command, error) {
	tb.Helper()

	opt := Options{out: io.Discard, logs: io.Discard}
	for _, o := range opts {
		o(&opt)
	}
	instance := cmd.New()
	if len(opt.args) == 0 {
		opt.args = []string{"help"}
	}
	instance.SetOut(opt.out)
	instance.SetErr(opt.logs)

	// json logs are easier to test against
	if opt.format == "" {
		opt.format = log.FormatJSON
	}
	f := instance.PersistentFlags().Lookup(log.FormatFlagName)
	if err := f.Value.Set(opt.format); err != nil {
		return nil, fmt.Errorf("failed to set format: %w", err)
	}

	instance.SetArgs(opt.args)
	return instance.ExecuteContextC(tb.Context())
}

// JSONLogReader reads JSON log entries. Lines that are not JSON are kept in
// Discarded.
type JSONLogReader struct {
	*bytes.Buffer
	Discarded *bytes.Buffer
}

func NewJSONLogReader() *JSONLogReader {
	return &JSONLogReader{
		Buffer:    bytes.NewBuffer(make([]byte, 0, 1024)),
		Discarded: bytes.NewBuffer(make([]byte, 0, 1024)),
	}
}

// JSONLogEntry is a single log entry. Attributes other than time, level and
// msg end up in Extras.
type JSONLogEntry struct {
	Time   string         `json:"time"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Extras map[string]any `json:"-"`
}

func (l *JSONLogEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Time, _ = raw["time"].(string)
	l.Level, _ = raw["level"].(string)
	l.Msg, _ = raw["msg"].(string)
	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "msg")
	l.Extras = raw
	return nil
}

// List parses the buffered log lines.
func (logs *JSONLogReader) List() ([]*JSONLogEntry, error) {
	scanner := bufio.NewScanner(logs.Buffer)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var entries []*JSONLogEntry
	for scanner.Scan() {
		data := scanner.Bytes()
		entry := JSONLogEntry{}
		if err := json.Unmarshal(data, &entry); err == nil {
			entries = append(entries, &entry)
		} else if _, err := logs.Discarded.Write(append(data, '\n')); err != nil {
			return nil, err
		}
	}
	return entries, scanner.Err()
}

// Find returns the entries with the given level and message.
func Find(entries []*JSONLogEntry, level, msg string) []*JSONLogEntry {
	var found []*JSONLogEntry
	for _, e := range entries {
		if e.Level == level && e.Msg == msg {
			found = append(found, e)
		}
	}
	return found
}

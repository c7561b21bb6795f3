package log

import (
	"bytes"
	"log/slog"
)

// NewTestLogger returns a logger that writes JSON records into the
// returned buffer, with debug level enabled and source locations
// suppressed so tests can assert on stable output.
func NewTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(WrapByErrFmtHandler(handler)), &buf
}

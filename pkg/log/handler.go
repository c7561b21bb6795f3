package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler rewrites records carrying an error under ErrAttrKey: the
// error is rendered as its plain message, the root cause is surfaced
// under CauseAttrKey when it differs, and the cockroachdb/errors
// stacktrace is attached under StacktraceAttrKey. Records without an
// error attribute pass through untouched.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps a standard slog handler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{
		handler: handler,
	}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var logErr error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			if err, ok := attr.Value.Any().(error); ok {
				logErr = err
				return false
			}
		}
		return true
	})
	if logErr == nil {
		return eh.handler.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			if _, ok := attr.Value.Any().(error); ok {
				return true
			}
		}
		out.AddAttrs(attr)
		return true
	})

	out.AddAttrs(slog.String(ErrAttrKey, logErr.Error()))
	if cause := errors.UnwrapAll(logErr); cause != nil && cause.Error() != logErr.Error() {
		out.AddAttrs(slog.String(CauseAttrKey, cause.Error()))
	}
	if stacktrace := extractStacktrace(logErr); stacktrace != "" {
		out.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	return eh.handler.Handle(ctx, out)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// extractStacktrace pulls the first safe detail, which cockroachdb's
// WithStack wrappers populate with the capture-site stacktrace.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

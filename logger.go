package objectcore

// Logger is the structured logger used by the registry and the event bus.
// Arguments after the message are key-value pairs:
//
//	logger.Warn("Late mutation dropped", "type", "Vehicle", "op", "AddBase")
//
// *slog.Logger satisfies this interface and is used when no logger is
// configured.
type Logger interface {
	// Info logs registration milestones such as a class being closed.
	Info(msg string, args ...any)

	// Error logs programmer or data errors, for example a kind mismatch on
	// an attribute write.
	Error(msg string, args ...any)

	// Warn logs conditions that are dropped rather than failed, most
	// notably structural changes to a closed type descriptor.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics such as duplicate registrations.
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// WithLogArgs returns a logger that prepends args to the key-value pairs of
// every call on inner.
func WithLogArgs(inner Logger, args ...any) Logger {
	if inner == nil {
		inner = nopLogger{}
	}
	if len(args) == 0 {
		return inner
	}
	return &argsLogger{inner: inner, args: args}
}

type argsLogger struct {
	inner Logger
	args  []any
}

func (l *argsLogger) combine(args []any) []any {
	if len(args) == 0 {
		return l.args
	}
	combined := make([]any, 0, len(l.args)+len(args))
	combined = append(combined, l.args...)
	return append(combined, args...)
}

func (l *argsLogger) Info(msg string, args ...any)  { l.inner.Info(msg, l.combine(args)...) }
func (l *argsLogger) Error(msg string, args ...any) { l.inner.Error(msg, l.combine(args)...) }
func (l *argsLogger) Warn(msg string, args ...any)  { l.inner.Warn(msg, l.combine(args)...) }
func (l *argsLogger) Debug(msg string, args ...any) { l.inner.Debug(msg, l.combine(args)...) }

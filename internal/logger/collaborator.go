package logger

// Logger is the logging collaborator injected into components. It mirrors
// the package-level structured API so call sites read the same either way.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type packageLogger struct {
	fields []any
}

// Default returns a Logger that writes through the package-level logger
// configured by Init. Optional key/value pairs are attached to every entry.
func Default(fields ...any) Logger {
	return packageLogger{fields: fields}
}

func (l packageLogger) args(args []any) []any {
	if len(l.fields) == 0 {
		return args
	}
	out := make([]any, 0, len(l.fields)+len(args))
	out = append(out, l.fields...)
	return append(out, args...)
}

func (l packageLogger) Debug(msg string, args ...any) { Debug(msg, l.args(args)...) }
func (l packageLogger) Info(msg string, args ...any)  { Info(msg, l.args(args)...) }
func (l packageLogger) Warn(msg string, args ...any)  { Warn(msg, l.args(args)...) }
func (l packageLogger) Error(msg string, args ...any) { Error(msg, l.args(args)...) }

type nopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// OrDefault returns l, or Default() when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}

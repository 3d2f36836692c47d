// Package logger is the logging contract shared by every package. The
// zerolog and logrus subpackages implement it.
package logger

// Level orders log severities, from Trace to Panic
type Level int8

const (
	Disabled   Level = -1
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
	NoLevel
)

// Logger is a leveled logger with structured fields
type Logger interface {
	// WithField, WithFields and WithError return a child logger; the receiver is unchanged.
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger

	Print(args ...any)
	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	// Fatal exits the process after logging.
	Fatal(args ...any)
	// Panic panics after logging.
	Panic(args ...any)

	Printf(format string, args ...any)
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Panicf(format string, args ...any)

	SetLevel(level Level)
	GetLevel() Level
}

// Field names used across the logs, so records of a pair can be filtered
// whatever the backend.
const (
	FieldPair      = "pair"
	FieldTimeframe = "timeframe"
	FieldStudy     = "study"
	FieldKind      = "kind"
)

// ForPair returns a logger tagged with a pair
func ForPair(log Logger, pair string) Logger {
	return log.WithField(FieldPair, pair)
}

// ForFeed returns a logger tagged with the pair and timeframe of a candle feed
func ForFeed(log Logger, pair, timeframe string) Logger {
	return log.WithFields(map[string]any{
		FieldPair:      pair,
		FieldTimeframe: timeframe,
	})
}

// ForSignal returns a logger tagged with the origin of a study signal
func ForSignal(log Logger, pair, study, kind string) Logger {
	return log.WithFields(map[string]any{
		FieldPair:  pair,
		FieldStudy: study,
		FieldKind:  kind,
	})
}

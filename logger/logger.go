package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is the bridge's logging level.
type LogLevel int

const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[LogLevel]string{
	TraceLevel: "trace",
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "info"
}

// ParseLogLevel maps a config string to a LogLevel. Unknown values fall
// back to info so a typo in the config never silences the log.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "warning":
		return WarnLevel
	case "err":
		return ErrorLevel
	}
	for l, name := range levelNames {
		if name == strings.ToLower(level) {
			return l
		}
	}
	return InfoLevel
}

// OutputFormat selects between human console output and JSON lines.
type OutputFormat int

const (
	DefaultFormat OutputFormat = iota
	JSONFormat
)

func ParseOutputFormat(format string) OutputFormat {
	if strings.EqualFold(format, "json") {
		return JSONFormat
	}
	return DefaultFormat
}

// TypedField attaches one structured field to a log event.
type TypedField func(*zerolog.Event) *zerolog.Event

func String(key, value string) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Str(key, value) }
}

func Int(key string, value int) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Int(key, value) }
}

func Bool(key string, value bool) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Bool(key, value) }
}

func Duration(key string, value time.Duration) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Dur(key, value) }
}

func Time(key string, value time.Time) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Time(key, value) }
}

func Err(value error) TypedField {
	return func(e *zerolog.Event) *zerolog.Event { return e.Err(value) }
}

// Logger is the logging interface the rest of the bridge depends on.
// Field values must never contain token or credential material; callers
// log hashed references from the helper package instead.
type Logger interface {
	Trace(msg string, fields ...TypedField)
	Debug(msg string, fields ...TypedField)
	Info(msg string, fields ...TypedField)
	Warn(msg string, fields ...TypedField)
	Error(msg string, fields ...TypedField)
	Fatal(msg string, fields ...TypedField)

	// WithSubsystem derives a logger tagged with a component name.
	WithSubsystem(name string) Logger

	Close() error
}

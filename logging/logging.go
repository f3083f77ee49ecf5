package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// ParseLevel translates a string representation of a log level to its enum, case-insensitively
func ParseLevel(s string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TraceLevel, nil
	case "DEBUG":
		return DebugLevel, nil
	case "", "INFO":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// levelOption maps a log level enum onto the go-kit filter which admits it.
// go-kit has no trace or fatal levels, so those collapse onto debug and error.
func levelOption(lvl int) level.Option {
	switch lvl {
	case TraceLevel, DebugLevel:
		return level.AllowDebug()
	case WarnLevel:
		return level.AllowWarn()
	case ErrorLevel, FatalLevel:
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// New creates a leveled, timestamped logger writing to w. format is either "logfmt" (the default) or "json".
func New(w io.Writer, lvl string, format string) (log.Logger, error) {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return nil, err
	}
	var logger log.Logger
	switch strings.ToLower(format) {
	case "", "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	logger = level.NewFilter(logger, levelOption(parsed))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

// OrNop returns logger, or a logger which discards everything if logger is nil
func OrNop(logger log.Logger) log.Logger {
	if logger == nil {
		return log.NewNopLogger()
	}
	return logger
}

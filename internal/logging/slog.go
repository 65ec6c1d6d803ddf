package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// swapped by tests
var (
	osStdout io.Writer = os.Stdout
	osStderr io.Writer = os.Stderr
	osPipe             = os.Pipe
)

// SlogManager owns the process logger. Records go to the log file when one
// is given, otherwise to stdout, plus any extra handlers. With a log file,
// warnings and errors are mirrored to stderr.
type SlogManager struct {
	logger *slog.Logger
	out    io.Writer
	level  slog.Level
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{out: osStdout, level: slog.LevelInfo}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logger. provider, when set, adds dynamic attributes
// such as the current tick to every record.
func (m *SlogManager) Setup(file io.Writer, level string, provider ContextProvider, extra ...slog.Handler) {
	m.level = parseLevel(level)
	m.out = osStdout
	if file != nil {
		m.out = file
	}

	handlerOpts := &slog.HandlerOptions{
		Level: m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	handlers := append([]slog.Handler{slog.NewTextHandler(m.out, handlerOpts)}, extra...)
	if file != nil {
		handlers = append(handlers, MinLevel(slog.NewTextHandler(osStderr, handlerOpts), slog.LevelWarn))
	}
	var h slog.Handler = NewMultiHandler(handlers...)
	if provider != nil {
		h = NewContextHandler(h, provider)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog logger for a component, writing to the same
// destination and level as the slog logger.
func (m *SlogManager) Zerolog(component string) zerolog.Logger {
	return zerolog.New(m.out).
		Level(zerologLevel(m.level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}

	lvl := parseLevel(level)

	switch lvl {
	case slog.LevelDebug:
		m.logger.Debug(data, "function", functionName)
	case slog.LevelWarn:
		m.logger.Warn(data, "function", functionName)
	case slog.LevelError:
		m.logger.Error(data, "function", functionName)
	default:
		m.logger.Info(data, "function", functionName)
	}
}

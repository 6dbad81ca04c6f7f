package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseVerbosity converts a configured verbosity (quiet, normal, verbose,
// debug) into the minimum level that is written.
func ParseVerbosity(verbosity string) Level {
	switch verbosity {
	case "quiet":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger writes component-tagged entries to a session-specific file in
// ~/.formreplay/logs/ and optionally mirrors them to a console.
//
// Loggers derived with With share the file, console and level of their parent.
type Logger struct {
	component string
	sink      *sink
}

// sink is the shared output of a logger family.
type sink struct {
	mu        sync.Mutex
	sessionID string
	file      *os.File
	logger    *log.Logger
	logPath   string
	level     Level
	console   io.Writer
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error
)

// Option configures a Logger created by NewLogger.
type Option func(*options)

type options struct {
	dir     string
	level   Level
	console io.Writer
}

// WithDirectory writes the log file into dir instead of ~/.formreplay/logs.
func WithDirectory(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithLevel drops entries below level.
func WithLevel(level Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithConsole mirrors entries to w with level styling.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the default log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".formreplay", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <dir>/<session-id>-formreplay.log.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
// Callers can check the error to detect fallback mode.
func NewLogger(component string, opts ...Option) (*Logger, error) {
	o := options{level: LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	dir := o.dir
	if dir == "" {
		if err := initLogDirectory(); err != nil {
			return newFallbackLogger(component, o, err), err
		}
		dir = logDir
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return newFallbackLogger(component, o, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(dir, fmt.Sprintf("%s-formreplay.log", sessID))

	// Append mode: every component of a run writes to the same file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, o, err), err
	}

	return &Logger{
		component: component,
		sink: &sink{
			sessionID: sessID,
			file:      file,
			logger:    log.New(file, "", 0), // timestamps are formatted per entry
			logPath:   logPath,
			level:     o.level,
			console:   o.console,
		},
	}, nil
}

// New creates a logger that writes plain entries to w. It has no log file.
func New(component string, w io.Writer, level Level) *Logger {
	return &Logger{
		component: component,
		sink: &sink{
			sessionID: getSessionID(),
			logger:    log.New(w, "", 0),
			level:     level,
		},
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("discard", io.Discard, LevelError+1)
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, o options, err error) *Logger {
	logger := log.New(os.Stderr, "", 0)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		component: component,
		sink: &sink{
			sessionID: getSessionID(),
			logger:    logger,
			level:     o.level,
		},
	}
}

// With returns a logger for another component sharing this logger's output.
func (l *Logger) With(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level Level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	if level < l.sink.level {
		return
	}
	message := fmt.Sprintf(format, v...)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	l.sink.logger.Println(l.formatLogEntry(level, message))
	if l.sink.console != nil {
		fmt.Fprintln(l.sink.console, renderConsole(level, l.component, message))
	}
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.write(LevelInfo, format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LevelInfo, format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LevelWarn, format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LevelError, format, v...)
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.sink.level
}

// Writer returns the file the logger writes to, or stderr in fallback mode
func (l *Logger) Writer() io.Writer {
	if l.sink.file != nil {
		return l.sink.file
	}
	return os.Stderr
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sink.sessionID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.sink.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.sink.closeOnce.Do(func() {
		if l.sink.file != nil {
			err = l.sink.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the default directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}

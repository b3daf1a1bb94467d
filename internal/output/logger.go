package output

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// The global logger. All diagnostics go through it, never through stdout.
var (
	logger   *log.Logger
	loggerMu sync.Mutex
	logLevel = log.InfoLevel
	logDest  io.Writer = os.Stderr

	// JSONMode controls whether command results are JSON-formatted and
	// whether log lines are emitted as JSON.
	JSONMode bool

	// Verbose controls debug-level output.
	Verbose bool
)

// Init initializes the global logger with the given settings.
// Call this once at startup (typically from root command PersistentPreRun).
func Init(verbose bool, jsonMode bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Verbose = verbose
	JSONMode = jsonMode
	if verbose {
		logLevel = log.DebugLevel
	} else {
		logLevel = log.InfoLevel
	}
	logger = newLogger(logDest)
}

// SetOutput redirects the global logger. Tests use it to capture output.
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logDest = w
	logger = newLogger(w)
}

func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: JSONMode,
		Level:           logLevel,
		Prefix:          "azcli-mcp",
	})
	if JSONMode {
		l.SetFormatter(log.JSONFormatter)
	} else if NoColor() {
		l.SetStyles(plainStyles())
	}
	return l
}

// Logger returns the global logger for components that take an injected
// *log.Logger.
func Logger() *log.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = newLogger(logDest)
	}
	return logger
}

// Info prints an informational message.
func Info(msg string, keyvals ...interface{}) {
	Logger().Info(msg, keyvals...)
}

// Warn prints a warning message.
func Warn(msg string, keyvals ...interface{}) {
	Logger().Warn(msg, keyvals...)
}

// Error prints an error message.
func Error(msg string, keyvals ...interface{}) {
	Logger().Error(msg, keyvals...)
}

// Debug prints a debug message (only visible with -v flag).
func Debug(msg string, keyvals ...interface{}) {
	Logger().Debug(msg, keyvals...)
}

// Success prints a success message with a checkmark prefix.
func Success(msg string) {
	if JSONMode {
		return
	}
	if NoColor() {
		Logger().Info("[OK] " + msg)
	} else {
		Logger().Info("✅ " + msg)
	}
}

// Fail prints a failure message with an X prefix.
func Fail(msg string) {
	if JSONMode {
		return
	}
	if NoColor() {
		Logger().Error("[FAIL] " + msg)
	} else {
		Logger().Error("❌ " + msg)
	}
}

// Step prints a step progress message.
func Step(msg string) {
	if JSONMode {
		return
	}
	if NoColor() {
		Logger().Info(">> " + msg)
	} else {
		Logger().Info("▸ " + msg)
	}
}

package core

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogLevel mirrors the charmbracelet levels the engine exposes through its config.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Lumen 🔦 ",
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// ParseLogLevel accepts the names used in the config file, case insensitive.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug, true
	case LogLevelInfo:
		return LogLevelInfo, true
	case LogLevelWarn:
		return LogLevelWarn, true
	case LogLevelError:
		return LogLevelError, true
	}
	return LogLevelInfo, false
}

func SetLogLevel(level LogLevel) {
	l, err := log.ParseLevel(string(level))
	if err != nil {
		getLogger().Warnf("unknown log level %q, keeping %s", level, getLogger().GetLevel())
		return
	}
	getLogger().SetLevel(l)
}

// Logger returns a child logger carrying its own prefix. Used by subsystems
// that forward messages from outside the engine (e.g. the Vulkan validation layers).
func Logger(prefix string) *log.Logger {
	return getLogger().WithPrefix(prefix)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}

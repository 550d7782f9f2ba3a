package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	envLoggingLevel  = "REFLECTCALL_LOGGING_LEVEL"
	envLoggingFormat = "REFLECTCALL_LOGGING_FORMAT"

	defaultLevel = logrus.WarnLevel
)

var (
	lg   *logrus.Logger
	once sync.Once
)

// Logger returns the process logger for the call engine.
func Logger() *logrus.Logger {
	once.Do(func() {
		lg = New(os.Getenv(envLoggingLevel), os.Getenv(envLoggingFormat))
	})
	return lg
}

// New creates a logger writing to stderr. An unknown level falls back to
// warning, an unknown format to text.
func New(levelStr, formatStr string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = defaultLevel
	}
	l.SetLevel(level)
	l.SetFormatter(formatter(formatStr))

	return l
}

func formatter(formatStr string) logrus.Formatter {
	switch formatStr {
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000 MST",
		}
	}
}

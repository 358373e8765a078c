package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Severity levels accepted by SetSeverityLevel
const (
	DEBUG   = "debug"
	INFO    = "info"
	WARNING = "warning"
	ERROR   = "error"
)

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// SetSeverityLevel changes the minimum level that gets written. Unknown levels are reported and ignored.
func SetSeverityLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logger.Warningf("unknown severity level %q, keeping %v", level, logger.GetLevel())
		return
	}
	logger.SetLevel(lvl)
}

// SetOutput redirects all log output. Stdout is reserved for program output, so the default is stderr.
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// WithField returns an entry carrying a structured field, e.g. the worker a message belongs to
func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}

func Debugf(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func Warningf(format string, v ...interface{}) {
	logger.Warningf(format, v...)
}

func Warningln(v ...interface{}) {
	logger.Warningln(v...)
}

func Error(v ...interface{}) {
	logger.Error(v...)
}

func Errorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

func Errorln(v ...interface{}) {
	logger.Errorln(v...)
}

// Fatal logs and exits the process with status 1
func Fatal(v ...interface{}) {
	logger.Fatal(v...)
}

func Fatalf(format string, v ...interface{}) {
	logger.Fatalf(format, v...)
}

// Panicf logs and panics
func Panicf(format string, v ...interface{}) {
	logger.Panicf(format, v...)
}

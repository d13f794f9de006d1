package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Logger is the interface for logging
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	WithField(key string, value interface{}) *log.Entry
	WithFields(fields log.Fields) *log.Entry
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Init configures the standard logger. Unknown levels fall back to info and
// unknown formats to text.
func Init(level, format string) {
	InitWithOutput(os.Stdout, level, format)
}

func InitWithOutput(out io.Writer, level, format string) {
	log.SetOutput(out)
	switch strings.ToLower(format) {
	case FormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		l = log.InfoLevel
	}
	log.SetLevel(l)
}

func L() *log.Logger { return log.StandardLogger() }

// NewDefaultLogger returns the configured standard logger.
func NewDefaultLogger() Logger {
	return log.StandardLogger()
}

// NewDiscardLogger returns a logger that drops everything; used by tests.
func NewDiscardLogger() Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

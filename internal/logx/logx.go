// Package logx builds the logrus logger shared by the storefront binaries.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns an entry tagged with the service name. Unknown levels fall back to info.
func New(service, level, format string) *logrus.Entry {
	return NewWithWriter(os.Stdout, service, level, format)
}

func NewWithWriter(w io.Writer, service, level, format string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l.WithField("service", service)
}

// Discard is a logger for tests and optional collaborators.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

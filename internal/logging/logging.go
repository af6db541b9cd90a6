package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a JSON logger tagged with the service name. Unknown levels fall
// back to info.
func New(service, level string) *log.Entry {
	return NewWithOutput(service, level, os.Stdout)
}

func NewWithOutput(service, level string, out io.Writer) *log.Entry {
	l := log.New()
	l.SetFormatter(&log.JSONFormatter{})
	l.SetOutput(out)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l.WithField("service", service)
}

// Discard is for tests and for components built without a logger.
func Discard() *log.Entry {
	return NewWithOutput("test", "panic", io.Discard)
}

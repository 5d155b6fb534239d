// Package log returns the structured loggers used across bzlpkg.
package log

import (
	"io"
	"os"
	"sync/atomic"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// EnvDebug enables debug logging when set.
const EnvDebug = "BZLPKG_DEBUG"

var (
	debug  atomic.Bool
	output atomic.Value // io.Writer
)

// SetDebug forces debug logging on or off for loggers created afterwards.
func SetDebug(on bool) {
	debug.Store(on)
}

// SetOutput redirects loggers created afterwards. The default is stderr.
func SetOutput(w io.Writer) {
	output.Store(&w)
}

// Get returns a logger tagged with what.
func Get(what string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if w, ok := output.Load().(*io.Writer); ok && *w != nil {
		log.SetOutput(*w)
	}
	if _, ok := os.LookupEnv(EnvDebug); ok || debug.Load() {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"pkg", "what", "phase", "run"},
	})
	return log.WithField("what", what)
}

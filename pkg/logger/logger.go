// Package logger constructs the shared structured logger.
// Components receive a *bolt.Logger via their constructors; there is no
// process-wide ambient logger.
package logger

import (
	"io"

	"github.com/felixgeelhaar/bolt/v3"
)

// New returns a console logger. When verbose is false only warnings and
// errors are emitted.
func New(out io.Writer, verbose bool) *bolt.Logger {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return l
}

// NewJSON returns a JSON logger for non-interactive deployments.
func NewJSON(out io.Writer, verbose bool) *bolt.Logger {
	l := bolt.New(bolt.NewJSONHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return l
}

// Nop returns a logger that discards everything. Used by tests and as the
// default when a component is constructed without a logger.
func Nop() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard))
}

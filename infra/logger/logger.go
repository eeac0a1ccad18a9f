package logger

import corelogger "github.com/kilianp07/bookscan/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component using the process wide
// settings installed by Setup.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// NewWith returns a component Logger carrying extra string fields on every
// record, such as the run id and instance name.
func NewWith(component string, fields map[string]string) Logger {
	return newZerolog(component, fields)
}

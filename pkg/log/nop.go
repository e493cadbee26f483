package log

// Nop returns a Logger that discards every message. It is the default
// logger throughout the module and the usual choice in tests.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...Field) {}
func (nopLogger) Info(msg string, fields ...Field)  {}
func (nopLogger) Warn(msg string, fields ...Field)  {}
func (nopLogger) Error(msg string, fields ...Field) {}

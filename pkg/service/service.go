package service

// Logger defines the logging interface the services depend on, so tests can
// pass a no-op implementation.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

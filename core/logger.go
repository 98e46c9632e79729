package core

// Logger is the application logger.
// expected args: error, map[string]interface{}, or a value identifying the acting person (see services/logger).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies who triggered a log entry.
type Person struct {
	ID          string
	Name        string
	Email       string
	WorkspaceID string
}

package logger

import (
	"log"
	"strings"
)

// writerAdapter routes writes from a standard library logger through a
// ColoredLogger at a fixed level
type writerAdapter struct {
	logger *ColoredLogger
	level  LogLevel
}

func (w writerAdapter) Write(p []byte) (int, error) {
	message := strings.TrimRight(string(p), "\n")

	switch w.level {
	case DEBUG:
		w.logger.Debug("%s", message)
	case WARN:
		w.logger.Warn("%s", message)
	case ERROR:
		w.logger.Error("%s", message)
	default:
		w.logger.Info("%s", message)
	}
	return len(p), nil
}

// NewStdLogger returns a *log.Logger that forwards to the given
// ColoredLogger, for packages that only accept the standard interface
// (http.Server.ErrorLog and friends)
func NewStdLogger(logger *ColoredLogger, level LogLevel) *log.Logger {
	return log.New(writerAdapter{logger: logger, level: level}, "", 0)
}

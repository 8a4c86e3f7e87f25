// Package logging holds the process-wide logrus logger shared by the di and
// snapshot packages and the commands built on top of them.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sghaida/modi/internal/logging/logfields"
)

// DefaultLogLevel is the level used when none (or an invalid one) is configured.
const DefaultLogLevel = logrus.InfoLevel

// DefaultLogger is the base logger all subsystem loggers derive from.
var DefaultLogger = initializeDefaultLogger()

func initializeDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	logger.SetLevel(DefaultLogLevel)
	return logger
}

// ParseLevel returns the logrus level for name, case-insensitive.
// Unknown or empty names map to DefaultLogLevel.
func ParseLevel(name string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return DefaultLogLevel
	}
	return lvl
}

// SetLevel sets the level of DefaultLogger from a level name.
func SetLevel(name string) {
	DefaultLogger.SetLevel(ParseLevel(name))
}

// Subsystem returns a logger tagged with the given subsystem name.
func Subsystem(name string) logrus.FieldLogger {
	return DefaultLogger.WithField(logfields.LogSubsys, name)
}

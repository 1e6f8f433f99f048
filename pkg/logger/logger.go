package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

const serviceName = "fandomspace"

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests and tools that never call Init still get a usable logger.
func init() {
	Init("development")
}

// Init configures the process logger. Production emits JSON, everything else
// emits human readable text on stderr.
func Init(env string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	}

	Log = logger.WithFields(logrus.Fields{
		"service":        serviceName,
		"is_development": env != "production",
	})
}

package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// InitLogger sets up the shared logrus logger. JSON output so the log
// stream stays machine-readable when the service runs behind a collector.
func InitLogger(level string) {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// Logger returns the shared logger, initializing it with defaults if a
// component asks for it before InitLogger ran (mostly in tests).
func Logger() *logrus.Logger {
	if Log == nil {
		InitLogger("info")
	}
	return Log
}

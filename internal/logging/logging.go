package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. With an empty path logs go to stderr,
// otherwise to a rotated file.
func New(path, level string) (*logrus.Logger, error) {
	logger := logrus.New()

	var out io.Writer = os.Stderr
	if path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	logger.SetOutput(out)

	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	logger.SetFormatter(&logrus.TextFormatter{
		PadLevelText:    true,
		DisableColors:   path != "",
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})
	return logger, nil
}

func parseLevel(level string) (logrus.Level, error) {
	switch level {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown logging level %q", level)
	}
}

// Discard is a logger for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// cleanFormatter outputs only the message, followed by any fields as key=value
type cleanFormatter struct{}

func (f *cleanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	out := []byte(entry.Message)
	for _, key := range sortedKeys(entry.Data) {
		out = append(out, ' ')
		out = append(out, key...)
		out = append(out, '=')
		out = append(out, formatValue(entry.Data[key])...)
	}
	return append(out, '\n'), nil
}

// Setup configures a logger from level and format ("json" or anything else for plain text)
func Setup(level, format string) *logrus.Logger {
	return SetupWithOutput(os.Stderr, level, format)
}

// SetupWithOutput is Setup writing to w
func SetupWithOutput(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %s, using info: %v", level, err)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&cleanFormatter{})
	}

	return logger
}

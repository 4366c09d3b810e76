package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// msgKey names the message field of each logger, so that engine traces can
// be told apart from campaign progress in a shared stream.
const (
	msgKey         = "msg"
	analysisMsgKey = "rta_msg"
)

var logger *logrus.Logger
var analysisLogger *logrus.Logger

func init() {
	logger = newLogger(logrus.InfoLevel)
	logger.SetFormatter(textFormatter(msgKey))

	// The engine logs once per recurrence step; keep it quiet unless asked.
	analysisLogger = newLogger(logrus.WarnLevel)
	analysisLogger.SetFormatter(textFormatter(analysisMsgKey))
}

func newLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(level)
	return l
}

func fieldMap(key string) logrus.FieldMap {
	return logrus.FieldMap{
		logrus.FieldKeyTime:  "time",
		logrus.FieldKeyLevel: "level",
		logrus.FieldKeyMsg:   key,
	}
}

func textFormatter(key string) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
		FieldMap:      fieldMap(key),
	}
}

func jsonFormatter(key string) logrus.Formatter {
	return &logrus.JSONFormatter{FieldMap: fieldMap(key)}
}

func GetLogger() *logrus.Logger {
	return logger
}

// GetAnalysisLogger returns the logger of the response-time engine and the
// interference estimators.
func GetAnalysisLogger() *logrus.Logger {
	return analysisLogger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	return nil
}

func SetAnalysisLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	analysisLogger.SetLevel(logLevel)
	return nil
}

// SetFormat switches both loggers to "text" or "json" output.
func SetFormat(format string) error {
	switch format {
	case "text":
		logger.SetFormatter(textFormatter(msgKey))
		analysisLogger.SetFormatter(textFormatter(analysisMsgKey))
	case "json":
		logger.SetFormatter(jsonFormatter(msgKey))
		analysisLogger.SetFormatter(jsonFormatter(analysisMsgKey))
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	analysisLogger.SetOutput(w)
}

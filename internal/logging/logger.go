// Package logging configures the global logrus logger: level, format,
// rotating file output and the sentry hook.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2beens/fittracker/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 30
	logFileMaxAgeDays = 90
)

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

func Setup(params LoggerSetupParams) {
	logrus.SetFormatter(newFormatter(params.LogFormatJSON))
	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		setupSentry(params)
	}

	out, description := newOutput(params.LogFileName, params.LogToStdout)
	logrus.SetOutput(out)
	logrus.Infof("writing logs to %s", description)
}

func newFormatter(json bool) logrus.Formatter {
	if json {
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		}
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}

func setupSentry(params LoggerSetupParams) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	})
	if err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}
	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("sentry set up successfully")
}

// newOutput picks stdout, a rotating log file, or both. An empty file name
// means stdout only.
func newOutput(fileName string, alsoStdout bool) (io.Writer, string) {
	if fileName == "" {
		return os.Stdout, "STDOUT"
	}
	if filepath.Ext(fileName) != ".log" {
		fileName += ".log"
	}

	rotating := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	if alsoStdout {
		return pkg.NewCombinedWriter(os.Stdout, rotating), fileName + " and STDOUT"
	}
	return rotating, fileName
}

// GetLevel parses a level name, falling back to info for anything unknown.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

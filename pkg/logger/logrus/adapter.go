// Package logrus adapts a logrus entry to logger.Logger
package logrus

import (
	"github.com/gambcl/chartstudies/pkg/logger"
	"github.com/sirupsen/logrus"
)

type Adapter struct {
	*logrus.Entry
}

var _ logger.Logger = (*Adapter)(nil)

// New creates a logrus backed logger. jsonFormat switches to the JSON formatter.
func New(level string, dateTimeLayout string, colored, jsonFormat bool) (*Adapter, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetLevel(lvl)
	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: dateTimeLayout})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: dateTimeLayout,
			ForceColors:     colored,
			DisableColors:   !colored,
		})
	}

	return &Adapter{logrus.NewEntry(l)}, nil
}

func NewAdapter(entry *logrus.Entry) *Adapter {
	return &Adapter{entry}
}

func (a *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{a.Entry.WithField(key, value)}
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{a.Entry.WithFields(fields)}
}

func (a *Adapter) WithError(err error) logger.Logger {
	return &Adapter{a.Entry.WithError(err)}
}

func (a *Adapter) SetLevel(level logger.Level) {
	a.Entry.Logger.SetLevel(toLogrusLevel(level))
}

func (a *Adapter) GetLevel() logger.Level {
	switch a.Entry.Logger.GetLevel() {
	case logrus.TraceLevel:
		return logger.TraceLevel
	case logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.InfoLevel:
		return logger.InfoLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	case logrus.FatalLevel:
		return logger.FatalLevel
	case logrus.PanicLevel:
		return logger.PanicLevel
	}
	return logger.NoLevel
}

func toLogrusLevel(level logger.Level) logrus.Level {
	switch level {
	case logger.TraceLevel:
		return logrus.TraceLevel
	case logger.DebugLevel:
		return logrus.DebugLevel
	case logger.WarnLevel:
		return logrus.WarnLevel
	case logger.ErrorLevel:
		return logrus.ErrorLevel
	case logger.FatalLevel:
		return logrus.FatalLevel
	case logger.PanicLevel:
		return logrus.PanicLevel
	}
	return logrus.InfoLevel
}

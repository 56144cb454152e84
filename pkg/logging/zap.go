package logging

import (
	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to the Logger interface.
func NewZapLogger(logger *zap.Logger) Logger {
	return &zapLogger{
		sugar: logger.Sugar(),
	}
}

// NewStdZapLogger builds a production zap logger writing to stderr. In verbose
// mode debug output is enabled with development-style formatting.
func NewStdZapLogger(verbose bool) (Logger, error) {
	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return NewZapLogger(logger), nil
}

func (l *zapLogger) LogLevelf(level int, format string, args ...interface{}) {
	switch {
	case level <= 0:
		l.sugar.Debugf(format, args...)
	case level == 1:
		l.sugar.Infof(format, args...)
	case level == 2:
		l.sugar.Warnf(format, args...)
	default:
		l.sugar.Errorf(format, args...)
	}
}

func (l *zapLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *zapLogger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

package logging

// Logger is the minimal logging surface used across the client.
type Logger interface {
	LogLevelf(level int, format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogFuncs bundles the individual logging functions so callers can rewire
// a subset (e.g. silence debug output) without implementing Logger.
type LogFuncs struct {
	LogLevelf func(level int, format string, args ...interface{})
	Debugf    func(format string, args ...interface{})
	Infof     func(format string, args ...interface{})
	Warnf     func(format string, args ...interface{})
	Errorf    func(format string, args ...interface{})
}

type prefixLogger struct {
	prefix string
	funcs  LogFuncs
}

// NewLogger wraps LogFuncs with a fixed message prefix.
func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &prefixLogger{
		prefix: prefix,
		funcs:  funcs,
	}
}

func (l *prefixLogger) LogLevelf(level int, format string, args ...interface{}) {
	if l.funcs.LogLevelf != nil {
		l.funcs.LogLevelf(level, l.prefix+format, args...)
	}
}

func (l *prefixLogger) Debugf(format string, args ...interface{}) {
	if l.funcs.Debugf != nil {
		l.funcs.Debugf(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Infof(format string, args ...interface{}) {
	if l.funcs.Infof != nil {
		l.funcs.Infof(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Warnf(format string, args ...interface{}) {
	if l.funcs.Warnf != nil {
		l.funcs.Warnf(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Errorf(format string, args ...interface{}) {
	if l.funcs.Errorf != nil {
		l.funcs.Errorf(l.prefix+format, args...)
	}
}

type nullLogger struct{}

// NewNullLogger returns a logger that discards everything.
func NewNullLogger() Logger {
	return &nullLogger{}
}

func (l *nullLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *nullLogger) Debugf(format string, args ...interface{})               {}
func (l *nullLogger) Infof(format string, args ...interface{})                {}
func (l *nullLogger) Warnf(format string, args ...interface{})                {}
func (l *nullLogger) Errorf(format string, args ...interface{})               {}

package plcpoll

import (
	"fmt"
	"os"
)

// LeveledLogger is the logging sink used throughout the engine. Passing a
// custom one via Configuration.Logger avoids a mutable package-level
// default: every Engine gets its own logger instance, never a global.
type LeveledLogger interface {
	Info(msg string)
	Infof(format string, args ...interface{})
	Warning(msg string)
	Warningf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
}

var _ LeveledLogger = (*logger)(nil)

type logger struct {
	prefix  string
	out     *os.File
	forward LeveledLogger
}

func newLogger(prefix string) (l *logger) {
	l = &logger{
		prefix: prefix,
		out:    os.Stdout,
	}

	return
}

func (l *logger) Info(msg string) {
	if l.forward != nil {
		l.forward.Info(msg)
		return
	}
	l.write(fmt.Sprintf("%s [info]: %s\n", l.prefix, msg))
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *logger) Warning(msg string) {
	if l.forward != nil {
		l.forward.Warning(msg)
		return
	}
	l.write(fmt.Sprintf("%s [warn]: %s\n", l.prefix, msg))
}

func (l *logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// Error logs at error severity. The poller does not call it directly:
// first-time range failures use Warning and the online/offline flips use
// Critical.
func (l *logger) Error(msg string) {
	if l.forward != nil {
		l.forward.Error(msg)
		return
	}
	l.write(fmt.Sprintf("%s [error]: %s\n", l.prefix, msg))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// Critical logs an online/offline health transition. These are the
// highest-severity events the engine produces, short of a crash, so they
// get their own prefix rather than being folded into Error. Forwarded to
// a caller-supplied LeveledLogger as Error, since LeveledLogger has no
// critical level of its own.
func (l *logger) Critical(msg string) {
	if l.forward != nil {
		l.forward.Error(msg)
		return
	}
	l.write(fmt.Sprintf("%s [critical]: %s\n", l.prefix, msg))
}

func (l *logger) Criticalf(format string, args ...interface{}) {
	l.Critical(fmt.Sprintf(format, args...))
}

func (l *logger) write(msg string) {
	l.out.WriteString(msg)
}

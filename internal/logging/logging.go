// Package logging provides the shared zap logger used across streamletsim.
// Components name their logger the way the teacher tagged log.Printf lines
// ("[consensus]", "[broker]", ...); here that becomes the zap logger name.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// SetBase installs the root logger used to derive all named component
// loggers. Call once at process start (e.g. from cmd/streamletsim). Tests
// may call it with zap.NewNop() to silence output.
func SetBase(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

func current() *zap.Logger {
	mu.Lock()
	l := base
	mu.Unlock()
	if l == nil {
		l, _ = zap.NewDevelopment()
	}
	return l
}

// Logger is a named logger that resolves the installed base logger on every
// call rather than at construction time, so package-level loggers declared
// before main() calls SetBase still pick up the logger main() installs.
type Logger struct {
	name string
}

// Named returns a logger tagged with name. It is cheap to call at package
// init time: the base logger (or its development fallback) isn't resolved
// until a log call is actually made.
func Named(name string) *Logger {
	return &Logger{name: name}
}

func (l *Logger) sugar() *zap.SugaredLogger {
	return current().Named(l.name).Sugar()
}

func (l *Logger) Debugw(msg string, keysAndValues ...any) {
	l.sugar().Debugw(msg, keysAndValues...)
}

func (l *Logger) Infow(msg string, keysAndValues ...any) {
	l.sugar().Infow(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...any) {
	l.sugar().Warnw(msg, keysAndValues...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...any) {
	l.sugar().Errorw(msg, keysAndValues...)
}

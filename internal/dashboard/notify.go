package dashboard

import (
	"errors"
	"log/slog"

	"github.com/lukasdemani/searcher-app/internal/platform/errs"
)

// Level is the severity of a user-visible notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notification is a short message raised by a user action.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// logNotifier writes notifications to the log. It is the default.
type logNotifier struct {
	logger *slog.Logger
}

func (l logNotifier) Notify(n Notification) {
	if n.Level == LevelError {
		l.logger.Warn(n.Message, "error", n.Err)
		return
	}
	l.logger.Info(n.Message)
}

// describe builds the message shown for a failed action: the outermost
// message, followed by the detail of a rejection or invalid input.
func describe(err error) string {
	var outer *errs.AppError
	if !errors.As(err, &outer) {
		return err.Error()
	}
	for e := outer.Cause; e != nil; e = errors.Unwrap(e) {
		var inner *errs.AppError
		if !errors.As(e, &inner) {
			break
		}
		if (inner.Kind == errs.InvalidInput || inner.Kind == errs.Rejected) && inner.Message != "" {
			return outer.Message + " " + inner.Message
		}
		e = inner
	}
	return outer.Message
}

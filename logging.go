package winloop

import (
	"fmt"
	"reflect"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// loopLogger wraps the configured logger. A nil logger is valid and every
// method is then a no-op, as logiface builders are nil-safe.
type loopLogger struct {
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
}

func newLoopLogger(logger *logiface.Logger[logiface.Event], rates map[time.Duration]int) (l *loopLogger, err error) {
	l = &loopLogger{logger: logger}
	if len(rates) != 0 {
		defer func() {
			if r := recover(); r != nil {
				l, err = nil, fmt.Errorf("winloop: invalid error log rates: %v", r)
			}
		}()
		l.limiter = catrate.NewLimiter(rates)
	}
	return l, nil
}

// fetchRetry logs a temporary fetch error, limited per (op, error type).
func (l *loopLogger) fetchRetry(op string, attempt int, err error) {
	if l.logger == nil {
		return
	}
	category := struct {
		op  string
		typ reflect.Type
	}{op, reflect.TypeOf(err)}
	if next, ok := l.limiter.Allow(category); !ok {
		l.logger.Trace().
			Str("op", op).
			Time("next", next).
			Log("winloop: suppressed fetch retry warning")
		return
	}
	l.logger.Warning().
		Str("op", op).
		Int("attempt", attempt).
		Err(err).
		Log("winloop: retrying backend fetch")
}

func (l *loopLogger) fatal(err *BackendFatalError) {
	l.logger.Crit().
		Str("op", err.Op).
		Int("attempts", err.Attempts).
		Err(err.Err).
		Log("winloop: backend failed")
}

func (l *loopLogger) iteration(iter uint64, cause StartCause, native, user int) {
	l.logger.Trace().
		Uint64("iteration", iter).
		Stringer("cause", cause.Kind).
		Int("native", native).
		Int("user", user).
		Log("winloop: iteration")
}

func (l *loopLogger) flowChanged(from, to ControlFlow) {
	l.logger.Debug().
		Stringer("from", from).
		Stringer("to", to).
		Log("winloop: control flow changed")
}

func (l *loopLogger) flowRejected(current, requested ControlFlow) {
	l.logger.Debug().
		Stringer("current", current).
		Stringer("requested", requested).
		Log("winloop: ignored control flow change after exit")
}

func (l *loopLogger) windowCreated(id WindowID, title string) {
	l.logger.Info().
		Stringer("window", id).
		Str("title", title).
		Log("winloop: window created")
}

func (l *loopLogger) windowDestroyed(id WindowID, dropped int) {
	l.logger.Info().
		Stringer("window", id).
		Int("dropped_ops", dropped).
		Log("winloop: window destroyed")
}

func (l *loopLogger) windowError(id WindowID, msg string, err error) {
	l.logger.Err().
		Stringer("window", id).
		Err(err).
		Log(msg)
}

func (l *loopLogger) teardown(code int, droppedUser int) {
	l.logger.Info().
		Int("code", code).
		Int("dropped_user_events", droppedUser).
		Log("winloop: loop destroyed")
}

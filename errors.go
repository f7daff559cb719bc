package winloop

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrLoopAlreadyRunning is returned when RunReturn is called on a running loop.
	ErrLoopAlreadyRunning = errors.New("winloop: loop is already running")

	// ErrLoopTerminated is returned when RunReturn is called on a loop that has
	// already completed its lifecycle.
	ErrLoopTerminated = errors.New("winloop: loop has been terminated")

	// ErrLoopClosed is returned by Proxy.Send once the loop has torn down its
	// mailbox.
	ErrLoopClosed = errors.New("winloop: event loop closed")

	// ErrWindowNotFound is returned for operations against an unknown or
	// destroyed window.
	ErrWindowNotFound = errors.New("winloop: window not found")

	// ErrRegistryClosed is returned when creating windows after the loop has
	// been torn down.
	ErrRegistryClosed = errors.New("winloop: registry closed")

	// ErrThreadAffinity is matched by every ThreadAffinityError.
	ErrThreadAffinity = errors.New("winloop: called from a goroutine other than the loop owner")

	// ErrUnsupportedConfig is matched when a window configuration is rejected.
	ErrUnsupportedConfig = errors.New("winloop: unsupported window configuration")

	// ErrTemporary may be wrapped by backends to mark a fetch error as
	// recoverable. Errors implementing Temporary() bool are also honored.
	ErrTemporary = errors.New("winloop: temporary backend error")
)

// ThreadAffinityError reports a native-only operation attempted off the
// owning goroutine. It affects only the failing call.
type ThreadAffinityError struct {
	Op     string
	Owner  uint64
	Caller uint64
}

func (e *ThreadAffinityError) Error() string {
	return "winloop: " + e.Op + ": goroutine " + strconv.FormatUint(e.Caller, 10) +
		" is not the loop owner (goroutine " + strconv.FormatUint(e.Owner, 10) + ")"
}

// Is matches ErrThreadAffinity.
func (e *ThreadAffinityError) Is(target error) bool {
	return target == ErrThreadAffinity
}

// WindowCreationError is returned by Registry.Create. Cause carries the
// native rejection, ErrUnsupportedConfig, ErrRegistryClosed or a
// ThreadAffinityError.
type WindowCreationError struct {
	Cause error
	Title string
}

func (e *WindowCreationError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("winloop: window creation failed: %v", e.Cause)
	}
	return fmt.Sprintf("winloop: creation of window %q failed: %v", e.Title, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *WindowCreationError) Unwrap() error {
	return e.Cause
}

// BackendFatalError indicates the native event source cannot continue. The
// loop surfaces it as a BackendFatal event, then exits.
type BackendFatalError struct {
	Err error
	// Op is the fetch that failed, "poll" or "wait".
	Op string
	// Attempts is the number of failed fetches, including retries.
	Attempts int
}

func (e *BackendFatalError) Error() string {
	return fmt.Sprintf("winloop: backend %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *BackendFatalError) Unwrap() error {
	return e.Err
}

// IsTemporary reports whether a backend fetch error may be retried.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTemporary) {
		return true
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

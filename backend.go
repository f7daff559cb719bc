package winloop

import (
	"time"
)

type (
	// NativeEvent is an event in a backend's own vocabulary. The loop never
	// inspects it, it only hands it back to Backend.Translate.
	NativeEvent any

	// Backend is a native event source. The loop calls every method except
	// Wake from its own goroutine.
	Backend interface {
		WindowFactory

		// PollNext returns the next queued native event without blocking. The
		// bool is false if none is queued.
		PollNext() (NativeEvent, bool, error)

		// WaitNext blocks until a native event is available, Wake is called,
		// or deadline passes. A zero deadline waits indefinitely. A wakeup or
		// timeout returns false with a nil error.
		//
		// Wake calls made while no WaitNext is in progress must be remembered,
		// and any number of them must cause exactly one subsequent WaitNext to
		// return immediately.
		WaitNext(deadline time.Time) (NativeEvent, bool, error)

		// Wake interrupts a blocked WaitNext. It is safe to call from any
		// goroutine.
		Wake()

		// Translate appends the unified events for ev to dst. A native event
		// may produce none, one or several events. RedrawRequested values are
		// not dispatched in place, the loop defers them to the redraw phase of
		// the iteration.
		Translate(ev NativeEvent, dst []Event) []Event
	}

	// WindowFactory creates native windows. It is only called from the loop
	// goroutine.
	WindowFactory interface {
		// CreateWindow builds a native window for an already validated
		// configuration. Returning an error wrapping ErrUnsupportedConfig
		// reports a combination this backend cannot honor.
		CreateWindow(id WindowID, cfg WindowConfig) (NativeWindow, error)
	}

	// NativeWindow is a backend's window. Its methods are only called from
	// the loop goroutine.
	NativeWindow interface {
		Apply(op Operation) error
		Destroy() error
	}
)

// backendCloser is implemented by backends holding resources that outlive
// their windows, such as wake file descriptors.
type backendCloser interface {
	Close() error
}

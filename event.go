package winloop

import (
	"time"
)

type (
	// Event is the unified event delivered to the loop callback. It is one of
	// NewEvents, WindowEvent, DeviceEvent, UserEvent[T], MainEventsCleared,
	// RedrawRequested, RedrawEventsCleared, BackendFatal or LoopDestroyed.
	Event interface {
		isEvent()
	}

	// NewEvents starts every iteration.
	NewEvents struct {
		Cause StartCause
	}

	// WindowEvent is an event targeting one window.
	WindowEvent struct {
		Kind     WindowEventKind
		WindowID WindowID
	}

	// DeviceEvent is raw input not associated with a window.
	DeviceEvent struct {
		Kind     DeviceEventKind
		DeviceID DeviceID
	}

	// UserEvent carries a value sent through a Proxy.
	UserEvent[T any] struct {
		Value T
	}

	// MainEventsCleared follows the last native or user event of an iteration.
	MainEventsCleared struct{}

	// RedrawRequested is delivered once per window per iteration, after
	// MainEventsCleared, for windows that asked to be redrawn.
	RedrawRequested struct {
		WindowID WindowID
	}

	// RedrawEventsCleared ends every iteration.
	RedrawEventsCleared struct{}

	// BackendFatal reports that the native event source failed. The loop
	// exits after the current iteration.
	BackendFatal struct {
		Err *BackendFatalError
	}

	// LoopDestroyed is the last event, delivered exactly once.
	LoopDestroyed struct{}
)

func (NewEvents) isEvent() {}
func (WindowEvent) isEvent() {}
func (DeviceEvent) isEvent() {}
func (UserEvent[T]) isEvent() {}
func (MainEventsCleared) isEvent() {}
func (RedrawRequested) isEvent() {}
func (RedrawEventsCleared) isEvent() {}
func (BackendFatal) isEvent() {}
func (LoopDestroyed) isEvent() {}

// Payload returns Value as an any, for consumers that cannot name T.
func (e UserEvent[T]) Payload() any { return e.Value }

// StartCauseKind is the reason an iteration started.
type StartCauseKind uint8

const (
	// CauseInit starts the first iteration.
	CauseInit StartCauseKind = iota
	// CausePoll starts iterations under ControlFlow Poll.
	CausePoll
	// CauseWaitCancelled means a wait ended before its deadline, because of
	// a native event or a wakeup.
	CauseWaitCancelled
	// CauseResumeTimeReached means a WaitUntil deadline passed.
	CauseResumeTimeReached
)

func (k StartCauseKind) String() string {
	switch k {
	case CauseInit:
		return "Init"
	case CausePoll:
		return "Poll"
	case CauseWaitCancelled:
		return "WaitCancelled"
	case CauseResumeTimeReached:
		return "ResumeTimeReached"
	default:
		return "Unknown"
	}
}

// StartCause describes why an iteration started. Start and RequestedResume
// are set for CauseWaitCancelled and CauseResumeTimeReached; RequestedResume
// is zero for an unbounded Wait.
type StartCause struct {
	Start           time.Time
	RequestedResume time.Time
	Kind            StartCauseKind
}

type (
	// WindowEventKind is the payload of a WindowEvent.
	WindowEventKind interface {
		isWindowEventKind()
	}

	// Resized reports a new inner size.
	Resized Size

	// Moved reports a new outer position.
	Moved Position

	// CloseRequested reports that the user asked to close the window.
	CloseRequested struct{}

	// Destroyed reports that the native window is gone.
	Destroyed struct{}

	// Focused reports keyboard focus changes.
	Focused bool

	// KeyboardInput reports a key press or release. Key is the backend's
	// best-effort logical key name and may be empty.
	KeyboardInput struct {
		Key      string
		DeviceID DeviceID
		ScanCode uint32
		State    ElementState
		Repeat   bool
	}

	// ReceivedCharacter reports a character of text input, after keyboard
	// layout and input method processing.
	ReceivedCharacter rune

	// ModifiersChanged reports the new modifier state.
	ModifiersChanged ModifiersState

	// CursorMoved reports the pointer position relative to the window.
	CursorMoved struct {
		DeviceID DeviceID
		X, Y     float64
	}

	// CursorEntered reports the pointer entering the window.
	CursorEntered struct {
		DeviceID DeviceID
	}

	// CursorLeft reports the pointer leaving the window.
	CursorLeft struct {
		DeviceID DeviceID
	}

	// MouseInput reports a mouse button press or release.
	MouseInput struct {
		DeviceID DeviceID
		Button   MouseButton
		State    ElementState
	}

	// MouseWheel reports a scroll, in lines.
	MouseWheel struct {
		DeviceID DeviceID
		DX, DY   float64
	}

	// Touch reports one touch point.
	Touch struct {
		DeviceID DeviceID
		ID       uint64
		X, Y     float64
		Phase    TouchPhase
	}
)

func (Resized) isWindowEventKind() {}
func (Moved) isWindowEventKind() {}
func (CloseRequested) isWindowEventKind() {}
func (Destroyed) isWindowEventKind() {}
func (Focused) isWindowEventKind() {}
func (KeyboardInput) isWindowEventKind() {}
func (ReceivedCharacter) isWindowEventKind() {}
func (ModifiersChanged) isWindowEventKind() {}
func (CursorMoved) isWindowEventKind() {}
func (CursorEntered) isWindowEventKind() {}
func (CursorLeft) isWindowEventKind() {}
func (MouseInput) isWindowEventKind() {}
func (MouseWheel) isWindowEventKind() {}
func (Touch) isWindowEventKind() {}

type (
	// DeviceEventKind is the payload of a DeviceEvent.
	DeviceEventKind interface {
		isDeviceEventKind()
	}

	// DeviceAdded reports a new device.
	DeviceAdded struct{}

	// DeviceRemoved reports a removed device.
	DeviceRemoved struct{}

	// MouseMotion is unaccelerated relative pointer motion.
	MouseMotion struct {
		DX, DY float64
	}

	// DeviceWheel is raw scroll input.
	DeviceWheel struct {
		DX, DY float64
	}

	// DeviceKey is a raw key press or release.
	DeviceKey struct {
		ScanCode uint32
		State    ElementState
	}

	// DeviceButton is a raw button press or release.
	DeviceButton struct {
		Button uint32
		State  ElementState
	}
)

func (DeviceAdded) isDeviceEventKind() {}
func (DeviceRemoved) isDeviceEventKind() {}
func (MouseMotion) isDeviceEventKind() {}
func (DeviceWheel) isDeviceEventKind() {}
func (DeviceKey) isDeviceEventKind() {}
func (DeviceButton) isDeviceEventKind() {}

// ElementState is the state of a key or button.
type ElementState uint8

const (
	Pressed ElementState = iota + 1
	Released
)

func (s ElementState) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// MouseButton identifies a mouse button. Values above MouseMiddle are
// backend-specific extra buttons.
type MouseButton uint16

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "left"
	case MouseRight:
		return "right"
	case MouseMiddle:
		return "middle"
	default:
		return "other"
	}
}

// TouchPhase is the lifecycle stage of a touch point.
type TouchPhase uint8

const (
	TouchStarted TouchPhase = iota + 1
	TouchMoved
	TouchEnded
	TouchCancelled
)

func (p TouchPhase) String() string {
	switch p {
	case TouchStarted:
		return "started"
	case TouchMoved:
		return "moved"
	case TouchEnded:
		return "ended"
	case TouchCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ModifiersState is a bitmask of held modifier keys.
type ModifiersState uint8

const (
	ModShift ModifiersState = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

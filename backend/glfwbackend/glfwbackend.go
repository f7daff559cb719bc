//go:build glfw

// Package glfwbackend implements winloop.Backend over GLFW 3.3.
//
// GLFW must be driven from the main OS thread. Programs using this package
// should call runtime.LockOSThread from an init function of package main,
// then create and run the loop from main.
//
// GLFW has no raw device model, so no DeviceEvent is ever produced, and
// framebuffer and window sizes are both reported as Resized from the window
// size callback. Every input is attributed to winloop.DefaultDeviceID.
package glfwbackend

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/joeycumines/go-winloop"
)

// Backend is a GLFW backed winloop.Backend. Construct it with New.
type Backend struct {
	windows map[*glfw.Window]*Window
	// queue is filled by GLFW callbacks, which only run inside PollEvents
	// and WaitEvents on the loop goroutine.
	queue       []winloop.Event
	mods        winloop.ModifiersState
	wakePending atomic.Bool
	// closeMu orders Wake, which any goroutine may call, against Terminate.
	closeMu sync.RWMutex
	closed  bool
}

var _ winloop.Backend = (*Backend)(nil)

// New initializes GLFW. It must be called from the main OS thread.
func New() (*Backend, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfwbackend: init: %w", err)
	}
	return &Backend{windows: make(map[*glfw.Window]*Window)}, nil
}

// PollNext processes pending GLFW events if nothing is queued, then pops the
// next queued event.
func (b *Backend) PollNext() (winloop.NativeEvent, bool, error) {
	if b.closed {
		return nil, false, errors.New("glfwbackend: closed")
	}
	if len(b.queue) == 0 {
		glfw.PollEvents()
	}
	ev, ok := b.pop()
	return ev, ok, nil
}

// WaitNext pops the next queued event, blocking in GLFW until an event, a
// Wake or the deadline if the queue is empty.
func (b *Backend) WaitNext(deadline time.Time) (winloop.NativeEvent, bool, error) {
	if b.closed {
		return nil, false, errors.New("glfwbackend: closed")
	}
	if ev, ok := b.pop(); ok {
		return ev, true, nil
	}
	if b.wakePending.CompareAndSwap(true, false) {
		return nil, false, nil
	}
	if deadline.IsZero() {
		glfw.WaitEvents()
	} else if d := time.Until(deadline); d > 0 {
		glfw.WaitEventsTimeout(d.Seconds())
	} else {
		glfw.PollEvents()
	}
	// the wake, if any, was consumed by this wait
	b.wakePending.Store(false)
	ev, ok := b.pop()
	return ev, ok, nil
}

// Wake posts an empty event, at most once until the next wait observes it.
// It does nothing once the backend is closed.
func (b *Backend) Wake() {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	if b.wakePending.CompareAndSwap(false, true) {
		glfw.PostEmptyEvent()
	}
}

// Translate passes through the events queued by the GLFW callbacks.
func (b *Backend) Translate(ev winloop.NativeEvent, dst []winloop.Event) []winloop.Event {
	if e, ok := ev.(winloop.Event); ok {
		dst = append(dst, e)
	}
	return dst
}

// CreateWindow creates a GLFW window without a client API, so callers attach
// their own surface.
func (b *Backend) CreateWindow(id winloop.WindowID, cfg winloop.WindowConfig) (winloop.NativeWindow, error) {
	if b.closed {
		return nil, errors.New("glfwbackend: closed")
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, boolHint(cfg.Resizable))
	glfw.WindowHint(glfw.Decorated, boolHint(cfg.Decorations))
	glfw.WindowHint(glfw.Visible, boolHint(cfg.Visible))
	glfw.WindowHint(glfw.Floating, boolHint(cfg.AlwaysOnTop))
	glfw.WindowHint(glfw.TransparentFramebuffer, boolHint(cfg.Transparent))

	size := cfg.EffectiveInnerSize()
	width, height := int(size.Width), int(size.Height)
	var monitor *glfw.Monitor
	if cfg.Fullscreen != nil {
		m, mode, err := fullscreenTarget(cfg.Fullscreen)
		if err != nil {
			return nil, err
		}
		monitor, width, height = m, mode.Width, mode.Height
		glfw.WindowHint(glfw.RefreshRate, mode.RefreshRate)
	}

	glw, err := glfw.CreateWindow(width, height, cfg.Title, monitor, nil)
	if err != nil {
		return nil, fmt.Errorf("glfwbackend: create window: %w", err)
	}
	if cfg.Position != nil && monitor == nil {
		glw.SetPos(int(cfg.Position.X), int(cfg.Position.Y))
	}

	w := &Window{backend: b, glw: glw, id: id, windowed: size}
	b.windows[glw] = w
	b.bind(w)
	return w, nil
}

// Close terminates GLFW. Windows still open are destroyed by GLFW.
func (b *Backend) Close() error {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return nil
	}
	b.closed = true
	b.closeMu.Unlock()
	b.windows = nil
	b.queue = nil
	glfw.Terminate()
	return nil
}

func (b *Backend) pop() (winloop.Event, bool) {
	if len(b.queue) == 0 {
		return nil, false
	}
	ev := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return ev, true
}

func (b *Backend) push(id winloop.WindowID, kind winloop.WindowEventKind) {
	b.queue = append(b.queue, winloop.WindowEvent{WindowID: id, Kind: kind})
}

func (b *Backend) bind(w *Window) {
	id := w.id
	w.glw.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		b.push(id, winloop.Resized{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))})
	})
	w.glw.SetPosCallback(func(_ *glfw.Window, x, y int) {
		b.push(id, winloop.Moved{X: int32(x), Y: int32(y)})
	})
	w.glw.SetCloseCallback(func(glw *glfw.Window) {
		// the registry decides, GLFW must not close on its own
		glw.SetShouldClose(false)
		b.push(id, winloop.CloseRequested{})
	})
	w.glw.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		b.push(id, winloop.Focused(focused))
	})
	w.glw.SetRefreshCallback(func(*glfw.Window) {
		b.queue = append(b.queue, winloop.RedrawRequested{WindowID: id})
	})
	w.glw.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		b.modifiers(id, mods)
		b.push(id, winloop.KeyboardInput{
			Key:      keyName(key, scancode),
			DeviceID: winloop.DefaultDeviceID,
			ScanCode: uint32(max(scancode, 0)),
			State:    elementState(action),
			Repeat:   action == glfw.Repeat,
		})
	})
	w.glw.SetCharCallback(func(_ *glfw.Window, char rune) {
		b.push(id, winloop.ReceivedCharacter(char))
	})
	w.glw.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		b.modifiers(id, mods)
		b.push(id, winloop.MouseInput{
			DeviceID: winloop.DefaultDeviceID,
			Button:   mouseButton(button),
			State:    elementState(action),
		})
	})
	w.glw.SetScrollCallback(func(_ *glfw.Window, dx, dy float64) {
		b.push(id, winloop.MouseWheel{DeviceID: winloop.DefaultDeviceID, DX: dx, DY: dy})
	})
	w.glw.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		b.push(id, winloop.CursorMoved{DeviceID: winloop.DefaultDeviceID, X: x, Y: y})
	})
	w.glw.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if entered {
			b.push(id, winloop.CursorEntered{DeviceID: winloop.DefaultDeviceID})
		} else {
			b.push(id, winloop.CursorLeft{DeviceID: winloop.DefaultDeviceID})
		}
	})
}

// modifiers emits ModifiersChanged when the held modifiers differ from the
// last reported state.
func (b *Backend) modifiers(id winloop.WindowID, mods glfw.ModifierKey) {
	state := modifiersState(mods)
	if state == b.mods {
		return
	}
	b.mods = state
	b.push(id, winloop.ModifiersChanged(state))
}

func fullscreenTarget(fs *winloop.Fullscreen) (*glfw.Monitor, *glfw.VidMode, error) {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return nil, nil, fmt.Errorf("%w: no monitor for fullscreen", winloop.ErrUnsupportedConfig)
	}
	switch fs.Kind {
	case winloop.FullscreenBorderless:
		return monitor, monitor.GetVideoMode(), nil
	case winloop.FullscreenExclusive:
		if fs.Mode == nil {
			return nil, nil, fmt.Errorf("%w: exclusive fullscreen without a video mode", winloop.ErrUnsupportedConfig)
		}
		mode := matchMode(monitor.GetVideoModes(), *fs.Mode)
		if mode == nil {
			return nil, nil, fmt.Errorf("%w: monitor %q has no mode %dx%d@%d",
				winloop.ErrUnsupportedConfig, monitor.GetName(), fs.Mode.Size.Width, fs.Mode.Size.Height, fs.Mode.RefreshRate)
		}
		return monitor, mode, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown fullscreen kind %d", winloop.ErrUnsupportedConfig, fs.Kind)
	}
}

// matchMode finds the mode with the requested size and refresh rate. A
// BitDepth of zero matches any depth.
func matchMode(modes []*glfw.VidMode, want winloop.VideoMode) *glfw.VidMode {
	for _, m := range modes {
		if m == nil ||
			m.Width != int(want.Size.Width) ||
			m.Height != int(want.Size.Height) ||
			m.RefreshRate != int(want.RefreshRate) {
			continue
		}
		if want.BitDepth != 0 && m.RedBits+m.GreenBits+m.BlueBits != int(want.BitDepth) {
			continue
		}
		return m
	}
	return nil
}

// sizeLimits converts inner size bounds to SetSizeLimits arguments, with
// zero sizes unconstrained.
func sizeLimits(minSize, maxSize winloop.Size) (minW, minH, maxW, maxH int) {
	minW, minH, maxW, maxH = glfw.DontCare, glfw.DontCare, glfw.DontCare, glfw.DontCare
	if minSize != (winloop.Size{}) {
		minW, minH = int(minSize.Width), int(minSize.Height)
	}
	if maxSize != (winloop.Size{}) {
		maxW, maxH = int(maxSize.Width), int(maxSize.Height)
	}
	return
}

func boolHint(v bool) int {
	if v {
		return glfw.True
	}
	return glfw.False
}

func elementState(action glfw.Action) winloop.ElementState {
	if action == glfw.Release {
		return winloop.Released
	}
	return winloop.Pressed
}

func mouseButton(b glfw.MouseButton) winloop.MouseButton {
	switch b {
	case glfw.MouseButtonLeft:
		return winloop.MouseLeft
	case glfw.MouseButtonRight:
		return winloop.MouseRight
	case glfw.MouseButtonMiddle:
		return winloop.MouseMiddle
	default:
		return winloop.MouseButton(b)
	}
}

func modifiersState(mods glfw.ModifierKey) winloop.ModifiersState {
	var s winloop.ModifiersState
	if mods&glfw.ModShift != 0 {
		s |= winloop.ModShift
	}
	if mods&glfw.ModControl != 0 {
		s |= winloop.ModControl
	}
	if mods&glfw.ModAlt != 0 {
		s |= winloop.ModAlt
	}
	if mods&glfw.ModSuper != 0 {
		s |= winloop.ModSuper
	}
	return s
}

var keyNames = map[glfw.Key]string{
	glfw.KeyEscape:    "Escape",
	glfw.KeyEnter:     "Enter",
	glfw.KeyTab:       "Tab",
	glfw.KeyBackspace: "Backspace",
	glfw.KeySpace:     "Space",
	glfw.KeyUp:        "ArrowUp",
	glfw.KeyDown:      "ArrowDown",
	glfw.KeyLeft:      "ArrowLeft",
	glfw.KeyRight:     "ArrowRight",
	glfw.KeyDelete:    "Delete",
	glfw.KeyHome:      "Home",
	glfw.KeyEnd:       "End",
}

// keyName prefers the fixed names for non-printable keys, then the layout
// dependent name GLFW reports for printable ones.
func keyName(key glfw.Key, scancode int) string {
	if name, ok := keyNames[key]; ok {
		return name
	}
	if key == glfw.KeyUnknown && scancode <= 0 {
		return ""
	}
	return glfw.GetKeyName(key, scancode)
}

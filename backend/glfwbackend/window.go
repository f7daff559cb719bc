//go:build glfw

package glfwbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/joeycumines/go-winloop"
)

// Window is a GLFW window.
type Window struct {
	backend *Backend
	glw     *glfw.Window
	// windowed is the inner size restored when leaving fullscreen.
	windowed winloop.Size
	// minSize and maxSize are zero when unconstrained.
	minSize   winloop.Size
	maxSize   winloop.Size
	position  winloop.Position
	id        winloop.WindowID
	destroyed bool
}

var _ winloop.NativeWindow = (*Window)(nil)

// Apply performs op. GLFW reports invalid arguments by panicking, those are
// returned as errors.
func (w *Window) Apply(op winloop.Operation) (err error) {
	if w.destroyed {
		return fmt.Errorf("glfwbackend: %s destroyed", w.id)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("glfwbackend: %s: %T: %v", w.id, op, r)
		}
	}()

	switch o := op.(type) {
	case winloop.SetTitle:
		w.glw.SetTitle(o.Title)
	case winloop.SetVisible:
		if o.Visible {
			w.glw.Show()
		} else {
			w.glw.Hide()
		}
	case winloop.SetInnerSize:
		w.glw.SetSize(int(o.Size.Width), int(o.Size.Height))
		w.windowed = o.Size
	case winloop.SetMinInnerSize:
		w.setSizeLimits(derefSize(o.Size), w.maxSize)
	case winloop.SetMaxInnerSize:
		w.setSizeLimits(w.minSize, derefSize(o.Size))
	case winloop.SetPosition:
		w.glw.SetPos(int(o.Position.X), int(o.Position.Y))
		w.position = o.Position
	case winloop.SetResizable:
		w.glw.SetAttrib(glfw.Resizable, boolHint(o.Resizable))
	case winloop.SetDecorations:
		w.glw.SetAttrib(glfw.Decorated, boolHint(o.Decorations))
	case winloop.SetAlwaysOnTop:
		w.glw.SetAttrib(glfw.Floating, boolHint(o.AlwaysOnTop))
	case winloop.SetMinimized:
		if o.Minimized {
			w.glw.Iconify()
		} else {
			w.glw.Restore()
		}
	case winloop.SetMaximized:
		if o.Maximized {
			w.glw.Maximize()
		} else {
			w.glw.Restore()
		}
	case winloop.SetFullscreen:
		return w.setFullscreen(o.Fullscreen)
	case winloop.FocusWindow:
		w.glw.Focus()
	case winloop.SetCursorPosition:
		w.glw.SetCursorPos(float64(o.Position.X), float64(o.Position.Y))
	default:
		return fmt.Errorf("glfwbackend: %T: %w", op, errors.ErrUnsupported)
	}
	return nil
}

func (w *Window) setSizeLimits(minSize, maxSize winloop.Size) {
	w.glw.SetSizeLimits(sizeLimits(minSize, maxSize))
	w.minSize, w.maxSize = minSize, maxSize
}

func derefSize(s *winloop.Size) winloop.Size {
	if s == nil {
		return winloop.Size{}
	}
	return *s
}

func (w *Window) setFullscreen(fs *winloop.Fullscreen) error {
	if fs == nil {
		w.glw.SetMonitor(nil, int(w.position.X), int(w.position.Y), int(w.windowed.Width), int(w.windowed.Height), glfw.DontCare)
		return nil
	}
	if w.glw.GetMonitor() == nil {
		x, y := w.glw.GetPos()
		w.position = winloop.Position{X: int32(x), Y: int32(y)}
	}
	monitor, mode, err := fullscreenTarget(fs)
	if err != nil {
		return err
	}
	w.glw.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	return nil
}

// Destroy destroys the GLFW window. GLFW sends no event for it.
func (w *Window) Destroy() error {
	if w.destroyed {
		return fmt.Errorf("glfwbackend: %s already destroyed", w.id)
	}
	w.destroyed = true
	if w.backend.windows != nil {
		delete(w.backend.windows, w.glw)
	}
	if !w.backend.closed {
		w.glw.Destroy()
	}
	return nil
}

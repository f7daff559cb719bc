package winloop

// Window is a handle to a registered window. Handles are cheap and safe to
// share between goroutines; setters stage operations that the loop applies
// at the start of its next iteration.
type Window struct {
	reg *Registry
	id  WindowID
}

// ID returns the window's id.
func (w *Window) ID() WindowID { return w.id }

// Attributes returns the cached attributes, or false if the window is gone.
func (w *Window) Attributes() (WindowSnapshot, bool) { return w.reg.Lookup(w.id) }

// RequestRedraw is Registry.RequestRedraw for this window.
func (w *Window) RequestRedraw() error { return w.reg.RequestRedraw(w.id) }

// SetTitle stages a SetTitle operation.
func (w *Window) SetTitle(title string) error {
	return w.reg.EnqueueOperation(w.id, SetTitle{Title: title})
}

// SetVisible shows or hides the window.
func (w *Window) SetVisible(visible bool) error {
	return w.reg.EnqueueOperation(w.id, SetVisible{Visible: visible})
}

// SetInnerSize resizes the client area.
func (w *Window) SetInnerSize(size Size) error {
	return w.reg.EnqueueOperation(w.id, SetInnerSize{Size: size})
}

// SetMinInnerSize sets the smallest size the user can resize the window to,
// or removes the bound if size is nil.
func (w *Window) SetMinInnerSize(size *Size) error {
	return w.reg.EnqueueOperation(w.id, SetMinInnerSize{Size: cloneSize(size)})
}

// SetMaxInnerSize sets the largest size the user can resize the window to,
// or removes the bound if size is nil.
func (w *Window) SetMaxInnerSize(size *Size) error {
	return w.reg.EnqueueOperation(w.id, SetMaxInnerSize{Size: cloneSize(size)})
}

// SetPosition moves the window's outer frame.
func (w *Window) SetPosition(pos Position) error {
	return w.reg.EnqueueOperation(w.id, SetPosition{Position: pos})
}

// SetResizable allows or forbids user resizing.
func (w *Window) SetResizable(resizable bool) error {
	return w.reg.EnqueueOperation(w.id, SetResizable{Resizable: resizable})
}

// SetMinimized iconifies or restores the window.
func (w *Window) SetMinimized(minimized bool) error {
	return w.reg.EnqueueOperation(w.id, SetMinimized{Minimized: minimized})
}

// SetMaximized maximizes or restores the window.
func (w *Window) SetMaximized(maximized bool) error {
	return w.reg.EnqueueOperation(w.id, SetMaximized{Maximized: maximized})
}

// SetFullscreen enters fullscreen, or leaves it if fs is nil.
func (w *Window) SetFullscreen(fs *Fullscreen) error {
	return w.reg.EnqueueOperation(w.id, SetFullscreen{Fullscreen: cloneFullscreen(fs)})
}

// SetDecorations shows or hides the title bar and borders.
func (w *Window) SetDecorations(decorations bool) error {
	return w.reg.EnqueueOperation(w.id, SetDecorations{Decorations: decorations})
}

// SetAlwaysOnTop keeps the window above others.
func (w *Window) SetAlwaysOnTop(alwaysOnTop bool) error {
	return w.reg.EnqueueOperation(w.id, SetAlwaysOnTop{AlwaysOnTop: alwaysOnTop})
}

// Focus raises the window and requests keyboard focus.
func (w *Window) Focus() error {
	return w.reg.EnqueueOperation(w.id, FocusWindow{})
}

// SetCursorPosition warps the pointer, relative to the window.
func (w *Window) SetCursorPosition(pos Position) error {
	return w.reg.EnqueueOperation(w.id, SetCursorPosition{Position: pos})
}

// Destroy destroys the window. Like Registry.Destroy, it is restricted to the
// loop goroutine.
func (w *Window) Destroy() error { return w.reg.Destroy(w.id) }

func cloneSize(s *Size) *Size {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

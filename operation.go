package winloop

type (
	// Operation is a window mutation staged through Registry.EnqueueOperation
	// and applied to the native window on the loop goroutine. Backends
	// implement NativeWindow.Apply with a type switch over the concrete types
	// in this file.
	Operation interface {
		// update applies the operation's effect to the attribute cache,
		// after the native call succeeded.
		update(a *WindowAttributes)
	}

	SetTitle struct{ Title string }

	SetVisible struct{ Visible bool }

	SetInnerSize struct{ Size Size }

	// SetMinInnerSize bounds how small the user can resize the window. A nil
	// Size removes the bound.
	SetMinInnerSize struct{ Size *Size }

	// SetMaxInnerSize bounds how large the user can resize the window. A nil
	// Size removes the bound.
	SetMaxInnerSize struct{ Size *Size }

	SetPosition struct{ Position Position }

	SetResizable struct{ Resizable bool }

	SetMinimized struct{ Minimized bool }

	SetMaximized struct{ Maximized bool }

	// SetFullscreen enters fullscreen, or leaves it if Fullscreen is nil.
	SetFullscreen struct{ Fullscreen *Fullscreen }

	SetDecorations struct{ Decorations bool }

	SetAlwaysOnTop struct{ AlwaysOnTop bool }

	// FocusWindow raises the window and requests keyboard focus.
	FocusWindow struct{}

	// SetCursorPosition warps the pointer, relative to the window.
	SetCursorPosition struct{ Position Position }
)

func (o SetTitle) update(a *WindowAttributes) { a.Title = o.Title }
func (o SetVisible) update(a *WindowAttributes) { a.Visible = o.Visible }
func (o SetInnerSize) update(a *WindowAttributes) { a.InnerSize = o.Size }
func (o SetMinInnerSize) update(a *WindowAttributes) { a.MinInnerSize = derefSize(o.Size) }
func (o SetMaxInnerSize) update(a *WindowAttributes) { a.MaxInnerSize = derefSize(o.Size) }
func (o SetResizable) update(a *WindowAttributes) { a.Resizable = o.Resizable }
func (o SetDecorations) update(a *WindowAttributes) { a.Decorations = o.Decorations }
func (o SetAlwaysOnTop) update(a *WindowAttributes) { a.AlwaysOnTop = o.AlwaysOnTop }
func (FocusWindow) update(*WindowAttributes) {}
func (SetCursorPosition) update(*WindowAttributes) {}

func (o SetPosition) update(a *WindowAttributes) {
	a.Position = o.Position
	a.HasPosition = true
}

func (o SetMinimized) update(a *WindowAttributes) {
	a.Minimized = o.Minimized
	if o.Minimized {
		a.Focused = false
	}
}

func (o SetMaximized) update(a *WindowAttributes) {
	a.Maximized = o.Maximized
	if o.Maximized {
		a.Minimized = false
	}
}

func (o SetFullscreen) update(a *WindowAttributes) {
	a.Fullscreen = cloneFullscreen(o.Fullscreen)
}

func derefSize(s *Size) Size {
	if s == nil {
		return Size{}
	}
	return *s
}

func cloneFullscreen(fs *Fullscreen) *Fullscreen {
	if fs == nil {
		return nil
	}
	c := *fs
	if fs.Mode != nil {
		m := *fs.Mode
		c.Mode = &m
	}
	return &c
}

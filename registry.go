package winloop

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// Registry maps WindowIDs to window state. Create, ApplyPending and Destroy
// make native calls and are restricted to the loop goroutine; Lookup,
// EnqueueOperation and RequestRedraw are safe from any goroutine.
type Registry struct {
	factory WindowFactory
	log     *loopLogger
	wake    func()
	windows map[WindowID]*windowState
	nextID  atomic.Uint64
	mu      sync.RWMutex
	owner   owner
	closed  bool
}

// windowState is the registry's record for one window.
type windowState struct {
	// native is only touched by the loop goroutine.
	native NativeWindow
	attrs  WindowAttributes
	ops    []Operation
	id     WindowID
	// mu guards attrs.
	mu sync.RWMutex
	// opsMu guards ops and dead.
	opsMu  sync.Mutex
	redraw atomic.Bool
	dead   bool
}

// WindowSnapshot is a copy of a window's cached attributes.
type WindowSnapshot struct {
	WindowAttributes
	ID WindowID
}

func newRegistry(factory WindowFactory, o owner, log *loopLogger, wake func()) *Registry {
	return &Registry{
		factory: factory,
		log:     log,
		wake:    wake,
		owner:   o,
		windows: make(map[WindowID]*windowState),
	}
}

// Create validates cfg and creates a native window, returning its new ID.
// Errors are *WindowCreationError.
func (r *Registry) Create(cfg WindowConfig) (WindowID, error) {
	if err := r.owner.check("create window"); err != nil {
		return 0, &WindowCreationError{Cause: err, Title: cfg.Title}
	}
	if err := cfg.Validate(); err != nil {
		return 0, &WindowCreationError{Cause: err, Title: cfg.Title}
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return 0, &WindowCreationError{Cause: ErrRegistryClosed, Title: cfg.Title}
	}

	// ids of failed creations are burned, never reissued
	id := WindowID(r.nextID.Add(1))

	native, err := r.factory.CreateWindow(id, cfg)
	if err != nil {
		return 0, &WindowCreationError{Cause: err, Title: cfg.Title}
	}

	ws := &windowState{
		id:     id,
		native: native,
		attrs:  attributesFromConfig(cfg),
	}

	r.mu.Lock()
	r.windows[id] = ws
	r.mu.Unlock()

	r.log.windowCreated(id, cfg.Title)
	return id, nil
}

// Lookup returns a copy of the cached attributes of a live window.
func (r *Registry) Lookup(id WindowID) (WindowSnapshot, bool) {
	ws := r.get(id)
	if ws == nil {
		return WindowSnapshot{}, false
	}
	ws.mu.RLock()
	attrs := ws.attrs
	ws.mu.RUnlock()
	attrs.Fullscreen = cloneFullscreen(attrs.Fullscreen)
	return WindowSnapshot{ID: id, WindowAttributes: attrs}, true
}

// EnqueueOperation stages op for the window and wakes the loop. Operations
// are applied in FIFO order per window, at the start of the next iteration.
func (r *Registry) EnqueueOperation(id WindowID, op Operation) error {
	if op == nil {
		return errors.New("winloop: nil operation")
	}
	ws := r.get(id)
	if ws == nil {
		return ErrWindowNotFound
	}
	ws.opsMu.Lock()
	if ws.dead {
		ws.opsMu.Unlock()
		return ErrWindowNotFound
	}
	ws.ops = append(ws.ops, op)
	ws.opsMu.Unlock()
	r.wake()
	return nil
}

// RequestRedraw schedules a RedrawRequested for the window in the next redraw
// phase. Requests made before that phase coalesce.
func (r *Registry) RequestRedraw(id WindowID) error {
	if !r.markRedraw(id) {
		return ErrWindowNotFound
	}
	r.wake()
	return nil
}

// ApplyPending drains the window's queued operations and applies them to the
// native window. Operations the backend rejects are dropped and their errors
// joined.
func (r *Registry) ApplyPending(id WindowID) error {
	if err := r.owner.check("apply pending"); err != nil {
		return err
	}
	ws := r.get(id)
	if ws == nil {
		return ErrWindowNotFound
	}

	ws.opsMu.Lock()
	ops := ws.ops
	ws.ops = nil
	ws.opsMu.Unlock()

	var errs []error
	for _, op := range ops {
		if err := ws.native.Apply(op); err != nil {
			errs = append(errs, err)
			continue
		}
		ws.mu.Lock()
		op.update(&ws.attrs)
		ws.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Destroy releases the native window. The ID is never valid again.
func (r *Registry) Destroy(id WindowID) error {
	if err := r.owner.check("destroy window"); err != nil {
		return err
	}
	ws := r.remove(id)
	if ws == nil {
		return ErrWindowNotFound
	}
	dropped := ws.kill()
	err := ws.native.Destroy()
	r.log.windowDestroyed(id, dropped)
	return err
}

// IDs returns the live window IDs in ascending order.
func (r *Registry) IDs() []WindowID {
	r.mu.RLock()
	ids := make([]WindowID, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.windows)
}

// Window returns a handle for id. The handle does not keep the window alive,
// its methods fail with ErrWindowNotFound once the window is gone.
func (r *Registry) Window(id WindowID) *Window {
	return &Window{id: id, reg: r}
}

// CreateWindow is Create returning a handle.
func (r *Registry) CreateWindow(cfg WindowConfig) (*Window, error) {
	id, err := r.Create(cfg)
	if err != nil {
		return nil, err
	}
	return r.Window(id), nil
}

func (r *Registry) get(id WindowID) *windowState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows[id]
}

func (r *Registry) remove(id WindowID) *windowState {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.windows[id]
	delete(r.windows, id)
	return ws
}

// kill marks the state dead and drops pending operations, returning how many
// were dropped.
func (ws *windowState) kill() int {
	ws.opsMu.Lock()
	defer ws.opsMu.Unlock()
	ws.dead = true
	n := len(ws.ops)
	ws.ops = nil
	return n
}

// applyAll runs ApplyPending for every window, on the loop goroutine.
func (r *Registry) applyAll() {
	for _, id := range r.IDs() {
		if err := r.ApplyPending(id); err != nil && !errors.Is(err, ErrWindowNotFound) {
			r.log.windowError(id, "winloop: failed to apply window operation", err)
		}
	}
}

// observe updates the attribute cache from a translated native event. A
// Destroyed event drops the window without a native call.
func (r *Registry) observe(ev WindowEvent) {
	if _, ok := ev.Kind.(Destroyed); ok {
		if ws := r.remove(ev.WindowID); ws != nil {
			r.log.windowDestroyed(ev.WindowID, ws.kill())
		}
		return
	}
	ws := r.get(ev.WindowID)
	if ws == nil {
		return
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	switch k := ev.Kind.(type) {
	case Resized:
		ws.attrs.InnerSize = Size(k)
	case Moved:
		ws.attrs.Position = Position(k)
		ws.attrs.HasPosition = true
	case Focused:
		ws.attrs.Focused = bool(k)
	}
}

func (r *Registry) markRedraw(id WindowID) bool {
	ws := r.get(id)
	if ws == nil {
		return false
	}
	ws.redraw.Store(true)
	return true
}

// takeRedraws appends the IDs of windows with a pending redraw, in ascending
// order, clearing their flags.
func (r *Registry) takeRedraws(dst []WindowID) []WindowID {
	for _, id := range r.IDs() {
		if ws := r.get(id); ws != nil && ws.redraw.Swap(false) {
			dst = append(dst, id)
		}
	}
	return dst
}

// teardown drops all pending operations and destroys every window, then
// rejects further creation. Called once, on the loop goroutine.
func (r *Registry) teardown() {
	r.mu.Lock()
	r.closed = true
	windows := r.windows
	r.windows = make(map[WindowID]*windowState)
	r.mu.Unlock()

	ids := make([]WindowID, 0, len(windows))
	for id := range windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		ws := windows[id]
		dropped := ws.kill()
		if err := ws.native.Destroy(); err != nil {
			r.log.windowError(id, "winloop: failed to destroy window", err)
		}
		r.log.windowDestroyed(id, dropped)
	}
}
